package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("ordersync", "1.0.0", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSystemHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name           string
		checks         map[string]ReadinessCheck
		expectedCode   int
		expectedStatus string
		expectedChecks map[string]string
	}{
		{
			name:           "no checks",
			expectedCode:   http.StatusOK,
			expectedStatus: "ready",
			expectedChecks: map[string]string{},
		},
		{
			name:           "all healthy",
			checks:         map[string]ReadinessCheck{"database": ok, "cache": ok},
			expectedCode:   http.StatusOK,
			expectedStatus: "ready",
			expectedChecks: map[string]string{"database": "ok", "cache": "ok"},
		},
		{
			name:           "one failing",
			checks:         map[string]ReadinessCheck{"database": ok, "cache": failing},
			expectedCode:   http.StatusServiceUnavailable,
			expectedStatus: "not_ready",
			expectedChecks: map[string]string{"database": "ok", "cache": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("ordersync", "1.0.0", tt.checks)
			engine := gin.New()
			engine.GET("/ready", h.Ready)

			w := serve(engine, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedStatus, resp.Status)
			assert.Equal(t, tt.expectedChecks, resp.Checks)
		})
	}
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("ordersync", "1.2.3", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "ordersync", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}
