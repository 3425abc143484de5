package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code      string
		expected  int
		wantKnown bool
	}{
		{ErrCodeInternal, http.StatusInternalServerError, true},
		{ErrCodeValidation, http.StatusBadRequest, true},
		{ErrCodeTokenExpired, http.StatusUnauthorized, true},
		{ErrCodeForbidden, http.StatusForbidden, true},
		{ErrCodeNotFound, http.StatusNotFound, true},
		{ErrCodeConcurrencyConflict, http.StatusConflict, true},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity, true},
		{ErrCodeRateLimited, http.StatusTooManyRequests, true},
		{ErrCodeErpConfiguration, http.StatusConflict, true},
		{ErrCodeErpRejected, http.StatusBadGateway, true},
		{ErrCodeErpUnavailable, http.StatusBadGateway, true},
		{ErrCodeSyncRunning, http.StatusConflict, true},
		{ErrCodeOrderNotPaid, http.StatusUnprocessableEntity, true},
		{ErrCodeUnroutable, http.StatusUnprocessableEntity, true},
		{ErrCodeJobNotDead, http.StatusConflict, true},
		{"PRODUCT_NOT_FOUND", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, known := StatusFor(tt.code)
			assert.Equal(t, tt.expected, status)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestCodeTable(t *testing.T) {
	for code, status := range codeStatus {
		assert.True(t, strings.HasPrefix(code, "ERR_"), "%s should start with ERR_", code)
		assert.GreaterOrEqual(t, status, 400, code)
	}
	for domainCode, apiCode := range domainCodes {
		_, known := codeStatus[apiCode]
		assert.True(t, known, "%s maps to %s which has no status", domainCode, apiCode)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{ErrCodeSyncRunning, ErrCodeSyncRunning},
		{"INVALID_QUANTITY", "INVALID_QUANTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"configuration", integration.NewConfigurationError("token", "missing"), ErrCodeErpConfiguration},
		{"erp api", &integration.ErpApiError{Method: "addOrder", Code: "ERROR_X", Message: "x"}, ErrCodeErpRejected},
		{"transport", &integration.TransportError{Method: "getOrders", Attempts: 3, Cause: errors.New("reset")}, ErrCodeErpUnavailable},
		{"wrapped running", fmt.Errorf("trigger: %w", integration.ErrSyncAlreadyRunning), ErrCodeSyncRunning},
		{"not paid", integration.ErrOrderNotPaid, ErrCodeOrderNotPaid},
		{"invalid sync type", integration.ErrInvalidSyncType, ErrCodeInvalidInput},
		{"domain not found", shared.ErrNotFound, ErrCodeNotFound},
		{"domain invalid state", shared.NewDomainError("INVALID_STATE", "nope"), ErrCodeInvalidState},
		{"domain specific code", shared.NewDomainError("INVALID_QUANTITY", "qty"), "INVALID_QUANTITY"},
		{"unknown", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCodeFor(tt.err))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponseWithRequestID("NOT_FOUND", "Sync log not found", "req-123")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "data")
	assert.NotContains(t, decoded, "meta")
	assert.Equal(t, ErrCodeNotFound, decoded["error"].(map[string]any)["code"])
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "type", Message: "type is required"},
		{Field: "mode", Message: "mode must be one of [new_only update_only]"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, DefaultPageSize},
		{100, -1, 5, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.pageSize), func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			assert.True(t, resp.Success)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
		})
	}
}

func TestListRequest_Normalize(t *testing.T) {
	r := ListRequest{}
	r.Normalize()
	assert.Equal(t, ListRequest{Page: 1, PageSize: DefaultPageSize}, r)

	r = ListRequest{Page: 3, PageSize: 500}
	r.Normalize()
	assert.Equal(t, ListRequest{Page: 3, PageSize: MaxPageSize}, r)
}
