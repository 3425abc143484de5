package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)

	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Millisecond))

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys have separate buckets")

	now = now.Add(31 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "a token refills after window/limit")
}

func TestRateLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(3 * time.Minute)
	rl.Allow("b")

	assert.Len(t, rl.clients, 1)
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	router := gin.New()
	router.Use(RateLimit(rl))
	router.POST("/test", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
