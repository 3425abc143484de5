package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*visitor
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window per key, with bursts up to requests
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*visitor),
		limit:   rate.Every(window / time.Duration(max(requests, 1))),
		burst:   max(requests, 1),
		idleTTL: 2 * window,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now.
// When refused it also returns how long until the next token.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evict(now)

	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) evict(now time.Time) {
	for key, v := range rl.clients {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
}

// RateLimitByKey returns a rate limiting middleware keyed by keyFunc
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := limiter.Allow(keyFunc(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited, "Too many requests. Please try again later.", getRequestID(c)))
			return
		}
		c.Next()
	}
}

// RateLimit limits by token subject, falling back to the client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		if sub := GetJWTSubject(c); sub != "" {
			return "sub:" + sub
		}
		return "ip:" + c.ClientIP()
	})
}
