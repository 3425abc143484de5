package erp

import (
	"errors"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the BaseLinker connector endpoint
	DefaultBaseURL = "https://api.baselinker.com/connector.php"
	// DefaultRequestsPerMinute is the BaseLinker per-token limit
	DefaultRequestsPerMinute = 100
	// DefaultPageSize is the page length of inventory listings
	DefaultPageSize = 1000
	// OrdersPageSize is the page length of getOrders
	OrdersPageSize = 100
	// JournalPageSize is the page length of getJournalList
	JournalPageSize = 100
)

// Errors for ERP client configuration
var (
	ErrInvalidBaseURL  = errors.New("erp: base url must be an absolute http(s) url")
	ErrInvalidAttempts = errors.New("erp: max attempts must be positive")
)

// Config holds the ERP client settings
type Config struct {
	// BaseURL is the RPC endpoint
	BaseURL string
	// RequestsPerMinute is the token bucket capacity
	RequestsPerMinute int
	// Timeout bounds a single HTTP exchange
	Timeout time.Duration
	// MaxAttempts bounds 5xx and network retries, first try included
	MaxAttempts int
	// BaseBackoff is the first retry delay, doubled on each retry
	BaseBackoff time.Duration
	// MaxBackoff caps a single retry delay
	MaxBackoff time.Duration
	// RateLimitFallback is the 429 wait when Retry-After is missing or unreadable
	RateLimitFallback time.Duration
	// MaxRateLimitWaits bounds consecutive 429 responses for one call
	MaxRateLimitWaits int
	// PageSize is the expected length of a full inventory page
	PageSize int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		RequestsPerMinute: DefaultRequestsPerMinute,
		Timeout:           30 * time.Second,
		MaxAttempts:       4,
		BaseBackoff:       time.Second,
		MaxBackoff:        30 * time.Second,
		RateLimitFallback: 60 * time.Second,
		MaxRateLimitWaits: 10,
		PageSize:          DefaultPageSize,
	}
}

// Validate fills unset fields with defaults and rejects malformed ones
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.MaxAttempts < 0 {
		return ErrInvalidAttempts
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = d.RequestsPerMinute
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.RateLimitFallback <= 0 {
		c.RateLimitFallback = d.RateLimitFallback
	}
	if c.MaxRateLimitWaits <= 0 {
		c.MaxRateLimitWaits = d.MaxRateLimitWaits
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	return nil
}
