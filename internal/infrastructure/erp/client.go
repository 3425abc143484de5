package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the ERP (10MB)
const maxResponseSize = 10 * 1024 * 1024

const (
	tokenHeader   = "X-BLToken"
	statusSuccess = "SUCCESS"
	tracerName    = "github.com/erp/ordersync/internal/infrastructure/erp"
)

// Call outcomes reported to the CallRecorder
const (
	OutcomeSuccess   = "success"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
	OutcomeCancelled = "cancelled"
)

var errRateLimited = errors.New("rate limited by erp")

// CallRecorder receives per-call measurements
type CallRecorder interface {
	RecordErpCall(ctx context.Context, method, outcome string, duration time.Duration)
	RecordRateLimitWait(ctx context.Context, method string, wait time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordErpCall(context.Context, string, string, time.Duration) {}
func (noopRecorder) RecordRateLimitWait(context.Context, string, time.Duration)   {}

// Client is the single chokepoint for ERP remote calls.
// Every call takes a token from the shared bucket and is retried per Config.
type Client struct {
	cfg        Config
	httpClient *http.Client
	bucket     *TokenBucket
	clock      Clock
	logger     *zap.Logger
	recorder   CallRecorder
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the clock used for throttling and backoff
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r CallRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates an ERP client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clock:      RealClock(),
		logger:     zap.NewNop(),
		recorder:   noopRecorder{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bucket = NewTokenBucket(cfg.RequestsPerMinute, c.clock)
	return c, nil
}

// Connect returns a gateway bound to a decrypted token
func (c *Client) Connect(token string) integration.ErpGateway {
	return NewBaselinkerGateway(c, token)
}

// Call invokes an ERP method and decodes the success envelope into out.
// Errors are *integration.ErpApiError, *integration.TransportError,
// *integration.ConfigurationError or a context error.
func (c *Client) Call(ctx context.Context, token, method string, params any, out any) error {
	if strings.TrimSpace(token) == "" {
		return integration.NewConfigurationError("token", "api token is empty")
	}
	if params == nil {
		params = struct{}{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("erp: failed to encode %s parameters: %w", method, err)
	}

	ctx, span := c.tracer.Start(ctx, "erp."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("erp.method", method)),
	)
	defer span.End()

	start := c.clock.Now()
	err = c.callWithRetry(ctx, token, method, payload, out)
	elapsed := c.clock.Now().Sub(start)

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, integration.ErrErpAPI):
		outcome = OutcomeAPIError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
	default:
		outcome = OutcomeTransport
	}
	c.recorder.RecordErpCall(ctx, method, outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("ERP call failed",
			zap.String("erp_method", method),
			zap.String("outcome", outcome),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return err
	}
	c.logger.Debug("ERP call succeeded",
		zap.String("erp_method", method),
		zap.Duration("duration", elapsed),
	)
	return nil
}

// callWithRetry runs the throttle and retry loop.
// 429 waits do not count as attempts but are bounded by MaxRateLimitWaits.
func (c *Client) callWithRetry(ctx context.Context, token, method string, payload []byte, out any) error {
	var (
		attempts       int
		rateLimitWaits int
		lastErr        error
		lastStatus     int
	)
	for {
		if err := c.bucket.Acquire(ctx); err != nil {
			return err
		}

		res, err := c.do(ctx, token, method, payload)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr, lastStatus = err, 0
			rateLimitWaits = 0

		case res.status == http.StatusTooManyRequests:
			rateLimitWaits++
			if rateLimitWaits > c.cfg.MaxRateLimitWaits {
				return &integration.TransportError{
					Method:     method,
					Attempts:   attempts + rateLimitWaits,
					StatusCode: res.status,
					Cause:      errRateLimited,
				}
			}
			wait := parseRetryAfter(res.header.Get("Retry-After"), c.clock.Now(), c.cfg.RateLimitFallback)
			c.logger.Info("ERP rate limit hit, waiting",
				zap.String("erp_method", method),
				zap.Duration("retry_after", wait),
				zap.Int("consecutive_waits", rateLimitWaits),
			)
			c.recorder.RecordRateLimitWait(ctx, method, wait)
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return err
			}
			continue

		case res.status >= http.StatusInternalServerError:
			lastErr, lastStatus = fmt.Errorf("server error: %s", snippet(res.body)), res.status
			rateLimitWaits = 0

		case res.status >= http.StatusBadRequest:
			return &integration.ErpApiError{
				Method:  method,
				Code:    "HTTP_" + strconv.Itoa(res.status),
				Message: snippet(res.body),
			}

		default:
			return decodeEnvelope(method, res.body, out)
		}

		attempts++
		if attempts >= c.cfg.MaxAttempts {
			return &integration.TransportError{
				Method:     method,
				Attempts:   attempts,
				StatusCode: lastStatus,
				Cause:      lastErr,
			}
		}
		backoff := c.backoff(attempts)
		c.logger.Info("ERP call failed, retrying",
			zap.String("erp_method", method),
			zap.Int("attempt", attempts),
			zap.Int("status_code", lastStatus),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		if err := c.clock.Sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

// backoff returns BaseBackoff * 2^(attempt-1), capped at MaxBackoff
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	return min(d, c.cfg.MaxBackoff)
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// do performs one HTTP exchange
func (c *Client) do(ctx context.Context, token, method string, payload []byte) (*rawResponse, error) {
	form := url.Values{}
	form.Set("method", method)
	form.Set("parameters", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(tokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to read response: %w", err)
	}
	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

type envelope struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// decodeEnvelope checks the status field and decodes the payload
func decodeEnvelope(method string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &integration.ErpApiError{Method: method, Code: "INVALID_RESPONSE", Message: err.Error()}
	}
	if env.Status != statusSuccess {
		code := env.ErrorCode
		if code == "" {
			code = "UNKNOWN_ERROR"
		}
		return &integration.ErpApiError{Method: method, Code: code, Message: env.ErrorMessage}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &integration.ErpApiError{Method: method, Code: "INVALID_RESPONSE", Message: err.Error()}
	}
	return nil
}

// parseRetryAfter reads delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0)
	}
	return fallback
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
