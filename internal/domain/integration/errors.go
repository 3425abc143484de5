package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Taxonomy sentinels, matched with errors.Is against the typed errors below
	ErrConfiguration     = errors.New("integration: configuration error")
	ErrErpAPI            = errors.New("integration: erp rejected request")
	ErrTransport         = errors.New("integration: erp transport failure")
	ErrUnroutableProduct = errors.New("integration: product cannot be routed to an inventory")

	// Sync errors
	ErrSyncAlreadyRunning = errors.New("integration: sync of this type is already running")
	ErrSyncLogNotRunning  = errors.New("integration: sync log is not running")
	ErrSyncCancelled      = errors.New("integration: sync run cancelled by operator")
	ErrInvalidSyncType    = errors.New("integration: invalid sync type")
	ErrInvalidSyncMode    = errors.New("integration: invalid sync mode")

	// Order push errors
	ErrOrderNotPaid      = errors.New("integration: order is not paid")
	ErrOrderNotSynced    = errors.New("integration: order has no external id")
	ErrEmptyOrder        = errors.New("integration: order has no lines")
	ErrUnmappedErpStatus = errors.New("integration: erp status has no local mapping")

	// Job errors
	ErrInvalidJobType = errors.New("integration: invalid sync job type")
	ErrJobNotPending  = errors.New("integration: sync job is not pending")
	ErrJobNotDead     = errors.New("integration: sync job is not dead")
)

// ConfigurationError reports missing or malformed credentials or inventory settings.
// It is fatal for the current operation and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ErpApiError is an application-level rejection from the ERP.
// Retrying cannot change the outcome, so it is never retried.
type ErpApiError struct {
	Method  string
	Code    string
	Message string
}

func (e *ErpApiError) Error() string {
	return fmt.Sprintf("erp %s failed: [%s] %s", e.Method, e.Code, e.Message)
}

// Is matches ErrErpAPI
func (e *ErpApiError) Is(target error) bool {
	return target == ErrErpAPI
}

// TransportError is a network or 5xx failure that survived the retry budget
type TransportError struct {
	Method     string
	Attempts   int
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("erp %s transport failure after %d attempts: status %d: %v", e.Method, e.Attempts, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("erp %s transport failure after %d attempts: %v", e.Method, e.Attempts, e.Cause)
}

// Unwrap returns the last underlying failure
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is matches ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// UnroutableProductError means no prefix, tag, or default mapping applies to a product
type UnroutableProductError struct {
	ProductID  string
	ExternalID string
}

func (e *UnroutableProductError) Error() string {
	return fmt.Sprintf("product %s (external id %q) has no inventory mapping", e.ProductID, e.ExternalID)
}

// Is matches ErrUnroutableProduct
func (e *UnroutableProductError) Is(target error) bool {
	return target == ErrUnroutableProduct
}

// IsRetryable reports whether a later attempt may succeed.
// Only transport failures qualify; configuration, API and routing errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransport)
}

// ErrorCode returns a stable code for logs and sync-log details
func ErrorCode(err error) string {
	var apiErr *ErpApiError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		if apiErr.Code != "" {
			return apiErr.Code
		}
		return "ERP_API_ERROR"
	case errors.Is(err, ErrConfiguration):
		return "CONFIGURATION_ERROR"
	case errors.Is(err, ErrTransport):
		return "TRANSPORT_ERROR"
	case errors.Is(err, ErrUnroutableProduct):
		return "UNROUTABLE_PRODUCT"
	case errors.Is(err, ErrUnmappedErpStatus):
		return "UNMAPPED_STATUS"
	case errors.Is(err, ErrOrderNotPaid):
		return "ORDER_NOT_PAID"
	default:
		return "INTERNAL_ERROR"
	}
}
