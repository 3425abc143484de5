package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
)

// API error codes. Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"

	// ErrCodeErpConfiguration means ERP credentials or inventory settings are missing or disabled
	ErrCodeErpConfiguration = "ERR_ERP_CONFIGURATION"
	// ErrCodeErpRejected means the ERP answered with an error envelope
	ErrCodeErpRejected = "ERR_ERP_REJECTED"
	// ErrCodeErpUnavailable means the ERP could not be reached after retries
	ErrCodeErpUnavailable = "ERR_ERP_UNAVAILABLE"
	ErrCodeSyncRunning    = "ERR_SYNC_RUNNING"
	ErrCodeSyncNotRunning = "ERR_SYNC_NOT_RUNNING"
	ErrCodeOrderNotPaid   = "ERR_ORDER_NOT_PAID"
	ErrCodeUnroutable     = "ERR_UNROUTABLE_PRODUCT"
	ErrCodeJobNotDead     = "ERR_JOB_NOT_DEAD"
)

var codeStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeErpConfiguration: http.StatusConflict,
	ErrCodeErpRejected:      http.StatusBadGateway,
	ErrCodeErpUnavailable:   http.StatusBadGateway,
	ErrCodeSyncRunning:      http.StatusConflict,
	ErrCodeSyncNotRunning:   http.StatusConflict,
	ErrCodeOrderNotPaid:     http.StatusUnprocessableEntity,
	ErrCodeUnroutable:       http.StatusUnprocessableEntity,
	ErrCodeJobNotDead:       http.StatusConflict,
}

// StatusFor returns the HTTP status of an API error code.
// ok is false for codes outside the table, which get 500.
func StatusFor(code string) (status int, ok bool) {
	status, ok = codeStatus[code]
	if !ok {
		return http.StatusInternalServerError, false
	}
	return status, true
}

// domainCodes translates shared domain error codes into API codes
var domainCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode maps a domain code to its API code; other codes pass through
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	return code
}

// syncErrorCodes maps integration sentinels to API codes, checked in order
var syncErrorCodes = []struct {
	target error
	code   string
}{
	{integration.ErrConfiguration, ErrCodeErpConfiguration},
	{integration.ErrErpAPI, ErrCodeErpRejected},
	{integration.ErrTransport, ErrCodeErpUnavailable},
	{integration.ErrSyncAlreadyRunning, ErrCodeSyncRunning},
	{integration.ErrSyncLogNotRunning, ErrCodeSyncNotRunning},
	{integration.ErrOrderNotPaid, ErrCodeOrderNotPaid},
	{integration.ErrUnroutableProduct, ErrCodeUnroutable},
	{integration.ErrJobNotDead, ErrCodeJobNotDead},
	{integration.ErrInvalidSyncType, ErrCodeInvalidInput},
	{integration.ErrInvalidSyncMode, ErrCodeInvalidInput},
	{integration.ErrInvalidJobType, ErrCodeInvalidInput},
}

// ErrorCodeFor derives the API error code of err.
// Returns ErrCodeInternal for errors with no mapping.
func ErrorCodeFor(err error) string {
	for _, m := range syncErrorCodes {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return NormalizeErrorCode(domainErr.Code)
	}
	return ErrCodeInternal
}
