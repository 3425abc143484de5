// Package dto holds the JSON envelope shared by every endpoint and the API error codes.
package dto

import "time"

// Pagination bounds for list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Response is the envelope of every JSON body.
// Exactly one of Data and Error is set; Meta accompanies paged lists.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta is pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse wraps data
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

// NewErrorResponseWithRequestID builds an error body; domain codes are normalized to API codes
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Error: &ErrorInfo{
			Code:      NormalizeErrorCode(code),
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now(),
		},
	}
}

// NewValidationErrorResponse builds a 400 body listing the invalid fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// ListRequest binds ?page= and ?page_size=
type ListRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in defaults and caps the page size
func (r *ListRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	switch {
	case r.PageSize < 1:
		r.PageSize = DefaultPageSize
	case r.PageSize > MaxPageSize:
		r.PageSize = MaxPageSize
	}
}
