// Package handler holds the gin handlers of the admin, order and payment endpoints.
package handler

import (
	"net/http"
	"strings"

	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for queued work
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	details := middleware.ValidationDetails(err)
	if details == nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
}

// HandleError maps domain and sync errors to the response envelope.
// Unknown errors are logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := dto.ErrorCodeFor(err)
	status, known := dto.StatusFor(code)
	if !known {
		// domain-specific codes: PRODUCT_NOT_FOUND and friends are 404, the rest are rule violations
		status = http.StatusUnprocessableEntity
		if strings.HasSuffix(code, "_NOT_FOUND") {
			status = http.StatusNotFound
		}
	}

	if code == dto.ErrCodeInternal {
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
		return
	}
	_ = c.Error(err)
	h.Error(c, status, code, err.Error())
}

// bindJSON binds and validates the body, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.ValidationError(c, err)
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted
func (h *BaseHandler) bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, req)
}

// pathID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid id format")
		return uuid.Nil, false
	}
	return id, true
}

// operatorName returns the authenticated subject for audit text
func operatorName(c *gin.Context) string {
	if sub := middleware.GetJWTSubject(c); sub != "" {
		return sub
	}
	return "operator"
}
