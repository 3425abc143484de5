package handler

import (
	"net/http"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentHandler receives payment results from the payment service.
// It never waits on the ERP.
type PaymentHandler struct {
	BaseHandler
	payments PaymentResults
}

// NewPaymentHandler creates a PaymentHandler
func NewPaymentHandler(payments PaymentResults) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Receive applies one payment result. A replayed event answers 200 without side effects.
// POST /payments/results
func (h *PaymentHandler) Receive(c *gin.Context) {
	var req integrationapp.PaymentResult
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.payments.Handle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Duplicate {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
		return
	}
	h.Accepted(c, result)
}
