package handler

import (
	"context"

	orderapp "github.com/erp/ordersync/internal/application/order"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler serves the storefront order endpoints
type OrderHandler struct {
	BaseHandler
	orders Orders
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(orders Orders) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CancelOrderRequest carries the cancel reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Place creates an order from a checkout and reserves its stock
// POST /orders
func (h *OrderHandler) Place(c *gin.Context) {
	var req orderapp.PlaceOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns an order with its lines and history
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	h.withOrder(c, h.orders.Get)
}

// Cancel cancels an order and releases its stock
// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req CancelOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.orders.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// StartProcessing moves a paid order into processing
// POST /orders/:id/start-processing
func (h *OrderHandler) StartProcessing(c *gin.Context) {
	h.withOrder(c, h.orders.StartProcessing)
}

// Ship marks an order shipped
// POST /orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	h.withOrder(c, h.orders.Ship)
}

// Deliver marks an order delivered
// POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.withOrder(c, h.orders.Deliver)
}

func (h *OrderHandler) withOrder(c *gin.Context, fn func(context.Context, uuid.UUID) (*orderapp.OrderResponse, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
