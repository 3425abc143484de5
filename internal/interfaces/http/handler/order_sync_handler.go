package handler

import (
	integrationapp "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderSyncHandler lets operators push orders to the ERP by hand
type OrderSyncHandler struct {
	BaseHandler
	pusher     OrderPusher
	queue      SyncQueue
	sweepLimit int
}

// NewOrderSyncHandler creates an OrderSyncHandler. sweepLimit bounds a manual pending sweep.
func NewOrderSyncHandler(pusher OrderPusher, queue SyncQueue, sweepLimit int) *OrderSyncHandler {
	return &OrderSyncHandler{pusher: pusher, queue: queue, sweepLimit: sweepLimit}
}

// SyncOrderRequest tunes a manual push
type SyncOrderRequest struct {
	Force            bool `json:"force"`
	SkipPaymentCheck bool `json:"skip_payment_check"`
	OrderStatusID    *int `json:"order_status_id" binding:"omitempty,min=1"`
}

// SyncOrder pushes one order inline and reports the outcome.
// ERP failures are part of the body; only local failures change the status code.
// POST /admin/orders/:id/sync
func (h *OrderSyncHandler) SyncOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req SyncOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	if req.Force && !middleware.HasRole(c, auth.RoleAdmin) {
		h.Forbidden(c, "Only admins may force an order push")
		return
	}

	ctx := c.Request.Context()
	result, err := h.pusher.SyncOrderToBaselinker(ctx, id, integrationapp.SyncOptions{
		SkipPaymentCheck: req.SkipPaymentCheck,
		Force:            req.Force,
		OrderStatusID:    req.OrderStatusID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !result.Success {
		logger.FromContext(ctx).Info("Manual order push did not succeed",
			logger.OrderID(id.String()),
			zap.String("error_code", integration.ErrorCode(result.Error)),
			zap.Bool("force", req.Force),
		)
	}
	h.Success(c, toSyncOrderResponse(result))
}

// SyncPending queues a pending-order sweep
// POST /admin/orders/sync-pending
func (h *OrderSyncHandler) SyncPending(c *gin.Context) {
	job, err := h.queue.EnqueuePendingSweep(c.Request.Context(), h.sweepLimit, integration.SyncTriggerOperator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, accepted(job))
}
