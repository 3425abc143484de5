package handler

import (
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SyncHandler serves the operator endpoints for inbound sync runs
type SyncHandler struct {
	BaseHandler
	queue SyncQueue
	logs  SyncLogs
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(queue SyncQueue, logs SyncLogs) *SyncHandler {
	return &SyncHandler{queue: queue, logs: logs}
}

// TriggerSyncRequest asks for an inbound run
type TriggerSyncRequest struct {
	Type string `json:"type" binding:"required,oneof=full products categories stock images order_status"`
	Mode string `json:"mode" binding:"omitempty,oneof=new_only update_only"`
}

// ListSyncLogsQuery filters the run history
type ListSyncLogsQuery struct {
	dto.ListRequest
	Type      string `form:"type" binding:"omitempty,oneof=full products categories stock images order_status orders"`
	Status    string `form:"status" binding:"omitempty,oneof=running success failed cancelled"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=started_at finished_at type status items_processed items_skipped"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// CancelSyncRequest carries an optional cancel reason
type CancelSyncRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Trigger queues an inbound run and answers 202 with the job id
// POST /admin/sync/trigger
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req TriggerSyncRequest
	if !h.bindJSON(c, &req) {
		return
	}
	job, err := h.queue.EnqueueInboundSync(c.Request.Context(),
		integration.SyncType(req.Type), integration.SyncMode(req.Mode), integration.SyncTriggerOperator)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, accepted(job))
}

// ListLogs returns sync runs, newest first by default
// GET /admin/sync/logs
func (h *SyncHandler) ListLogs(c *gin.Context) {
	var q ListSyncLogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	q.Normalize()

	page, err := h.logs.ListLogs(c.Request.Context(), integration.SyncLogFilter{
		Filter: shared.Filter{Page: q.Page, PageSize: q.PageSize, OrderBy: q.SortBy, OrderDir: q.SortOrder},
		Type:   integration.SyncType(q.Type),
		Status: integration.SyncLogStatus(q.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]SyncLogResponse, 0, len(page.Items))
	for _, l := range page.Items {
		items = append(items, toSyncLogResponse(l))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// GetLog returns one sync run
// GET /admin/sync/logs/:id
func (h *SyncHandler) GetLog(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	l, err := h.logs.GetLog(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncLogResponse(l))
}

// CancelLog stops a running sync between batches
// POST /admin/sync/logs/:id/cancel
func (h *SyncHandler) CancelLog(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req CancelSyncRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by " + operatorName(c)
	}
	l, err := h.logs.CancelRun(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncLogResponse(l))
}
