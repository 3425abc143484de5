package handler

import (
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// JobHandler exposes the sync job queue to operators
type JobHandler struct {
	BaseHandler
	jobs JobQueue
}

// NewJobHandler creates a JobHandler
func NewJobHandler(jobs JobQueue) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListJobsQuery filters the queue listing
type ListJobsQuery struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=pending processing done failed dead"`
}

// JobStatsResponse counts jobs per status
type JobStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// List returns queued jobs, newest first
// GET /admin/jobs
func (h *JobHandler) List(c *gin.Context) {
	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	q.Normalize()

	page, err := h.jobs.List(c.Request.Context(), integration.SyncJobStatus(q.Status), q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]SyncJobResponse, 0, len(page.Items))
	for _, j := range page.Items {
		items = append(items, toSyncJobResponse(j))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Get returns one job
// GET /admin/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncJobResponse(job))
}

// Stats returns job counts per status
// GET /admin/jobs/stats
func (h *JobHandler) Stats(c *gin.Context) {
	counts, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := JobStatsResponse{Counts: make(map[string]int64, len(counts))}
	for status, n := range counts {
		resp.Counts[string(status)] = n
		resp.Total += n
	}
	h.Success(c, resp)
}

// Retry requeues a dead job
// POST /admin/jobs/:id/retry
func (h *JobHandler) Retry(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, toSyncJobResponse(job))
}
