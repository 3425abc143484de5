package integration

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobDispatcher puts work on the durable sync queue. Request handlers and
// payment facts only ever enqueue; the worker does the ERP calls.
type JobDispatcher struct {
	jobs   integration.SyncJobRepository
	logger *zap.Logger
}

// NewJobDispatcher creates a JobDispatcher
func NewJobDispatcher(jobs integration.SyncJobRepository, logger *zap.Logger) *JobDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobDispatcher{jobs: jobs, logger: logger}
}

// Enqueue stores a job
func (d *JobDispatcher) Enqueue(ctx context.Context, job *integration.SyncJob) error {
	if err := d.jobs.Enqueue(ctx, job); err != nil {
		return err
	}
	d.logger.Debug("Sync job enqueued", logger.SyncJobID(job.ID.String()), zap.String("job_type", string(job.Type)))
	return nil
}

// EnqueueInboundSync queues an inbound run of the given type
func (d *JobDispatcher) EnqueueInboundSync(ctx context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	job, err := integration.NewSyncJob(integration.JobTypeInboundSync, nil, integration.SyncJobPayload{
		SyncType: syncType,
		SyncMode: mode,
		Trigger:  trigger,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueuePendingSweep queues a pending-order reconciliation sweep
func (d *JobDispatcher) EnqueuePendingSweep(ctx context.Context, limit int, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	job, err := integration.NewSyncJob(integration.JobTypeSyncPendingOrders, nil, integration.SyncJobPayload{
		Limit:   limit,
		Trigger: trigger,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueueOrderJob queues an order job unless one of the same type is still open.
// Returns nil, nil when an open job already covers the order.
func (d *JobDispatcher) EnqueueOrderJob(ctx context.Context, jobType integration.SyncJobType, orderID uuid.UUID, payload integration.SyncJobPayload) (*integration.SyncJob, error) {
	return EnqueueOrderJobIn(ctx, d.jobs, jobType, orderID, payload)
}

// EnqueueOrderJobIn is EnqueueOrderJob against a given repository, so callers can enqueue
// inside the transaction that made the order change.
func EnqueueOrderJobIn(ctx context.Context, jobs integration.SyncJobRepository, jobType integration.SyncJobType, orderID uuid.UUID, payload integration.SyncJobPayload) (*integration.SyncJob, error) {
	open, err := jobs.HasOpenJob(ctx, jobType, orderID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, nil
	}
	job, err := integration.NewSyncJob(jobType, &orderID, payload)
	if err != nil {
		return nil, err
	}
	if err := jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns a job
func (d *JobDispatcher) Get(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	return d.jobs.FindByID(ctx, id)
}

// List returns jobs in a status, newest first
func (d *JobDispatcher) List(ctx context.Context, status integration.SyncJobStatus, page, pageSize int) (shared.Paginated[*integration.SyncJob], error) {
	f := shared.Filter{Page: page, PageSize: pageSize}
	f.Normalize()
	jobs, total, err := d.jobs.ListByStatus(ctx, status, f.Page, f.PageSize)
	if err != nil {
		return shared.Paginated[*integration.SyncJob]{}, err
	}
	return shared.NewPaginated(jobs, total, f.Page, f.PageSize), nil
}

// Stats returns job counts per status
func (d *JobDispatcher) Stats(ctx context.Context) (map[integration.SyncJobStatus]int64, error) {
	return d.jobs.CountByStatus(ctx)
}

// Retry requeues a dead job
func (d *JobDispatcher) Retry(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	job, err := d.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Requeue(); err != nil {
		return nil, err
	}
	if err := d.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	d.logger.Info("Dead sync job requeued", logger.SyncJobID(id.String()), zap.String("job_type", string(job.Type)))
	return job, nil
}
