package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// JobRunner executes one claimed sync job
type JobRunner struct {
	outbound *OutboundOrderSync
	inbound  *InboundSync
}

// NewJobRunner creates a JobRunner
func NewJobRunner(outbound *OutboundOrderSync, inbound *InboundSync) *JobRunner {
	return &JobRunner{outbound: outbound, inbound: inbound}
}

// Run executes the job. A nil error means the job is done.
// Failed pushes surface as errors so the worker can decide between retry and dead.
func (r *JobRunner) Run(ctx context.Context, job *integration.SyncJob) error {
	switch job.Type {
	case integration.JobTypePushOrder:
		orderID, err := requireOrder(job)
		if err != nil {
			return err
		}
		res, err := r.outbound.SyncOrderToBaselinker(ctx, orderID, SyncOptions{
			SkipPaymentCheck: job.Payload.SkipPaymentCheck,
			Force:            job.Payload.Force,
			OrderStatusID:    job.Payload.OrderStatusID,
		})
		return resultErr(res, err)

	case integration.JobTypeMarkPaid:
		orderID, err := requireOrder(job)
		if err != nil {
			return err
		}
		return resultErr(r.outbound.MarkOrderAsPaid(ctx, orderID))

	case integration.JobTypeMarkRefunded:
		orderID, err := requireOrder(job)
		if err != nil {
			return err
		}
		return resultErr(r.outbound.MarkOrderAsRefunded(ctx, orderID, job.Payload.RefundReason))

	case integration.JobTypeSyncPendingOrders:
		_, err := r.outbound.SyncPendingOrders(ctx, job.Payload.Limit)
		return err

	case integration.JobTypeInboundSync:
		if job.Payload.SyncType == integration.SyncTypeOrders {
			_, err := r.outbound.SyncPendingOrders(ctx, job.Payload.Limit)
			return err
		}
		_, err := r.inbound.Run(ctx, job.Payload.SyncType, job.Payload.SyncMode, job.Payload.Trigger)
		if errors.Is(err, integration.ErrSyncCancelled) {
			return nil
		}
		return err

	default:
		return fmt.Errorf("%w: %s", integration.ErrInvalidJobType, job.Type)
	}
}

// IsPermanentJobError reports whether retrying cannot help.
// Unknown errors are treated as transient.
func IsPermanentJobError(err error) bool {
	if err == nil || integration.IsRetryable(err) {
		return false
	}
	for _, target := range []error{
		integration.ErrConfiguration,
		integration.ErrErpAPI,
		integration.ErrUnroutableProduct,
		integration.ErrUnmappedErpStatus,
		integration.ErrEmptyOrder,
		integration.ErrInvalidJobType,
		integration.ErrInvalidSyncType,
		integration.ErrInvalidSyncMode,
		shared.ErrNotFound,
		shared.ErrInvalidState,
		shared.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func requireOrder(job *integration.SyncJob) (uuid.UUID, error) {
	if job.OrderID == nil {
		return uuid.Nil, fmt.Errorf("%w: %s job without order", integration.ErrInvalidJobType, job.Type)
	}
	return *job.OrderID, nil
}

func resultErr(res SyncOrderResult, err error) error {
	if err != nil {
		return err
	}
	if !res.Success {
		return res.Error
	}
	return nil
}
