package integration

import (
	"context"
	"fmt"
	"time"

	inventoryapp "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentOutcome is the result reported by the payment provider
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentRefunded  PaymentOutcome = "refunded"
)

// PaymentResult is a verified payment fact
type PaymentResult struct {
	// EventID is the provider's event id, used for deduplication
	EventID string         `json:"event_id" validate:"required,max=200"`
	OrderID uuid.UUID      `json:"order_id" validate:"required"`
	Outcome PaymentOutcome `json:"outcome" validate:"required,oneof=succeeded failed refunded"`
	Reason  string         `json:"reason" validate:"max=500"`
	// OccurredAt defaults to receipt time
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// PaymentHandleResult reports what the handler did
type PaymentHandleResult struct {
	Duplicate bool       `json:"duplicate"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
}

// PaymentEventHandler applies payment facts locally and queues the ERP follow-up.
// It never calls the ERP, so ERP failures cannot reach the payment flow.
type PaymentEventHandler struct {
	txScope     inventoryapp.TransactionScope
	idempotency shared.IdempotencyStore
	cfg         shared.IdempotencyConfig
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentEventHandler creates a PaymentEventHandler
func NewPaymentEventHandler(
	txScope inventoryapp.TransactionScope,
	idempotency shared.IdempotencyStore,
	cfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *PaymentEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &PaymentEventHandler{
		txScope:     txScope,
		idempotency: idempotency,
		cfg:         cfg,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// Handle applies one payment fact
func (h *PaymentEventHandler) Handle(ctx context.Context, in PaymentResult) (PaymentHandleResult, error) {
	if err := h.validate.Struct(in); err != nil {
		return PaymentHandleResult{}, shared.WrapDomainError("INVALID_INPUT", "Invalid payment result", err)
	}
	log := logger.WithTraceContext(ctx, h.logger).With(
		logger.OrderID(in.OrderID.String()),
		zap.String("event_id", in.EventID),
		zap.String("outcome", string(in.Outcome)),
	)

	if h.cfg.Enabled && h.idempotency != nil {
		fresh, err := h.idempotency.MarkProcessed(ctx, in.EventID, h.cfg.TTL)
		if err != nil {
			return PaymentHandleResult{}, fmt.Errorf("failed to check payment event: %w", err)
		}
		if !fresh {
			log.Info("Duplicate payment event ignored")
			return PaymentHandleResult{Duplicate: true}, nil
		}
	}

	at := h.now()
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		at = *in.OccurredAt
	}

	var job *integration.SyncJob
	err := h.txScope.Execute(ctx, func(repos inventoryapp.TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, in.OrderID)
		if err != nil {
			return err
		}

		switch in.Outcome {
		case PaymentSucceeded:
			if err := o.MarkPaid(at); err != nil {
				return err
			}
			if err := repos.OrderRepo().Save(ctx, o); err != nil {
				return err
			}
			job, err = EnqueueOrderJobIn(ctx, repos.JobRepo(), integration.JobTypeMarkPaid, o.ID, integration.SyncJobPayload{})
			return err

		case PaymentFailed:
			if err := o.MarkPaymentFailed(in.Reason, at); err != nil {
				return err
			}
			return repos.OrderRepo().Save(ctx, o)

		case PaymentRefunded:
			if o.Status != order.OrderStatusRefunded {
				effect, err := o.Refund(in.Reason, order.HistorySourcePayment, at)
				if err != nil {
					return err
				}
				if err := repos.OrderRepo().Save(ctx, o); err != nil {
					return err
				}
				if adj := o.Adjustments(effect); len(adj) > 0 {
					if err := repos.InventoryRepo().Apply(ctx, adj...); err != nil {
						return err
					}
				}
			}
			if !o.IsSynced() {
				return nil
			}
			job, err = EnqueueOrderJobIn(ctx, repos.JobRepo(), integration.JobTypeMarkRefunded, o.ID,
				integration.SyncJobPayload{RefundReason: in.Reason})
			return err
		}
		return shared.ErrInvalidInput
	})
	if err != nil {
		if h.cfg.Enabled && h.idempotency != nil {
			if ferr := h.idempotency.Forget(ctx, in.EventID); ferr != nil {
				log.Warn("Failed to release payment event for redelivery", zap.Error(ferr))
			}
		}
		log.Warn("Payment event rejected", zap.Error(err))
		return PaymentHandleResult{}, err
	}

	res := PaymentHandleResult{}
	if job != nil {
		res.JobID = &job.ID
	}
	log.Info("Payment event applied", zap.Bool("job_enqueued", job != nil))
	return res, nil
}
