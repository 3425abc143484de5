package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Job (durable work queue)
// ---------------------------------------------------------------------------

// SyncJobType identifies the work a job performs
type SyncJobType string

const (
	// Outbound, keyed by a local order
	JobTypePushOrder    SyncJobType = "push_order"
	JobTypeMarkPaid     SyncJobType = "mark_paid"
	JobTypeMarkRefunded SyncJobType = "mark_refunded"
	// Sweeps and inbound runs
	JobTypeSyncPendingOrders SyncJobType = "sync_pending_orders"
	JobTypeInboundSync       SyncJobType = "inbound_sync"
)

// IsValid returns true if the job type is valid
func (t SyncJobType) IsValid() bool {
	switch t {
	case JobTypePushOrder, JobTypeMarkPaid, JobTypeMarkRefunded,
		JobTypeSyncPendingOrders, JobTypeInboundSync:
		return true
	default:
		return false
	}
}

// RequiresOrder returns true for job types keyed by a local order
func (t SyncJobType) RequiresOrder() bool {
	switch t {
	case JobTypePushOrder, JobTypeMarkPaid, JobTypeMarkRefunded:
		return true
	default:
		return false
	}
}

// SyncJobStatus represents the status of a queued job
type SyncJobStatus string

const (
	SyncJobStatusPending    SyncJobStatus = "pending"
	SyncJobStatusProcessing SyncJobStatus = "processing"
	SyncJobStatusDone       SyncJobStatus = "done"
	SyncJobStatusFailed     SyncJobStatus = "failed"
	SyncJobStatusDead       SyncJobStatus = "dead"
)

// Default retry configuration
const (
	DefaultJobMaxAttempts = 8
	DefaultJobBaseBackoff = 30 * time.Second
	MaxJobBackoff         = time.Hour
)

// SyncJobPayload carries the parameters of a job
type SyncJobPayload struct {
	// Outbound push options
	SkipPaymentCheck bool   `json:"skip_payment_check,omitempty"`
	Force            bool   `json:"force,omitempty"`
	OrderStatusID    *int   `json:"order_status_id,omitempty"`
	RefundReason     string `json:"refund_reason,omitempty"`
	// Inbound options
	SyncType SyncType    `json:"sync_type,omitempty"`
	SyncMode SyncMode    `json:"sync_mode,omitempty"`
	Trigger  SyncTrigger `json:"trigger,omitempty"`
	// Sweep options
	Limit int `json:"limit,omitempty"`
}

// SyncJob is a durable unit of sync work
type SyncJob struct {
	ID            uuid.UUID
	Type          SyncJobType
	OrderID       *uuid.UUID
	Payload       SyncJobPayload
	Status        SyncJobStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSyncJob creates a pending job that is due immediately
func NewSyncJob(jobType SyncJobType, orderID *uuid.UUID, payload SyncJobPayload) (*SyncJob, error) {
	if !jobType.IsValid() {
		return nil, ErrInvalidJobType
	}
	if jobType.RequiresOrder() && (orderID == nil || *orderID == uuid.Nil) {
		return nil, fmt.Errorf("%w: %s requires an order id", ErrInvalidJobType, jobType)
	}
	if jobType == JobTypeInboundSync {
		if !payload.SyncType.IsValid() {
			return nil, ErrInvalidSyncType
		}
		if !payload.SyncMode.IsValid() {
			return nil, ErrInvalidSyncMode
		}
	}
	now := time.Now()
	return &SyncJob{
		ID:            uuid.New(),
		Type:          jobType,
		OrderID:       orderID,
		Payload:       payload,
		Status:        SyncJobStatusPending,
		MaxAttempts:   DefaultJobMaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkProcessing marks the job as claimed by a worker
func (j *SyncJob) MarkProcessing() error {
	if j.Status != SyncJobStatusPending && j.Status != SyncJobStatusFailed {
		return ErrJobNotPending
	}
	j.Status = SyncJobStatusProcessing
	j.Attempts++
	j.UpdatedAt = time.Now()
	return nil
}

// MarkDone marks the job as finished
func (j *SyncJob) MarkDone() {
	now := time.Now()
	j.Status = SyncJobStatusDone
	j.LastError = ""
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a failure and schedules the next attempt.
// Non-retryable failures and exhausted jobs go straight to dead.
func (j *SyncJob) MarkFailed(errMsg string, retryable bool, baseBackoff time.Duration) {
	now := time.Now()
	j.LastError = errMsg
	j.UpdatedAt = now

	if !retryable || j.Attempts >= j.MaxAttempts {
		j.Status = SyncJobStatusDead
		return
	}
	j.Status = SyncJobStatusFailed
	j.NextAttemptAt = now.Add(JobBackoff(baseBackoff, j.Attempts))
}

// JobBackoff returns base * 2^(attempt-1), capped at MaxJobBackoff
func JobBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultJobBaseBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= MaxJobBackoff {
			return MaxJobBackoff
		}
	}
	return backoff
}

// Requeue resets a dead job so the worker picks it up again
func (j *SyncJob) Requeue() error {
	if j.Status != SyncJobStatusDead {
		return ErrJobNotDead
	}
	now := time.Now()
	j.Status = SyncJobStatusPending
	j.Attempts = 0
	j.NextAttemptAt = now
	j.UpdatedAt = now
	return nil
}

// IsDue returns true if the job may be picked up at the given time
func (j *SyncJob) IsDue(now time.Time) bool {
	return (j.Status == SyncJobStatusPending || j.Status == SyncJobStatusFailed) && !j.NextAttemptAt.After(now)
}

// MarshalPayload returns the JSON form of the payload
func (j *SyncJob) MarshalPayload() ([]byte, error) {
	return json.Marshal(j.Payload)
}

// SyncJobRepository persists queued jobs
type SyncJobRepository interface {
	// Enqueue stores new jobs
	Enqueue(ctx context.Context, jobs ...*SyncJob) error
	// ClaimDue atomically moves up to limit due jobs to processing and returns them,
	// oldest first. Concurrent callers never receive the same job.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*SyncJob, error)
	// Update writes the job state back
	Update(ctx context.Context, job *SyncJob) error
	// FindByID returns a single job
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)
	// HasOpenJob reports whether a pending, failed or processing job of this type exists for the order
	HasOpenJob(ctx context.Context, jobType SyncJobType, orderID uuid.UUID) (bool, error)
	// ReleaseStale returns processing jobs older than the cutoff to pending (crash recovery)
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	// DeleteFinishedBefore removes done jobs older than the cutoff
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns count of jobs for each status
	CountByStatus(ctx context.Context) (map[SyncJobStatus]int64, error)
	// ListByStatus returns jobs in a status, most recently updated first
	ListByStatus(ctx context.Context, status SyncJobStatus, page, pageSize int) ([]*SyncJob, int64, error)
}
