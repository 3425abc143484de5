package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JobRunner executes one claimed job
type JobRunner interface {
	Run(ctx context.Context, job *integration.SyncJob) error
}

// JobRecorder receives job outcomes for metrics
type JobRecorder interface {
	RecordJob(ctx context.Context, jobType, outcome string)
}

// PermanentFunc reports whether a job error should not be retried
type PermanentFunc func(err error) bool

// Job outcomes
const (
	OutcomeDone    = "done"
	OutcomeRetry   = "retry"
	OutcomeDead    = "dead"
	OutcomeSkipped = "not_paid"
)

// SyncWorkerConfig holds worker configuration
type SyncWorkerConfig struct {
	// PollInterval is how often the queue is polled when idle
	PollInterval time.Duration
	// ClaimBatch is how many due jobs are claimed per poll; they still run one at a time
	ClaimBatch int
	// JobTimeout bounds a single job
	JobTimeout time.Duration
	// BaseBackoff is the first retry delay; later retries double it
	BaseBackoff time.Duration
	// MaxAttempts overrides the per-job attempt limit when positive
	MaxAttempts int
	// StaleAfter returns processing jobs older than this to the queue
	StaleAfter time.Duration
	// Retention is how long finished jobs are kept
	Retention time.Duration
	// HousekeepingInterval is how often stale and finished jobs are cleaned up
	HousekeepingInterval time.Duration
}

// DefaultSyncWorkerConfig returns default worker configuration
func DefaultSyncWorkerConfig() SyncWorkerConfig {
	return SyncWorkerConfig{
		PollInterval:         5 * time.Second,
		ClaimBatch:           10,
		JobTimeout:           30 * time.Minute,
		BaseBackoff:          30 * time.Second,
		StaleAfter:           time.Hour,
		Retention:            7 * 24 * time.Hour,
		HousekeepingInterval: 10 * time.Minute,
	}
}

// Validate validates the configuration
func (c SyncWorkerConfig) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.ClaimBatch <= 0 {
		return fmt.Errorf("%w: claim batch must be positive", ErrInvalidConfig)
	}
	if c.BaseBackoff <= 0 {
		return fmt.Errorf("%w: base backoff must be positive", ErrInvalidConfig)
	}
	return nil
}

// SyncWorker drains the durable sync queue with concurrency 1
type SyncWorker struct {
	config    SyncWorkerConfig
	jobs      integration.SyncJobRepository
	runner    JobRunner
	permanent PermanentFunc
	recorder  JobRecorder
	logger    *zap.Logger
	now       func() time.Time

	wake      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastClean time.Time
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	config SyncWorkerConfig,
	jobs integration.SyncJobRepository,
	runner JobRunner,
	permanent PermanentFunc,
	recorder JobRecorder,
	logger *zap.Logger,
) *SyncWorker {
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncWorker{
		config:    config,
		jobs:      jobs,
		runner:    runner,
		permanent: permanent,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Start starts the worker loop
func (w *SyncWorker) Start(ctx context.Context) error {
	if err := w.config.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("Sync worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("claim_batch", w.config.ClaimBatch),
	)
	return nil
}

// Stop stops the worker, waiting for the current job up to ctx's deadline
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Sync worker stop timed out")
		return ctx.Err()
	}
}

// Wake asks the worker to poll now instead of waiting for the next tick
func (w *SyncWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *SyncWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.housekeeping(ctx)
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.housekeeping(ctx)
		w.drain(ctx)
	}
}

// drain processes due jobs until the queue has none left
func (w *SyncWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.ProcessDue(ctx)
		if err != nil {
			w.logger.Error("Failed to claim sync jobs", zap.Error(err))
			return
		}
		if n < w.config.ClaimBatch {
			return
		}
	}
}

// ProcessDue claims one batch of due jobs and runs them sequentially.
// Returns the number of jobs claimed.
func (w *SyncWorker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := w.jobs.ClaimDue(ctx, w.now(), w.config.ClaimBatch)
	if err != nil {
		return 0, err
	}
	for i, job := range jobs {
		if ctx.Err() != nil {
			// claimed but not started; hand them back
			w.release(jobs[i:])
			return len(jobs), nil
		}
		w.process(ctx, job)
	}
	return len(jobs), nil
}

func (w *SyncWorker) process(ctx context.Context, job *integration.SyncJob) {
	log := w.logger.With(
		logger.SyncJobID(job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempts),
	)
	if job.OrderID != nil {
		log = log.With(logger.OrderID(job.OrderID.String()))
	}
	if w.config.MaxAttempts > 0 {
		job.MaxAttempts = w.config.MaxAttempts
	}

	jobCtx := logger.WithContext(ctx, log)
	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.config.JobTimeout)
		defer cancel()
	}
	jobCtx, span := telemetry.StartSpan(jobCtx, "sync.job",
		attribute.String("sync.job_id", job.ID.String()),
		attribute.String("sync.job_type", string(job.Type)),
	)

	start := w.now()
	err := w.runner.Run(jobCtx, job)
	telemetry.End(span, err)

	outcome := OutcomeDone
	switch {
	case err == nil:
		job.MarkDone()
		log.Info("Sync job done", zap.Duration("duration", w.now().Sub(start)))
	case errors.Is(err, integration.ErrOrderNotPaid):
		// retrying cannot help until a payment fact arrives and queues its own job
		job.MarkDone()
		outcome = OutcomeSkipped
		log.Info("Sync job skipped, order is not paid")
	default:
		job.MarkFailed(err.Error(), !w.permanent(err), w.config.BaseBackoff)
		if job.Status == integration.SyncJobStatusDead {
			outcome = OutcomeDead
			log.Error("Sync job dead", zap.String("error_code", integration.ErrorCode(err)), zap.Error(err))
		} else {
			outcome = OutcomeRetry
			log.Warn("Sync job failed, will retry",
				zap.Time("next_attempt_at", job.NextAttemptAt),
				zap.String("error_code", integration.ErrorCode(err)),
				zap.Error(err),
			)
		}
	}

	// the job state must be written even when shutdown cancelled the run
	if uerr := w.jobs.Update(context.WithoutCancel(ctx), job); uerr != nil {
		log.Error("Failed to update sync job", zap.Error(uerr))
	}
	if w.recorder != nil {
		w.recorder.RecordJob(ctx, string(job.Type), outcome)
	}
}

func (w *SyncWorker) release(jobs []*integration.SyncJob) {
	ctx := context.Background()
	for _, job := range jobs {
		job.Status = integration.SyncJobStatusPending
		job.Attempts--
		if err := w.jobs.Update(ctx, job); err != nil {
			w.logger.Warn("Failed to release claimed job", logger.SyncJobID(job.ID.String()), zap.Error(err))
		}
	}
}

// housekeeping recovers jobs of crashed workers and prunes finished ones
func (w *SyncWorker) housekeeping(ctx context.Context) {
	now := w.now()
	if !w.lastClean.IsZero() && now.Sub(w.lastClean) < w.config.HousekeepingInterval {
		return
	}
	w.lastClean = now

	if w.config.StaleAfter > 0 {
		n, err := w.jobs.ReleaseStale(ctx, now.Add(-w.config.StaleAfter))
		if err != nil {
			w.logger.Error("Failed to release stale sync jobs", zap.Error(err))
		} else if n > 0 {
			w.logger.Warn("Released stale sync jobs", zap.Int64("count", n))
		}
	}
	if w.config.Retention > 0 {
		n, err := w.jobs.DeleteFinishedBefore(ctx, now.Add(-w.config.Retention))
		if err != nil {
			w.logger.Error("Failed to prune finished sync jobs", zap.Error(err))
		} else if n > 0 {
			w.logger.Debug("Pruned finished sync jobs", zap.Int64("count", n))
		}
	}
}
