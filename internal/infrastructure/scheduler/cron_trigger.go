package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"go.uber.org/zap"
)

// SyncDispatcher queues scheduled sync work
type SyncDispatcher interface {
	EnqueueInboundSync(ctx context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncJob, error)
	EnqueuePendingSweep(ctx context.Context, limit int, trigger integration.SyncTrigger) (*integration.SyncJob, error)
}

// StuckRunDetector fails sync runs that stopped reporting progress
type StuckRunDetector interface {
	DetectStuckRuns(ctx context.Context, threshold time.Duration) (int, error)
}

// Task is one scheduled unit of work. A task either repeats every Interval
// or runs once a day at DailyHour:DailyMinute.
type Task struct {
	Name         string
	Interval     time.Duration
	Daily        bool
	DailyHour    int
	DailyMinute  int
	RunOnStartup bool
	Run          func(ctx context.Context) error
}

func (t Task) validate() error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("%w: task needs a name and a run function", ErrInvalidConfig)
	}
	if t.Daily {
		if t.DailyHour < 0 || t.DailyHour > 23 {
			return fmt.Errorf("%w: task %s: hour must be 0-23", ErrInvalidConfig, t.Name)
		}
		if t.DailyMinute < 0 || t.DailyMinute > 59 {
			return fmt.Errorf("%w: task %s: minute must be 0-59", ErrInvalidConfig, t.Name)
		}
		return nil
	}
	if t.Interval <= 0 {
		return fmt.Errorf("%w: task %s: interval must be positive", ErrInvalidConfig, t.Name)
	}
	return nil
}

// CronTriggerConfig holds cron trigger configuration
type CronTriggerConfig struct {
	// CheckInterval is how often task schedules are evaluated
	CheckInterval time.Duration
	// Location is the time zone daily tasks are evaluated in
	Location *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

type taskState struct {
	lastRun     time.Time
	lastRunDate string
}

// CronTrigger runs scheduled tasks
type CronTrigger struct {
	config CronTriggerConfig
	tasks  []Task
	logger *zap.Logger

	mu        sync.Mutex
	state     map[string]*taskState
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, logger *zap.Logger, tasks ...Task) (*CronTrigger, error) {
	if config.CheckInterval <= 0 {
		return nil, fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: duplicate task %s", ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config: config,
		tasks:  tasks,
		logger: logger,
		state:  make(map[string]*taskState, len(tasks)),
	}, nil
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("tasks", len(c.tasks)),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the trigger is running
func (c *CronTrigger) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

func (c *CronTrigger) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	c.Tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(ctx, now)
		}
	}
}

// Tick runs every task that is due at now. Returns the names of the tasks run.
func (c *CronTrigger) Tick(ctx context.Context, now time.Time) []string {
	var ran []string
	for _, task := range c.tasks {
		if ctx.Err() != nil {
			return ran
		}
		if !c.due(task, now) {
			continue
		}
		ran = append(ran, task.Name)
		if err := task.Run(ctx); err != nil {
			c.logger.Error("Scheduled task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		c.logger.Debug("Scheduled task ran", zap.String("task", task.Name))
	}
	return ran
}

// due reports whether task should run at now and records the run
func (c *CronTrigger) due(task Task, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state[task.Name]
	if !ok {
		st = &taskState{}
		c.state[task.Name] = st
	}

	if task.Daily {
		local := now.In(c.config.Location)
		today := local.Format("2006-01-02")
		if st.lastRunDate == today {
			return false
		}
		minutes := local.Hour()*60 + local.Minute()
		if minutes < task.DailyHour*60+task.DailyMinute {
			return false
		}
		st.lastRunDate = today
		return true
	}

	if st.lastRun.IsZero() {
		st.lastRun = now
		return task.RunOnStartup
	}
	if now.Sub(st.lastRun) < task.Interval {
		return false
	}
	st.lastRun = now
	return true
}

// SyncScheduleConfig selects the recurring sync work
type SyncScheduleConfig struct {
	StockSyncHour        int
	StatusSyncInterval   time.Duration
	PendingSweepInterval time.Duration
	PendingSweepLimit    int
	StuckRunThreshold    time.Duration
	StuckCheckInterval   time.Duration
	ImageSyncEnabled     bool
}

// SyncTasks builds the recurring sync schedule: daily stock (and images),
// periodic order statuses, the pending-order sweep and the stuck-run detector.
func SyncTasks(cfg SyncScheduleConfig, dispatcher SyncDispatcher, detector StuckRunDetector, logger *zap.Logger) []Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	inbound := func(t integration.SyncType) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			job, err := dispatcher.EnqueueInboundSync(ctx, t, integration.SyncModeAll, integration.SyncTriggerSchedule)
			if err != nil {
				return err
			}
			logger.Info("Scheduled sync queued", zap.String("sync_type", t.String()), zap.String("job_id", job.ID.String()))
			return nil
		}
	}

	tasks := []Task{{
		Name:      "stock_sync",
		Daily:     true,
		DailyHour: cfg.StockSyncHour,
		Run:       inbound(integration.SyncTypeStock),
	}}
	if cfg.ImageSyncEnabled {
		tasks = append(tasks, Task{
			Name:      "image_sync",
			Daily:     true,
			DailyHour: cfg.StockSyncHour,
			Run:       inbound(integration.SyncTypeImages),
		})
	}
	if cfg.StatusSyncInterval > 0 {
		tasks = append(tasks, Task{
			Name:     "order_status_sync",
			Interval: cfg.StatusSyncInterval,
			Run:      inbound(integration.SyncTypeOrderStatus),
		})
	}
	if cfg.PendingSweepInterval > 0 {
		tasks = append(tasks, Task{
			Name:     "pending_order_sweep",
			Interval: cfg.PendingSweepInterval,
			Run: func(ctx context.Context) error {
				_, err := dispatcher.EnqueuePendingSweep(ctx, cfg.PendingSweepLimit, integration.SyncTriggerSchedule)
				return err
			},
		})
	}
	if detector != nil && cfg.StuckCheckInterval > 0 && cfg.StuckRunThreshold > 0 {
		tasks = append(tasks, Task{
			Name:         "stuck_run_detector",
			Interval:     cfg.StuckCheckInterval,
			RunOnStartup: true,
			Run: func(ctx context.Context) error {
				_, err := detector.DetectStuckRuns(ctx, cfg.StuckRunThreshold)
				return err
			},
		})
	}
	return tasks
}
