package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	mu      sync.Mutex
	inbound []integration.SyncType
	sweeps  []int
	err     error
}

func (d *stubDispatcher) EnqueueInboundSync(_ context.Context, syncType integration.SyncType, mode integration.SyncMode, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.inbound = append(d.inbound, syncType)
	return integration.NewSyncJob(integration.JobTypeInboundSync, nil, integration.SyncJobPayload{
		SyncType: syncType, SyncMode: mode, Trigger: trigger,
	})
}

func (d *stubDispatcher) EnqueuePendingSweep(_ context.Context, limit int, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweeps = append(d.sweeps, limit)
	return integration.NewSyncJob(integration.JobTypeSyncPendingOrders, nil, integration.SyncJobPayload{Limit: limit, Trigger: trigger})
}

type stubDetector struct {
	calls     int
	threshold time.Duration
}

func (d *stubDetector) DetectStuckRuns(_ context.Context, threshold time.Duration) (int, error) {
	d.calls++
	d.threshold = threshold
	return 0, nil
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

// ==================== Construction ====================

func TestNewCronTrigger_Validation(t *testing.T) {
	noop := func(context.Context) error { return nil }
	tests := []struct {
		name  string
		cfg   CronTriggerConfig
		tasks []Task
	}{
		{"zero check interval", CronTriggerConfig{}, nil},
		{"missing run", DefaultCronTriggerConfig(), []Task{{Name: "x", Interval: time.Minute}}},
		{"zero interval", DefaultCronTriggerConfig(), []Task{{Name: "x", Run: noop}}},
		{"bad hour", DefaultCronTriggerConfig(), []Task{{Name: "x", Daily: true, DailyHour: 24, Run: noop}}},
		{"bad minute", DefaultCronTriggerConfig(), []Task{{Name: "x", Daily: true, DailyMinute: 60, Run: noop}}},
		{"duplicate", DefaultCronTriggerConfig(), []Task{
			{Name: "x", Interval: time.Minute, Run: noop},
			{Name: "x", Interval: time.Minute, Run: noop},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCronTrigger(tt.cfg, newTestLogger(), tt.tasks...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// ==================== Tick ====================

func TestCronTrigger_Tick(t *testing.T) {
	t.Run("daily task runs once after its hour", func(t *testing.T) {
		runs := 0
		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(), Task{
			Name: "stock", Daily: true, DailyHour: 6,
			Run: func(context.Context) error { runs++; return nil },
		})
		require.NoError(t, err)
		ctx := context.Background()

		assert.Empty(t, c.Tick(ctx, at(5, 59)))
		assert.Equal(t, []string{"stock"}, c.Tick(ctx, at(6, 0)))
		assert.Empty(t, c.Tick(ctx, at(18, 0)))
		assert.Equal(t, []string{"stock"}, c.Tick(ctx, at(6, 0).AddDate(0, 0, 1)))
		assert.Equal(t, 2, runs)
	})

	t.Run("daily task catches up when started late", func(t *testing.T) {
		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(), Task{
			Name: "stock", Daily: true, DailyHour: 6,
			Run: func(context.Context) error { return nil },
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"stock"}, c.Tick(context.Background(), at(9, 30)))
	})

	t.Run("interval task waits a full interval", func(t *testing.T) {
		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(), Task{
			Name: "status", Interval: 15 * time.Minute,
			Run: func(context.Context) error { return nil },
		})
		require.NoError(t, err)
		ctx := context.Background()

		assert.Empty(t, c.Tick(ctx, at(10, 0)))
		assert.Empty(t, c.Tick(ctx, at(10, 14)))
		assert.Equal(t, []string{"status"}, c.Tick(ctx, at(10, 15)))
		assert.Empty(t, c.Tick(ctx, at(10, 20)))
	})

	t.Run("run on startup", func(t *testing.T) {
		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(), Task{
			Name: "stuck", Interval: time.Hour, RunOnStartup: true,
			Run: func(context.Context) error { return nil },
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"stuck"}, c.Tick(context.Background(), at(10, 0)))
	})

	t.Run("failing task does not block others", func(t *testing.T) {
		second := false
		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(),
			Task{Name: "a", Daily: true, Run: func(context.Context) error { return errors.New("boom") }},
			Task{Name: "b", Daily: true, Run: func(context.Context) error { second = true; return nil }},
		)
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, c.Tick(context.Background(), at(0, 1)))
		assert.True(t, second)
	})
}

func TestCronTrigger_StartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	c, err := NewCronTrigger(CronTriggerConfig{CheckInterval: 10 * time.Millisecond}, newTestLogger(), Task{
		Name: "boot", Interval: time.Hour, RunOnStartup: true,
		Run: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("startup task did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.False(t, c.IsRunning())
}

// ==================== Sync schedule ====================

func TestSyncTasks(t *testing.T) {
	cfg := SyncScheduleConfig{
		StockSyncHour:        3,
		StatusSyncInterval:   15 * time.Minute,
		PendingSweepInterval: 10 * time.Minute,
		PendingSweepLimit:    50,
		StuckRunThreshold:    2 * time.Hour,
		StuckCheckInterval:   10 * time.Minute,
		ImageSyncEnabled:     true,
	}

	t.Run("full schedule", func(t *testing.T) {
		d := &stubDispatcher{}
		det := &stubDetector{}
		tasks := SyncTasks(cfg, d, det, newTestLogger())

		names := make([]string, 0, len(tasks))
		for _, task := range tasks {
			names = append(names, task.Name)
		}
		assert.Equal(t, []string{"stock_sync", "image_sync", "order_status_sync", "pending_order_sweep", "stuck_run_detector"}, names)

		c, err := NewCronTrigger(DefaultCronTriggerConfig(), newTestLogger(), tasks...)
		require.NoError(t, err)
		ctx := context.Background()

		// first tick at 04:00: daily tasks catch up, the detector runs on startup
		assert.ElementsMatch(t, []string{"stock_sync", "image_sync", "stuck_run_detector"}, c.Tick(ctx, at(4, 0)))
		// 20 minutes later every interval task is due
		assert.ElementsMatch(t, []string{"order_status_sync", "pending_order_sweep", "stuck_run_detector"}, c.Tick(ctx, at(4, 20)))

		assert.Equal(t, []integration.SyncType{integration.SyncTypeStock, integration.SyncTypeImages, integration.SyncTypeOrderStatus}, d.inbound)
		assert.Equal(t, []int{50}, d.sweeps)
		assert.Equal(t, 2, det.calls)
		assert.Equal(t, 2*time.Hour, det.threshold)
	})

	t.Run("optional tasks are left out", func(t *testing.T) {
		minimal := cfg
		minimal.ImageSyncEnabled = false
		minimal.StatusSyncInterval = 0
		minimal.PendingSweepInterval = 0

		tasks := SyncTasks(minimal, &stubDispatcher{}, nil, nil)
		require.Len(t, tasks, 1)
		assert.Equal(t, "stock_sync", tasks[0].Name)
	})

	t.Run("enqueue error surfaces", func(t *testing.T) {
		tasks := SyncTasks(cfg, &stubDispatcher{err: errors.New("db down")}, nil, nil)
		assert.Error(t, tasks[0].Run(context.Background()))
	})
}
