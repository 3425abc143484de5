package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningLog(t *testing.T, syncType integration.SyncType) *integration.SyncLog {
	t.Helper()
	log, err := integration.NewSyncLog(syncType, integration.SyncModeAll, integration.SyncTriggerOperator)
	require.NoError(t, err)
	return log
}

func TestGormSyncLogRepository_StartRun(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(newSQLiteDB(t))

	first := newRunningLog(t, integration.SyncTypeStock)
	require.NoError(t, repo.StartRun(ctx, first))

	t.Run("second run of the same type is refused", func(t *testing.T) {
		err := repo.StartRun(ctx, newRunningLog(t, integration.SyncTypeStock))
		assert.ErrorIs(t, err, integration.ErrSyncAlreadyRunning)
	})

	t.Run("other types run concurrently", func(t *testing.T) {
		assert.NoError(t, repo.StartRun(ctx, newRunningLog(t, integration.SyncTypeCategories)))
	})

	t.Run("finished runs do not block", func(t *testing.T) {
		require.NoError(t, first.Complete())
		ok, err := repo.Finish(ctx, first)
		require.NoError(t, err)
		require.True(t, ok)

		assert.NoError(t, repo.StartRun(ctx, newRunningLog(t, integration.SyncTypeStock)))
	})
}

func TestGormSyncLogRepository_Finish(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(newSQLiteDB(t))

	log := newRunningLog(t, integration.SyncTypeProducts)
	require.NoError(t, repo.StartRun(ctx, log))

	log.RecordItem(true)
	log.RecordSkipped("p-9", "UNROUTABLE", "no inventory")
	require.NoError(t, repo.SaveProgress(ctx, log))

	stored, err := repo.FindByID(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ItemsProcessed)
	assert.Equal(t, 1, stored.ItemsSkipped)
	require.Len(t, stored.Details, 1)
	assert.Equal(t, "p-9", stored.Details[0].ItemID)
	assert.Equal(t, integration.SyncLogStatusRunning, stored.Status)

	// an operator cancels while the run is still going
	require.NoError(t, stored.Cancel("stopped by operator"))
	ok, err := repo.Finish(ctx, stored)
	require.NoError(t, err)
	require.True(t, ok)

	// the run's own completion is now a no-op
	require.NoError(t, log.Fail(errors.New("boom")))
	ok, err = repo.Finish(ctx, log)
	require.NoError(t, err)
	assert.False(t, ok)

	final, err := repo.FindByID(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncLogStatusCancelled, final.Status)
	assert.Equal(t, "stopped by operator", final.ErrorMessage)
	assert.NotNil(t, final.FinishedAt)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSyncLogRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(newSQLiteDB(t))

	base := time.Now().Add(-time.Hour)
	types := []integration.SyncType{
		integration.SyncTypeStock,
		integration.SyncTypeProducts,
		integration.SyncTypeStock,
	}
	for i, st := range types {
		log := newRunningLog(t, st)
		log.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, log.Complete())
		// completed logs are written directly; StartRun only accepts running ones
		require.NoError(t, repo.StartRun(ctx, log))
	}
	running := newRunningLog(t, integration.SyncTypeImages)
	require.NoError(t, repo.StartRun(ctx, running))

	tests := []struct {
		name      string
		filter    integration.SyncLogFilter
		wantTotal int64
		wantLen   int
	}{
		{name: "all", filter: integration.SyncLogFilter{}, wantTotal: 4, wantLen: 4},
		{name: "by type", filter: integration.SyncLogFilter{Type: integration.SyncTypeStock}, wantTotal: 2, wantLen: 2},
		{name: "by status", filter: integration.SyncLogFilter{Status: integration.SyncLogStatusRunning}, wantTotal: 1, wantLen: 1},
		{
			name:      "paged",
			filter:    integration.SyncLogFilter{Filter: shared.Filter{Page: 2, PageSize: 3}},
			wantTotal: 4,
			wantLen:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, logs, tt.wantLen)
		})
	}

	newest, _, err := repo.List(ctx, integration.SyncLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, running.ID, newest[0].ID)

	oldest, _, err := repo.List(ctx, integration.SyncLogFilter{Filter: shared.Filter{OrderBy: "started_at", OrderDir: "asc"}})
	require.NoError(t, err)
	require.Len(t, oldest, 4)
	assert.Equal(t, integration.SyncTypeStock, oldest[0].Type)
	assert.Equal(t, running.ID, oldest[3].ID)

	// unknown sort columns fall back to started_at
	fallback, _, err := repo.List(ctx, integration.SyncLogFilter{Filter: shared.Filter{OrderBy: "error_message; --"}})
	require.NoError(t, err)
	assert.Equal(t, running.ID, fallback[0].ID)

	runningLogs, err := repo.FindRunning(ctx)
	require.NoError(t, err)
	require.Len(t, runningLogs, 1)
	assert.Equal(t, integration.SyncTypeImages, runningLogs[0].Type)
}

func TestGormSyncLogRepository_LastCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncLogRepository(newSQLiteDB(t))

	cursor, err := repo.LastCursor(ctx, integration.SyncTypeOrderStatus)
	require.NoError(t, err)
	assert.Zero(t, cursor)

	finish := func(cursor int64, fail bool) {
		log := newRunningLog(t, integration.SyncTypeOrderStatus)
		require.NoError(t, repo.StartRun(ctx, log))
		log.Cursor = cursor
		if fail {
			require.NoError(t, log.Fail(errors.New("timeout")))
		} else {
			require.NoError(t, log.Complete())
		}
		ok, err := repo.Finish(ctx, log)
		require.NoError(t, err)
		require.True(t, ok)
	}
	finish(40, false)
	finish(75, false)
	finish(90, true)

	cursor, err = repo.LastCursor(ctx, integration.SyncTypeOrderStatus)
	require.NoError(t, err)
	assert.Equal(t, int64(75), cursor, "failed runs do not move the cursor")

	other, err := repo.LastCursor(ctx, integration.SyncTypeStock)
	require.NoError(t, err)
	assert.Zero(t, other)
}
