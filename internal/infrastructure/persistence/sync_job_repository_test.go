package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPushJob(t *testing.T, orderID uuid.UUID) *integration.SyncJob {
	t.Helper()
	job, err := integration.NewSyncJob(integration.JobTypePushOrder, &orderID, integration.SyncJobPayload{})
	require.NoError(t, err)
	return job
}

func TestGormSyncJobRepository_ClaimDue(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newSQLiteDB(t))
	now := time.Now()

	older := newPushJob(t, uuid.New())
	older.NextAttemptAt = now.Add(-2 * time.Minute)
	newer := newPushJob(t, uuid.New())
	newer.NextAttemptAt = now.Add(-time.Minute)
	future := newPushJob(t, uuid.New())
	future.NextAttemptAt = now.Add(time.Hour)
	require.NoError(t, repo.Enqueue(ctx, older, newer, future))

	claimed, err := repo.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, older.ID, claimed[0].ID)
	assert.Equal(t, integration.SyncJobStatusProcessing, claimed[0].Status)
	assert.Equal(t, 1, claimed[0].Attempts)

	stored, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncJobStatusProcessing, stored.Status)
	assert.Equal(t, 1, stored.Attempts)

	// claimed jobs are not handed out twice
	claimed, err = repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, newer.ID, claimed[0].ID)

	claimed, err = repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestGormSyncJobRepository_UpdateAndRetry(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newSQLiteDB(t))
	now := time.Now()

	job := newPushJob(t, uuid.New())
	job.Payload.Force = true
	require.NoError(t, repo.Enqueue(ctx, job))

	claimed, err := repo.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	claimed[0].MarkFailed("erp unavailable", true, time.Minute)
	require.NoError(t, repo.Update(ctx, claimed[0]))

	stored, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncJobStatusFailed, stored.Status)
	assert.Equal(t, "erp unavailable", stored.LastError)
	assert.True(t, stored.Payload.Force)

	// not due until the backoff elapses
	none, err := repo.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	again, err := repo.ClaimDue(ctx, now.Add(2*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 2, again[0].Attempts)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSyncJobRepository_HasOpenJob(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newSQLiteDB(t))
	orderID := uuid.New()

	open, err := repo.HasOpenJob(ctx, integration.JobTypePushOrder, orderID)
	require.NoError(t, err)
	assert.False(t, open)

	job := newPushJob(t, orderID)
	require.NoError(t, repo.Enqueue(ctx, job))

	open, err = repo.HasOpenJob(ctx, integration.JobTypePushOrder, orderID)
	require.NoError(t, err)
	assert.True(t, open)

	open, err = repo.HasOpenJob(ctx, integration.JobTypeMarkPaid, orderID)
	require.NoError(t, err)
	assert.False(t, open)

	job.MarkDone()
	require.NoError(t, repo.Update(ctx, job))
	open, err = repo.HasOpenJob(ctx, integration.JobTypePushOrder, orderID)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestGormSyncJobRepository_Maintenance(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newSQLiteDB(t))
	now := time.Now()

	stuck := newPushJob(t, uuid.New())
	require.NoError(t, repo.Enqueue(ctx, stuck))
	_, err := repo.ClaimDue(ctx, now, 1)
	require.NoError(t, err)

	finished := newPushJob(t, uuid.New())
	finished.MarkDone()
	old := now.Add(-10 * 24 * time.Hour)
	finished.ProcessedAt = &old
	dead := newPushJob(t, uuid.New())
	dead.MarkFailed("bad request", false, time.Minute)
	require.NoError(t, repo.Enqueue(ctx, finished, dead))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[integration.SyncJobStatusProcessing])
	assert.Equal(t, int64(1), counts[integration.SyncJobStatusDone])
	assert.Equal(t, int64(1), counts[integration.SyncJobStatusDead])

	released, err := repo.ReleaseStale(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	deleted, err := repo.DeleteFinishedBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	jobs, total, err := repo.ListByStatus(ctx, integration.SyncJobStatusDead, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, jobs, 1)
	assert.Equal(t, dead.ID, jobs[0].ID)

	pending, total, err := repo.ListByStatus(ctx, integration.SyncJobStatusPending, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, stuck.ID, pending[0].ID)
}
