package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSyncJobRepository implements integration.SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GORM-based sync job queue
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Enqueue persists one or more jobs
func (r *GormSyncJobRepository) Enqueue(ctx context.Context, jobs ...*integration.SyncJob) error {
	if len(jobs) == 0 {
		return nil
	}
	rows := make([]*models.SyncJobModel, len(jobs))
	for i, j := range jobs {
		rows[i] = models.SyncJobModelFromDomain(j)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// ClaimDue locks up to limit due jobs, marks them processing and returns them.
// On postgres rows held by another claimer are skipped (FOR UPDATE SKIP LOCKED);
// sqlite serializes writers so the plain select is enough there.
func (r *GormSyncJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*integration.SyncJob, error) {
	if limit <= 0 {
		limit = 1
	}
	var jobs []*integration.SyncJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status IN ? AND next_attempt_at <= ?", []integration.SyncJobStatus{
			integration.SyncJobStatusPending,
			integration.SyncJobStatusFailed,
		}, now).
			Order("next_attempt_at ASC").
			Order("created_at ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			})
		}

		var rows []models.SyncJobModel
		if err := query.Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		if err := tx.Model(&models.SyncJobModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     integration.SyncJobStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		jobs = make([]*integration.SyncJob, len(rows))
		for i := range rows {
			job := rows[i].ToDomain()
			job.Status = integration.SyncJobStatusProcessing
			job.Attempts++
			job.UpdatedAt = now
			jobs[i] = job
		}
		return nil
	})

	return jobs, err
}

// Update writes the job state back
func (r *GormSyncJobRepository) Update(ctx context.Context, job *integration.SyncJob) error {
	job.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.SyncJobModelFromDomain(job)).Error
}

// FindByID retrieves a single job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// HasOpenJob reports whether an unfinished job of this type exists for the order
func (r *GormSyncJobRepository) HasOpenJob(ctx context.Context, jobType integration.SyncJobType, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("order_id = ? AND type = ? AND status IN ?", orderID, jobType, []integration.SyncJobStatus{
			integration.SyncJobStatusPending,
			integration.SyncJobStatusFailed,
			integration.SyncJobStatusProcessing,
		}).
		Count(&count).Error
	return count > 0, err
}

// ReleaseStale returns jobs stuck in processing since before the cutoff to pending
func (r *GormSyncJobRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("status = ? AND updated_at < ?", integration.SyncJobStatusProcessing, before).
		Updates(map[string]any{
			"status":          integration.SyncJobStatusPending,
			"next_attempt_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteFinishedBefore deletes done jobs processed before the cutoff
func (r *GormSyncJobRepository) DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", integration.SyncJobStatusDone, before).
		Delete(&models.SyncJobModel{})
	return result.RowsAffected, result.Error
}

// ListByStatus returns jobs in a status with pagination
func (r *GormSyncJobRepository) ListByStatus(ctx context.Context, status integration.SyncJobStatus, page, pageSize int) ([]*integration.SyncJob, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("status = ?", status).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var rows []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*integration.SyncJob, len(rows))
	for i := range rows {
		jobs[i] = rows[i].ToDomain()
	}
	return jobs, total, nil
}

// CountByStatus returns count of jobs for each status
func (r *GormSyncJobRepository) CountByStatus(ctx context.Context) (map[integration.SyncJobStatus]int64, error) {
	type statusCount struct {
		Status integration.SyncJobStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[integration.SyncJobStatus]int64)
	for _, c := range results {
		counts[c.Status] = c.Count
	}
	return counts, nil
}

// Ensure GormSyncJobRepository implements integration.SyncJobRepository
var _ integration.SyncJobRepository = (*GormSyncJobRepository)(nil)
