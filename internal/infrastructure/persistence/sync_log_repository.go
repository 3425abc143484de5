package persistence

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements integration.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// StartRun inserts a running log unless one of the same type is already running.
// On postgres a partial unique index on (type) WHERE status = 'running' closes the
// race between the check and the insert.
func (r *GormSyncLogRepository) StartRun(ctx context.Context, log *integration.SyncLog) error {
	model := &models.SyncLogModel{}
	model.FromDomain(log)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var running int64
		if err := tx.Model(&models.SyncLogModel{}).
			Where("type = ? AND status = ?", log.Type, integration.SyncLogStatusRunning).
			Count(&running).Error; err != nil {
			return err
		}
		if running > 0 {
			return integration.ErrSyncAlreadyRunning
		}
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return integration.ErrSyncAlreadyRunning
	}
	return err
}

// SaveProgress writes the counters of a log that is still running
func (r *GormSyncLogRepository) SaveProgress(ctx context.Context, log *integration.SyncLog) error {
	model := &models.SyncLogModel{}
	model.FromDomain(log)
	return r.db.WithContext(ctx).Model(&models.SyncLogModel{}).
		Where("id = ? AND status = ?", log.ID, integration.SyncLogStatusRunning).
		Select("items_processed", "items_changed", "items_skipped", "details").
		Updates(model).Error
}

// Finish writes the terminal state only if the stored row is still running
func (r *GormSyncLogRepository) Finish(ctx context.Context, log *integration.SyncLog) (bool, error) {
	model := &models.SyncLogModel{}
	model.FromDomain(log)
	result := r.db.WithContext(ctx).Model(&models.SyncLogModel{}).
		Where("id = ? AND status = ?", log.ID, integration.SyncLogStatusRunning).
		Select("status", "items_processed", "items_changed", "items_skipped", "error_message", "details", "journal_cursor", "finished_at").
		Updates(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByID returns a single log
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns logs, newest first unless the filter sorts otherwise, with the total count for paging
func (r *GormSyncLogRepository) List(ctx context.Context, filter integration.SyncLogFilter) ([]*integration.SyncLog, int64, error) {
	filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SyncLogModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, SyncLogSortFields, "started_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainSyncLogs(rows), total, nil
}

// FindRunning returns all running logs, oldest first
func (r *GormSyncLogRepository) FindRunning(ctx context.Context) ([]*integration.SyncLog, error) {
	var rows []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", integration.SyncLogStatusRunning).
		Order("started_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSyncLogs(rows), nil
}

// LastCursor returns the highest cursor recorded by a successful run of the type
func (r *GormSyncLogRepository) LastCursor(ctx context.Context, syncType integration.SyncType) (int64, error) {
	var cursor int64
	err := r.db.WithContext(ctx).Model(&models.SyncLogModel{}).
		Where("type = ? AND status = ?", syncType, integration.SyncLogStatusSuccess).
		Select("COALESCE(MAX(journal_cursor), 0)").
		Scan(&cursor).Error
	return cursor, err
}

func toDomainSyncLogs(rows []models.SyncLogModel) []*integration.SyncLog {
	logs := make([]*integration.SyncLog, len(rows))
	for i := range rows {
		logs[i] = rows[i].ToDomain()
	}
	return logs
}

// Ensure GormSyncLogRepository implements integration.SyncLogRepository
var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
