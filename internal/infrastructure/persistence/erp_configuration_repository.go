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

// GormErpConfigurationRepository implements integration.ErpConfigurationRepository using GORM
type GormErpConfigurationRepository struct {
	db *gorm.DB
}

// NewGormErpConfigurationRepository creates a new GormErpConfigurationRepository
func NewGormErpConfigurationRepository(db *gorm.DB) *GormErpConfigurationRepository {
	return &GormErpConfigurationRepository{db: db}
}

// FindActive returns the oldest enabled configuration; ties are broken by id
func (r *GormErpConfigurationRepository) FindActive(ctx context.Context) (*integration.ErpConfiguration, error) {
	var model models.ErpConfigurationModel
	err := r.db.WithContext(ctx).
		Where("sync_enabled = ?", true).
		Order("created_at ASC").
		Order("id ASC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.NewConfigurationError("erp_configuration", "no enabled ERP configuration")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID returns a configuration by id
func (r *GormErpConfigurationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ErpConfiguration, error) {
	var model models.ErpConfigurationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all configurations, oldest first
func (r *GormErpConfigurationRepository) FindAll(ctx context.Context) ([]*integration.ErpConfiguration, error) {
	var rows []models.ErpConfigurationModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	configs := make([]*integration.ErpConfiguration, len(rows))
	for i := range rows {
		configs[i] = rows[i].ToDomain()
	}
	return configs, nil
}

// Save creates or updates a configuration
func (r *GormErpConfigurationRepository) Save(ctx context.Context, cfg *integration.ErpConfiguration) error {
	model := &models.ErpConfigurationModel{}
	model.FromDomain(cfg)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormErpConfigurationRepository implements integration.ErpConfigurationRepository
var _ integration.ErpConfigurationRepository = (*GormErpConfigurationRepository)(nil)
