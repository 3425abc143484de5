package persistence

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalIDs returns categories linked to the given ERP ids
func (r *GormCategoryRepository) FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*catalog.Category, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).
		Where("external_id IN ?", externalIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	categories := make([]*catalog.Category, len(rows))
	for i := range rows {
		categories[i] = rows[i].ToDomain()
	}
	return categories, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, c *catalog.Category) error {
	model := &models.CategoryModel{}
	model.FromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormCategoryRepository implements catalog.CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
