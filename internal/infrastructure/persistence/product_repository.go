package persistence

import (
	"context"
	"errors"

	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product with its variants
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Preload("Variants").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the products that exist among ids
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindByExternalIDs returns the products linked to the given ERP ids
func (r *GormProductRepository) FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*catalog.Product, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).Where("external_id IN ?", externalIDs))
}

// FindNeedingImageMirror returns products whose ERP images are not all mirrored.
// The image key comparison happens in Go because the lists are JSON text.
func (r *GormProductRepository) FindNeedingImageMirror(ctx context.Context, limit int) ([]*catalog.Product, error) {
	var (
		result []*catalog.Product
		offset int
	)
	const batch = 200
	for limit <= 0 || len(result) < limit {
		products, err := r.find(r.db.WithContext(ctx).
			Where("image_urls IS NOT NULL AND image_urls NOT IN ?", []string{"", "null", "[]"}).
			Order("id").
			Offset(offset).
			Limit(batch))
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if p.NeedsImageMirror() {
				result = append(result, p)
				if limit > 0 && len(result) == limit {
					return result, nil
				}
			}
		}
		if len(products) < batch {
			break
		}
		offset += batch
	}
	return result, nil
}

// Save creates or updates a product and upserts its variants
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	model := models.ProductModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if len(model.Variants) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"external_id", "sku", "name"}),
		}).Create(&model.Variants).Error
	})
}

func (r *GormProductRepository) find(query *gorm.DB) ([]*catalog.Product, error) {
	var rows []models.ProductModel
	if err := query.Preload("Variants").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]*catalog.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].ToDomain()
	}
	return products, nil
}

// Ensure GormProductRepository implements catalog.ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
