package models

import (
	"github.com/erp/ordersync/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product entity.
type ProductModel struct {
	BaseModel
	ExternalID string          `gorm:"type:varchar(50);index:idx_products_external_id"`
	SKU        string          `gorm:"column:sku;type:varchar(100);index"`
	EAN        string          `gorm:"column:ean;type:varchar(50)"`
	Name       string          `gorm:"type:varchar(300);not null"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index"`
	Price      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Tags       []string        `gorm:"serializer:json;type:text"`
	ImageURLs  []string        `gorm:"column:image_urls;serializer:json;type:text"`
	ImageKeys  []string        `gorm:"serializer:json;type:text"`
	// Associations
	Variants []ProductVariantModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity: m.BaseModel.ToDomain(),
		ExternalID: m.ExternalID,
		SKU:        m.SKU,
		EAN:        m.EAN,
		Name:       m.Name,
		CategoryID: m.CategoryID,
		Price:      m.Price,
		Tags:       m.Tags,
		ImageURLs:  m.ImageURLs,
		ImageKeys:  m.ImageKeys,
		Variants:   make([]catalog.Variant, len(m.Variants)),
	}
	for i, v := range m.Variants {
		p.Variants[i] = catalog.Variant{
			ID:         v.ID,
			ProductID:  v.ProductID,
			ExternalID: v.ExternalID,
			SKU:        v.SKU,
			Name:       v.Name,
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ExternalID = p.ExternalID
	m.SKU = p.SKU
	m.EAN = p.EAN
	m.Name = p.Name
	m.CategoryID = p.CategoryID
	m.Price = p.Price
	m.Tags = p.Tags
	m.ImageURLs = p.ImageURLs
	m.ImageKeys = p.ImageKeys
	m.Variants = make([]ProductVariantModel, len(p.Variants))
	for i, v := range p.Variants {
		m.Variants[i] = ProductVariantModel{
			ID:         v.ID,
			ProductID:  p.ID,
			ExternalID: v.ExternalID,
			SKU:        v.SKU,
			Name:       v.Name,
		}
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductVariantModel is the persistence model for a product variant.
type ProductVariantModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ExternalID string    `gorm:"type:varchar(50);index"`
	SKU        string    `gorm:"column:sku;type:varchar(100)"`
	Name       string    `gorm:"type:varchar(300)"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// CategoryModel is the persistence model for the Category entity.
type CategoryModel struct {
	BaseModel
	ExternalID       string `gorm:"type:varchar(50);not null;uniqueIndex:idx_categories_external_id"`
	Name             string `gorm:"type:varchar(200);not null"`
	ParentExternalID string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity:       m.BaseModel.ToDomain(),
		ExternalID:       m.ExternalID,
		Name:             m.Name,
		ParentExternalID: m.ParentExternalID,
	}
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ExternalID = c.ExternalID
	m.Name = c.Name
	m.ParentExternalID = c.ParentExternalID
}
