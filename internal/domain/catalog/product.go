package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a sellable variant of a product
type Variant struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	ExternalID string
	SKU        string
	Name       string
}

// Product is a catalog product linked to an ERP product by ExternalID
type Product struct {
	shared.BaseEntity
	// ExternalID is the ERP product id; empty for local-only products
	ExternalID string
	SKU        string
	EAN        string
	Name       string
	CategoryID *uuid.UUID
	Price      decimal.Decimal
	// Tags carry wholesaler names used for warehouse routing
	Tags     []string
	Variants []Variant
	// ImageURLs are the ERP-side image locations
	ImageURLs []string
	// ImageKeys are object storage keys of mirrored images, aligned with ImageURLs
	ImageKeys []string
}

// NewProduct creates a product
func NewProduct(externalID, sku, name string, price decimal.Decimal) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: strings.TrimSpace(externalID),
		SKU:        strings.TrimSpace(sku),
		Name:       strings.TrimSpace(name),
		Price:      price,
	}, nil
}

// Routing returns the product state the warehouse router needs
func (p *Product) Routing() integration.RoutableProduct {
	return integration.RoutableProduct{
		ID:         p.ID.String(),
		ExternalID: p.ExternalID,
		Tags:       p.Tags,
	}
}

// VariantByExternalID finds a variant by its ERP id
func (p *Product) VariantByExternalID(externalID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ExternalID == externalID {
			return &p.Variants[i]
		}
	}
	return nil
}

// Variant finds a variant by local id
func (p *Product) Variant(id uuid.UUID) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// ApplyErp copies ERP catalog data onto the product.
// Returns true if anything changed. Local variants are matched by external id and kept.
func (p *Product) ApplyErp(src integration.ErpProduct, categoryID *uuid.UUID, at time.Time) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&p.ExternalID, src.ProductID)
	set(&p.SKU, src.SKU)
	set(&p.EAN, src.EAN)
	set(&p.Name, src.Name)

	if !src.Price.IsZero() && !p.Price.Equal(src.Price) {
		p.Price = src.Price
		changed = true
	}
	if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
		id := *categoryID
		p.CategoryID = &id
		changed = true
	}
	if src.Tags != nil && !equalStrings(p.Tags, src.Tags) {
		p.Tags = append([]string(nil), src.Tags...)
		changed = true
	}
	if src.ImageURLs != nil && !equalStrings(p.ImageURLs, src.ImageURLs) {
		p.ImageURLs = append([]string(nil), src.ImageURLs...)
		p.ImageKeys = nil
		changed = true
	}
	for _, v := range src.Variants {
		if existing := p.VariantByExternalID(v.VariantID); existing != nil {
			if existing.SKU != v.SKU || existing.Name != v.Name {
				existing.SKU = v.SKU
				existing.Name = v.Name
				changed = true
			}
			continue
		}
		p.Variants = append(p.Variants, Variant{
			ID:         uuid.New(),
			ProductID:  p.ID,
			ExternalID: v.VariantID,
			SKU:        v.SKU,
			Name:       v.Name,
		})
		changed = true
	}
	if changed {
		p.UpdatedAt = at
	}
	return changed
}

// NeedsImageMirror returns true if some ERP images are not in object storage yet
func (p *Product) NeedsImageMirror() bool {
	return len(p.ImageURLs) > 0 && len(p.ImageKeys) != len(p.ImageURLs)
}

// SetImageKeys records mirrored image keys
func (p *Product) SetImageKeys(keys []string, at time.Time) {
	p.ImageKeys = append([]string(nil), keys...)
	p.UpdatedAt = at
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ProductRepository persists products and their variants
type ProductRepository interface {
	// FindByID returns a product with variants
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs returns the products that exist among ids
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)
	// FindByExternalIDs returns the products linked to the given ERP ids
	FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*Product, error)
	// FindNeedingImageMirror returns products with unmirrored images
	FindNeedingImageMirror(ctx context.Context, limit int) ([]*Product, error)
	// Save creates or updates a product and its variants
	Save(ctx context.Context, p *Product) error
}
