package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
)

// Category is a catalog category mirrored from the ERP
type Category struct {
	shared.BaseEntity
	ExternalID       string
	Name             string
	ParentExternalID string
}

// NewCategory creates a category linked to an ERP category
func NewCategory(externalID, name, parentExternalID string) (*Category, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Category external ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	}
	return &Category{
		BaseEntity:       shared.NewBaseEntity(),
		ExternalID:       strings.TrimSpace(externalID),
		Name:             strings.TrimSpace(name),
		ParentExternalID: normalizeParent(parentExternalID),
	}, nil
}

// Rename updates name and parent; returns true if anything changed
func (c *Category) Rename(name, parentExternalID string, at time.Time) bool {
	name = strings.TrimSpace(name)
	parent := normalizeParent(parentExternalID)
	if name == "" || (name == c.Name && parent == c.ParentExternalID) {
		return false
	}
	c.Name = name
	c.ParentExternalID = parent
	c.UpdatedAt = at
	return true
}

// ERP root categories report parent "0"
func normalizeParent(id string) string {
	id = strings.TrimSpace(id)
	if id == "0" {
		return ""
	}
	return id
}

// CategoryRepository persists categories
type CategoryRepository interface {
	// FindByExternalIDs returns categories linked to the given ERP ids
	FindByExternalIDs(ctx context.Context, externalIDs []string) ([]*Category, error)
	// FindByID returns a single category
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	// Save creates or updates a category
	Save(ctx context.Context, c *Category) error
}
