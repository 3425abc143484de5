package integration

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ---------------------------------------------------------------------------
// Warehouse Router
// ---------------------------------------------------------------------------

// PrefixMapping routes products whose ERP external id starts with Prefix
type PrefixMapping struct {
	Prefix      string
	InventoryID string
}

// TagMapping routes products tagged with a known wholesaler name
type TagMapping struct {
	Wholesaler  string
	InventoryID string
}

// RoutingConfig is the static routing table
type RoutingConfig struct {
	PrefixMappings     []PrefixMapping
	TagMappings        []TagMapping
	DefaultInventoryID string
}

// RoutableProduct is the product state the router looks at
type RoutableProduct struct {
	ID         string
	ExternalID string
	Tags       []string
}

// WarehouseRouter maps a product onto one of the configured ERP inventories.
// It holds no mutable state and performs no I/O.
type WarehouseRouter struct {
	prefixes     []PrefixMapping
	wholesalers  []TagMapping
	byWholesaler map[string]string
	defaultID    string
}

var errEmptyMapping = errors.New("integration: routing mapping must have a key and an inventory id")

// NewWarehouseRouter validates the routing table and builds a router
func NewWarehouseRouter(cfg RoutingConfig) (*WarehouseRouter, error) {
	r := &WarehouseRouter{
		byWholesaler: make(map[string]string, len(cfg.TagMappings)),
		defaultID:    strings.TrimSpace(cfg.DefaultInventoryID),
	}
	for _, m := range cfg.PrefixMappings {
		if m.Prefix == "" || strings.TrimSpace(m.InventoryID) == "" {
			return nil, errEmptyMapping
		}
		r.prefixes = append(r.prefixes, PrefixMapping{Prefix: m.Prefix, InventoryID: strings.TrimSpace(m.InventoryID)})
	}
	for _, m := range cfg.TagMappings {
		name := r.normalize(m.Wholesaler)
		if name == "" || strings.TrimSpace(m.InventoryID) == "" {
			return nil, errEmptyMapping
		}
		if _, dup := r.byWholesaler[name]; dup {
			continue
		}
		r.byWholesaler[name] = strings.TrimSpace(m.InventoryID)
		r.wholesalers = append(r.wholesalers, TagMapping{Wholesaler: name, InventoryID: strings.TrimSpace(m.InventoryID)})
	}
	return r, nil
}

// ResolveInventory returns the ERP inventory id for a product.
// Precedence: external-id prefix, then the first known wholesaler tag in configured
// order, then the default inventory. No match is an UnroutableProductError.
func (r *WarehouseRouter) ResolveInventory(p RoutableProduct) (string, error) {
	for _, m := range r.prefixes {
		if p.ExternalID != "" && strings.HasPrefix(p.ExternalID, m.Prefix) {
			return m.InventoryID, nil
		}
	}

	if len(p.Tags) > 0 && len(r.wholesalers) > 0 {
		tags := make(map[string]struct{}, len(p.Tags))
		for _, t := range p.Tags {
			tags[r.normalize(t)] = struct{}{}
		}
		for _, w := range r.wholesalers {
			if _, ok := tags[w.Wholesaler]; ok {
				return w.InventoryID, nil
			}
		}
	}

	if r.defaultID != "" {
		return r.defaultID, nil
	}
	return "", &UnroutableProductError{ProductID: p.ID, ExternalID: p.ExternalID}
}

// KnownWholesalers returns the normalized wholesaler names in precedence order
func (r *WarehouseRouter) KnownWholesalers() []string {
	names := make([]string, 0, len(r.wholesalers))
	for _, w := range r.wholesalers {
		names = append(names, w.Wholesaler)
	}
	return names
}

// InventoryIDs returns every inventory the router can resolve to, without duplicates
func (r *WarehouseRouter) InventoryIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, m := range r.prefixes {
		add(m.InventoryID)
	}
	for _, w := range r.wholesalers {
		add(w.InventoryID)
	}
	add(r.defaultID)
	return ids
}

// WithDefault returns a copy of the router that falls back to inventoryID
// when the static table has no default of its own
func (r *WarehouseRouter) WithDefault(inventoryID string) *WarehouseRouter {
	if r.defaultID != "" || strings.TrimSpace(inventoryID) == "" {
		return r
	}
	cp := *r
	cp.defaultID = strings.TrimSpace(inventoryID)
	return &cp
}

// normalize case-folds a wholesaler name. Casers are stateful, so one is built per call.
func (r *WarehouseRouter) normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
