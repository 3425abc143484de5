package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/ordersync/internal/domain/integration"
)

// splitPair parses "key=value"
func splitPair(entry string) (string, string, error) {
	key, value, ok := strings.Cut(entry, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("mapping %q must look like key=value", entry)
	}
	return key, value, nil
}

// ToDomain parses the routing table in configured order
func (r RoutingConfig) ToDomain() (integration.RoutingConfig, error) {
	out := integration.RoutingConfig{DefaultInventoryID: strings.TrimSpace(r.DefaultInventoryID)}
	for _, entry := range r.Prefixes {
		prefix, inventoryID, err := splitPair(entry)
		if err != nil {
			return integration.RoutingConfig{}, fmt.Errorf("routing.prefixes: %w", err)
		}
		out.PrefixMappings = append(out.PrefixMappings, integration.PrefixMapping{Prefix: prefix, InventoryID: inventoryID})
	}
	for _, entry := range r.Wholesalers {
		name, inventoryID, err := splitPair(entry)
		if err != nil {
			return integration.RoutingConfig{}, fmt.Errorf("routing.wholesalers: %w", err)
		}
		out.TagMappings = append(out.TagMappings, integration.TagMapping{Wholesaler: name, InventoryID: inventoryID})
	}
	return out, nil
}

// Build parses the inbound table and builds the status mapping
func (s StatusMapConfig) Build() (*integration.StatusMapping, error) {
	inbound := make(map[int]integration.ErpStatusBucket, len(s.Inbound))
	for _, entry := range s.Inbound {
		rawID, bucket, err := splitPair(entry)
		if err != nil {
			return nil, fmt.Errorf("status.inbound: %w", err)
		}
		id, err := strconv.Atoi(rawID)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("status.inbound: %q is not a status id", rawID)
		}
		inbound[id] = integration.ErpStatusBucket(strings.ToLower(bucket))
	}
	return integration.NewStatusMapping(s.AwaitingPaymentID, s.PaidID, s.RefundedID, s.CancelledID, inbound)
}
