package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds "field DIR" from whitelisted input only
func orderClause(sortField, orderDir string, allowedFields map[string]bool, defaultField string) string {
	return ValidateSortField(sortField, allowedFields, defaultField) + " " + ValidateSortOrder(orderDir)
}

// SyncLogSortFields are the sync_logs columns the run history may be sorted by
var SyncLogSortFields = map[string]bool{
	"started_at":      true,
	"finished_at":     true,
	"type":            true,
	"status":          true,
	"items_processed": true,
	"items_skipped":   true,
}
