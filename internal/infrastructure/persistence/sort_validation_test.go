package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE sync_logs;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "started_at"},
		{"whitelisted field", "items_skipped", "items_skipped"},
		{"whitespace around valid field", "  status  ", "status"},
		{"unknown column returns default", "error_message", "started_at"},
		{"case sensitive", "STATUS", "started_at"},
		{"injection returns default", "status; DROP TABLE sync_logs;--", "started_at"},
		{"subquery returns default", "status, (SELECT 1)", "started_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, SyncLogSortFields, "started_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "started_at DESC", orderClause("", "", SyncLogSortFields, "started_at"))
	assert.Equal(t, "type ASC", orderClause("type", "asc", SyncLogSortFields, "started_at"))
	assert.Equal(t, "started_at DESC", orderClause("id' OR '1'='1", "asc'--", SyncLogSortFields, "started_at"))
}
