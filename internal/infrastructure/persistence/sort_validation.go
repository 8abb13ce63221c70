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
// Sort fields end up interpolated into ORDER BY clauses, so anything outside the
// whitelist is rejected.
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

// TransferSortFields contains allowed sort fields for transfer listings
var TransferSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"transfer_number": true,
	"status":          true,
	"type":            true,
	"priority":        true,
	"estimated_cost":  true,
	"shipped_at":      true,
	"received_at":     true,
}
