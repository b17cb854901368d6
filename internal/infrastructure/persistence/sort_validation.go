package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, falling back to
// fallback when the input is anything else
func ValidateSortOrder(orderDir, fallback string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return fallback
}

// ValidateSortField checks sortField against a whitelist of columns.
// Returns defaultField if the input is empty or not whitelisted.
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

// VoucherSortFields are the voucher columns a listing may be ordered by
var VoucherSortFields = map[string]bool{
	"date":         true,
	"voucher_no":   true,
	"period":       true,
	"status":       true,
	"total_debit":  true,
	"created_at":   true,
	"updated_at":   true,
	"confirmed_at": true,
}

// voucherOrder builds the ORDER BY clause of a voucher listing. voucher_no
// always breaks ties so paging is stable.
func voucherOrder(orderBy, orderDir string) string {
	field := ValidateSortField(orderBy, VoucherSortFields, "date")
	dir := ValidateSortOrder(orderDir, "ASC")
	if field == "voucher_no" {
		return "voucher_no " + dir
	}
	return field + " " + dir + ", voucher_no " + dir
}
