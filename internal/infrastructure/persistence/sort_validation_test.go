package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{"empty string returns fallback", "", "ASC", "ASC"},
		{"ASC uppercase returns ASC", "ASC", "DESC", "ASC"},
		{"asc lowercase returns ASC", "asc", "DESC", "ASC"},
		{"desc lowercase returns DESC", "desc", "ASC", "DESC"},
		{"invalid value returns fallback", "INVALID", "DESC", "DESC"},
		{"sql injection attempt returns fallback", "ASC; DROP TABLE ledger_vouchers;--", "ASC", "ASC"},
		{"whitespace around DESC returns DESC", "  desc  ", "ASC", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input, tt.fallback))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "date"},
		{"whitelisted column", "voucher_no", "voucher_no"},
		{"whitespace around column", "  period  ", "period"},
		{"unknown column returns default", "description", "date"},
		{"case sensitive", "STATUS", "date"},
		{"sql injection attempt returns default", "date; DROP TABLE ledger_vouchers;--", "date"},
		{"quote injection returns default", "status'--", "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, VoucherSortFields, "date"))
		})
	}
}

func TestVoucherOrder(t *testing.T) {
	assert.Equal(t, "date ASC, voucher_no ASC", voucherOrder("", ""))
	assert.Equal(t, "total_debit DESC, voucher_no DESC", voucherOrder("total_debit", "desc"))
	assert.Equal(t, "voucher_no DESC", voucherOrder("voucher_no", "DESC"))
	assert.Equal(t, "date ASC, voucher_no ASC", voucherOrder("1;drop", "sideways"))
}
