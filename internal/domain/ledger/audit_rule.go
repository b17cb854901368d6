package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AuditRule is a boolean expression over voucher aggregates. A satisfied rule
// produces its message as a warning.
type AuditRule struct {
	shared.ScopedEntity
	Code        string `gorm:"type:varchar(32);not null;index" json:"code"`
	Description string `gorm:"type:text" json:"description"`
	Expression  string `gorm:"type:text;not null" json:"expression"`
	Message     string `gorm:"type:text;not null" json:"message"`
	Enabled     bool   `gorm:"not null;default:true" json:"enabled"`
}

// TableName returns the table name for GORM
func (AuditRule) TableName() string {
	return "ledger_audit_rules"
}

// NewAuditRule creates an enabled rule. The expression is checked by the caller's parser.
func NewAuditRule(scope shared.Scope, code, description, expression, message string) (*AuditRule, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "rule code cannot be empty")
	}
	if strings.TrimSpace(expression) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidFormula, "rule expression cannot be empty")
	}
	if message == "" {
		message = description
	}
	return &AuditRule{
		ScopedEntity: shared.NewScopedEntity(scope),
		Code:         code,
		Description:  description,
		Expression:   expression,
		Message:      message,
		Enabled:      true,
	}, nil
}

// VoucherAggregates returns the identifiers an audit rule can reference
func VoucherAggregates(v *Voucher) map[string]decimal.Decimal {
	accounts := make(map[string]struct{})
	for _, e := range v.Entries {
		accounts[e.AccountCode] = struct{}{}
	}
	isAdjustment := decimal.Zero
	if v.EntryType == EntryTypeAdjustment {
		isAdjustment = decimal.NewFromInt(1)
	}
	return map[string]decimal.Decimal{
		"total_debit":        v.TotalDebit,
		"total_credit":       v.TotalCredit,
		"line_count":         decimal.NewFromInt(int64(len(v.Entries))),
		"max_line_amount":    v.MaxLineAmount(),
		"foreign_line_count": decimal.NewFromInt(int64(v.ForeignLineCount())),
		"distinct_accounts":  decimal.NewFromInt(int64(len(accounts))),
		"is_adjustment":      isAdjustment,
	}
}
