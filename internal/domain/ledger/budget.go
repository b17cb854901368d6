package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BudgetMode selects what happens when a confirmation exceeds a ceiling
type BudgetMode string

const (
	BudgetModeBlock BudgetMode = "block"
	BudgetModeWarn  BudgetMode = "warn"
)

// Budget is an expense ceiling for one dimension in one period
type Budget struct {
	shared.ScopedEntity
	Period        string          `gorm:"type:varchar(7);not null;index:idx_ledger_budget_key,priority:1" json:"period"`
	DimensionType DimensionType   `gorm:"type:varchar(16);not null;index:idx_ledger_budget_key,priority:2" json:"dimension_type"`
	DimensionCode string          `gorm:"type:varchar(32);not null;index:idx_ledger_budget_key,priority:3" json:"dimension_code"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

// TableName returns the table name for GORM
func (Budget) TableName() string {
	return "ledger_budgets"
}

// NewBudget validates and creates a ceiling
func NewBudget(scope shared.Scope, period string, dimType DimensionType, dimCode string, amount decimal.Decimal) (*Budget, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	if !dimType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown dimension type: "+string(dimType))
	}
	if dimCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "dimension code cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "budget amount cannot be negative")
	}
	return &Budget{
		ScopedEntity:  shared.NewScopedEntity(scope),
		Period:        period,
		DimensionType: dimType,
		DimensionCode: dimCode,
		Amount:        amount,
	}, nil
}

// Exceeded reports whether actual spending is over the ceiling
func (b *Budget) Exceeded(actual decimal.Decimal) bool {
	return actual.GreaterThan(b.Amount)
}
