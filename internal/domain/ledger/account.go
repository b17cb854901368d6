package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account for statements and closing
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AllAccountTypes lists account types in statement order
var AllAccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// IsValid reports whether t is a known account type
func (t AccountType) IsValid() bool {
	for _, known := range AllAccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NormalDirection returns the side on which balances of this type grow
func (t AccountType) NormalDirection() Direction {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return DirectionDebit
	default:
		return DirectionCredit
	}
}

// IsProfitAndLoss reports whether balances of this type are closed at period end
func (t AccountType) IsProfitAndLoss() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// Direction is the normal balance side of an account
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// IsValid reports whether d is a known direction
func (d Direction) IsValid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Net returns the movement of (debit, credit) expressed in this direction's sign
func (d Direction) Net(debit, credit decimal.Decimal) decimal.Decimal {
	if d == DirectionCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// Account is one node of the chart of accounts
type Account struct {
	shared.ScopedEntity
	Code       string      `gorm:"type:varchar(32);not null;index" json:"code"`
	Name       string      `gorm:"type:varchar(128);not null" json:"name"`
	Level      int         `gorm:"not null;default:1" json:"level"`
	ParentCode string      `gorm:"type:varchar(32)" json:"parent_code,omitempty"`
	Type       AccountType `gorm:"type:varchar(16);not null" json:"type"`
	Direction  Direction   `gorm:"type:varchar(8);not null" json:"direction"`
	Enabled    bool        `gorm:"not null;default:true" json:"enabled"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "ledger_accounts"
}

// NewAccount creates an enabled account. An empty direction defaults to the
// normal direction of the account type.
func NewAccount(scope shared.Scope, code, name string, accountType AccountType, direction Direction, parent *Account) (*Account, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "account code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown account type: "+string(accountType))
	}
	if direction == "" {
		direction = accountType.NormalDirection()
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown account direction: "+string(direction))
	}

	account := &Account{
		ScopedEntity: shared.NewScopedEntity(scope),
		Code:         code,
		Name:         name,
		Level:        1,
		Type:         accountType,
		Direction:    direction,
		Enabled:      true,
	}
	if parent != nil {
		if !strings.HasPrefix(code, parent.Code) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "account code must extend its parent code "+parent.Code)
		}
		account.ParentCode = parent.Code
		account.Level = parent.Level + 1
	}
	return account, nil
}

// Disable prevents new postings to the account
func (a *Account) Disable() {
	a.Enabled = false
}

// Enable re-allows postings to the account
func (a *Account) Enable() {
	a.Enabled = true
}

// Net returns the movement of (debit, credit) in this account's sign convention
func (a *Account) Net(debit, credit decimal.Decimal) decimal.Decimal {
	return a.Direction.Net(debit, credit)
}
