package ledger

import (
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceKey identifies one balance row inside a scope
type BalanceKey struct {
	AccountCode string
	Period      string
	Dims        DimensionKey
}

// Balance is the running balance of one (account, period, dimension tuple)
type Balance struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_ledger_balance_key,priority:1" json:"tenant_id"`
	OrgID          string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_ledger_balance_key,priority:2" json:"org_id"`
	AccountCode    string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_ledger_balance_key,priority:3" json:"account_code"`
	Period         string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_ledger_balance_key,priority:4" json:"period"`
	DepartmentID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_balance_key,priority:5" json:"department_id"`
	ProjectID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_balance_key,priority:6" json:"project_id"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_balance_key,priority:7" json:"customer_id"`
	SupplierID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_balance_key,priority:8" json:"supplier_id"`
	EmployeeID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_balance_key,priority:9" json:"employee_id"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"opening_balance"`
	DebitAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit_amount"`
	CreditAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_amount"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"closing_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName returns the table name for GORM
func (Balance) TableName() string {
	return "ledger_balances"
}

// NewBalance creates a balance row seeded with an opening balance
func NewBalance(scope shared.Scope, key BalanceKey, opening decimal.Decimal) *Balance {
	now := time.Now()
	return &Balance{
		ID:             uuid.New(),
		TenantID:       scope.TenantID,
		OrgID:          scope.OrgID,
		AccountCode:    key.AccountCode,
		Period:         key.Period,
		DepartmentID:   key.Dims.DepartmentID,
		ProjectID:      key.Dims.ProjectID,
		CustomerID:     key.Dims.CustomerID,
		SupplierID:     key.Dims.SupplierID,
		EmployeeID:     key.Dims.EmployeeID,
		OpeningBalance: opening,
		DebitAmount:    decimal.Zero,
		CreditAmount:   decimal.Zero,
		ClosingBalance: opening,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Dims returns the dimension tuple of the row
func (b *Balance) Dims() DimensionKey {
	return DimensionKey{
		DepartmentID: b.DepartmentID,
		ProjectID:    b.ProjectID,
		CustomerID:   b.CustomerID,
		SupplierID:   b.SupplierID,
		EmployeeID:   b.EmployeeID,
	}
}

// Key returns the row's balance key
func (b *Balance) Key() BalanceKey {
	return BalanceKey{AccountCode: b.AccountCode, Period: b.Period, Dims: b.Dims()}
}

// Apply adds a debit/credit movement and recomputes the closing balance
func (b *Balance) Apply(delta Delta, direction Direction) {
	b.DebitAmount = b.DebitAmount.Add(delta.Debit)
	b.CreditAmount = b.CreditAmount.Add(delta.Credit)
	b.recompute(direction)
}

// ShiftOpening moves the opening balance by amount; closing moves with it
func (b *Balance) ShiftOpening(amount decimal.Decimal, direction Direction) {
	b.OpeningBalance = b.OpeningBalance.Add(amount)
	b.recompute(direction)
}

func (b *Balance) recompute(direction Direction) {
	b.ClosingBalance = b.OpeningBalance.Add(direction.Net(b.DebitAmount, b.CreditAmount))
	b.UpdatedAt = time.Now()
}

// Delta is an aggregated debit/credit movement on one key
type Delta struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add accumulates another movement
func (d Delta) Add(debit, credit decimal.Decimal) Delta {
	return Delta{Debit: d.Debit.Add(debit), Credit: d.Credit.Add(credit)}
}

// Negate swaps the sides of the movement
func (d Delta) Negate() Delta {
	return Delta{Debit: d.Credit, Credit: d.Debit}
}

// KeyedDelta pairs a balance key with its aggregated movement
type KeyedDelta struct {
	Key   BalanceKey
	Delta Delta
}

// AggregateDeltas folds the voucher's lines into one movement per balance key.
// The result is ordered by account code then dimension ids, so concurrent
// postings lock rows in the same order.
func AggregateDeltas(period string, entries []VoucherEntry) []KeyedDelta {
	index := make(map[BalanceKey]int)
	var out []KeyedDelta
	for _, e := range entries {
		key := BalanceKey{AccountCode: e.AccountCode, Period: period, Dims: e.DimensionKey}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, KeyedDelta{Key: key, Delta: Delta{Debit: decimal.Zero, Credit: decimal.Zero}})
		}
		out[i].Delta = out[i].Delta.Add(e.DebitAmount, e.CreditAmount)
	}
	sort.Slice(out, func(a, b int) bool {
		return keyLess(out[a].Key, out[b].Key)
	})
	return out
}

func keyLess(a, b BalanceKey) bool {
	if a.AccountCode != b.AccountCode {
		return a.AccountCode < b.AccountCode
	}
	for _, t := range AllDimensionTypes {
		x, y := a.Dims.Get(t).String(), b.Dims.Get(t).String()
		if x != y {
			return x < y
		}
	}
	return false
}
