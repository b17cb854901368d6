// Package report turns account balances into statement totals, trial balances
// and template-driven reports.
package report

import (
	"sort"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Line is the statement line an account rolls up into
type Line string

const (
	LineCash                Line = "cash"
	LineCurrentAsset        Line = "current_asset"
	LineNonCurrentAsset     Line = "non_current_asset"
	LineCurrentLiability    Line = "current_liability"
	LineNonCurrentLiability Line = "non_current_liability"
	LineEquity              Line = "equity"
	LineRevenue             Line = "revenue"
	LineCost                Line = "cost"
	LineExpense             Line = "expense"
)

var (
	cashPrefixes                = []string{"1001", "1002", "1012"}
	nonCurrentAssetPrefixes     = []string{"15", "16", "17", "18"}
	nonCurrentLiabilityPrefixes = []string{"25", "26", "27", "28"}
	costPrefixes                = []string{"5", "6401", "6402"}
)

func hasAnyPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Classify maps an account to its statement line by type and code prefix
func Classify(code string, accountType ledger.AccountType) Line {
	switch accountType {
	case ledger.AccountTypeAsset:
		switch {
		case hasAnyPrefix(code, cashPrefixes):
			return LineCash
		case hasAnyPrefix(code, nonCurrentAssetPrefixes):
			return LineNonCurrentAsset
		}
		return LineCurrentAsset
	case ledger.AccountTypeLiability:
		if hasAnyPrefix(code, nonCurrentLiabilityPrefixes) {
			return LineNonCurrentLiability
		}
		return LineCurrentLiability
	case ledger.AccountTypeEquity:
		return LineEquity
	case ledger.AccountTypeRevenue:
		return LineRevenue
	default:
		if hasAnyPrefix(code, costPrefixes) {
			return LineCost
		}
		return LineExpense
	}
}

// AccountBalance is one account's balance summed over every dimension tuple
type AccountBalance struct {
	Code      string             `json:"account_code"`
	Name      string             `json:"name,omitempty"`
	Type      ledger.AccountType `json:"type"`
	Direction ledger.Direction   `json:"direction"`
	Opening   decimal.Decimal    `json:"opening_balance"`
	Debit     decimal.Decimal    `json:"debit_amount"`
	Credit    decimal.Decimal    `json:"credit_amount"`
	Closing   decimal.Decimal    `json:"closing_balance"`
}

// Line returns the statement line of the account
func (b AccountBalance) Line() Line {
	return Classify(b.Code, b.Type)
}

// signed converts an amount in the account's direction into the normal sign of
// its type, so contra accounts reduce their line.
func (b AccountBalance) signed(amount decimal.Decimal) decimal.Decimal {
	if b.Direction != b.Type.NormalDirection() {
		return amount.Neg()
	}
	return amount
}

// Aggregate sums per-dimension balance rows into one row per account code.
// Every account code must be present in chart.
func Aggregate(rows []ledger.Balance, chart map[string]*ledger.Account) ([]AccountBalance, error) {
	byCode := make(map[string]*AccountBalance)
	for i := range rows {
		row := &rows[i]
		ab, ok := byCode[row.AccountCode]
		if !ok {
			account := chart[row.AccountCode]
			if account == nil {
				return nil, shared.NewDomainError(shared.CodeAccountNotFound, "account not found: "+row.AccountCode)
			}
			ab = &AccountBalance{
				Code:      account.Code,
				Name:      account.Name,
				Type:      account.Type,
				Direction: account.Direction,
				Opening:   decimal.Zero,
				Debit:     decimal.Zero,
				Credit:    decimal.Zero,
				Closing:   decimal.Zero,
			}
			byCode[row.AccountCode] = ab
		}
		ab.Opening = ab.Opening.Add(row.OpeningBalance)
		ab.Debit = ab.Debit.Add(row.DebitAmount)
		ab.Credit = ab.Credit.Add(row.CreditAmount)
		ab.Closing = ab.Closing.Add(row.ClosingBalance)
	}

	out := make([]AccountBalance, 0, len(byCode))
	for _, ab := range byCode {
		out = append(out, *ab)
	}
	SortByCode(out)
	return out, nil
}

// SortByCode orders balances by account code
func SortByCode(balances []AccountBalance) {
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Code < balances[j].Code
	})
}
