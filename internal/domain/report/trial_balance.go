package report

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// Warning codes reported by the trial balance. They never fail the report.
const (
	WarningTwoSidedLine    = "TWO_SIDED_LINE"
	WarningAbnormalBalance = "ABNORMAL_BALANCE"
)

// Warning is a non-fatal finding
type Warning struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	AccountCode string `json:"account_code,omitempty"`
	VoucherNo   string `json:"voucher_no,omitempty"`
	LineNo      int    `json:"line_no,omitempty"`
}

// TrialBalance checks that the period's postings and closing balances agree
type TrialBalance struct {
	Period        string                                 `json:"period"`
	Rows          []AccountBalance                       `json:"rows"`
	TotalDebit    decimal.Decimal                        `json:"total_debit"`
	TotalCredit   decimal.Decimal                        `json:"total_credit"`
	ClosingDebit  decimal.Decimal                        `json:"closing_debit"`
	ClosingCredit decimal.Decimal                        `json:"closing_credit"`
	TypeTotals    map[ledger.AccountType]decimal.Decimal `json:"type_totals"`
	Balanced      bool                                   `json:"balanced"`
	Warnings      []Warning                              `json:"warnings"`
}

// BuildTrialBalance sums the period's movements and closing balances by side.
// entries are the posted lines of the period, used only for line-level warnings.
func BuildTrialBalance(period string, rows []AccountBalance, entries []ledger.PostedEntry) TrialBalance {
	tb := TrialBalance{
		Period:        period,
		Rows:          rows,
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
		ClosingDebit:  decimal.Zero,
		ClosingCredit: decimal.Zero,
		TypeTotals:    make(map[ledger.AccountType]decimal.Decimal),
		Warnings:      []Warning{},
	}
	for _, t := range ledger.AllAccountTypes {
		tb.TypeTotals[t] = decimal.Zero
	}

	for _, row := range rows {
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		if row.Direction == ledger.DirectionDebit {
			tb.ClosingDebit = tb.ClosingDebit.Add(row.Closing)
		} else {
			tb.ClosingCredit = tb.ClosingCredit.Add(row.Closing)
		}
		tb.TypeTotals[row.Type] = tb.TypeTotals[row.Type].Add(row.signed(row.Closing))

		if row.Closing.IsNegative() {
			tb.Warnings = append(tb.Warnings, Warning{
				Code:        WarningAbnormalBalance,
				Message:     fmt.Sprintf("account %s has a balance on the side opposite its %s direction", row.Code, row.Direction),
				AccountCode: row.Code,
			})
		}
	}

	for _, e := range entries {
		if e.IsTwoSided() {
			tb.Warnings = append(tb.Warnings, Warning{
				Code:        WarningTwoSidedLine,
				Message:     fmt.Sprintf("voucher %s line %d has both debit and credit amounts", e.VoucherNo, e.LineNo),
				AccountCode: e.AccountCode,
				VoucherNo:   e.VoucherNo,
				LineNo:      e.LineNo,
			})
		}
	}

	tb.Balanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThan(ledger.BalanceTolerance) &&
		tb.ClosingDebit.Sub(tb.ClosingCredit).Abs().LessThan(ledger.BalanceTolerance)
	return tb
}
