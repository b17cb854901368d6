package report

import (
	"github.com/erp/ledger/internal/domain/formula"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// snapshot holds line sums at one point in time
type snapshot struct {
	cash, currentAssets, nonCurrentAssets     decimal.Decimal
	currentLiabilities, nonCurrentLiabilities decimal.Decimal
	equity, revenue, cost, expense            decimal.Decimal
}

func (s snapshot) assets() decimal.Decimal {
	return s.cash.Add(s.currentAssets).Add(s.nonCurrentAssets)
}

func (s snapshot) liabilities() decimal.Decimal {
	return s.currentLiabilities.Add(s.nonCurrentLiabilities)
}

func (s snapshot) netIncome() decimal.Decimal {
	return s.revenue.Sub(s.cost).Sub(s.expense)
}

// plug is the balance-sheet residual booked to fx_translation. Residuals below
// the balance tolerance are left in place.
func (s snapshot) plug() decimal.Decimal {
	residual := s.assets().Sub(s.liabilities()).Sub(s.equity).Sub(s.netIncome())
	if residual.Abs().LessThan(ledger.BalanceTolerance) {
		return decimal.Zero
	}
	return residual
}

func takeSnapshot(balances []AccountBalance, pick func(AccountBalance) decimal.Decimal) snapshot {
	s := snapshot{
		cash: decimal.Zero, currentAssets: decimal.Zero, nonCurrentAssets: decimal.Zero,
		currentLiabilities: decimal.Zero, nonCurrentLiabilities: decimal.Zero,
		equity: decimal.Zero, revenue: decimal.Zero, cost: decimal.Zero, expense: decimal.Zero,
	}
	for _, b := range balances {
		v := b.signed(pick(b))
		switch b.Line() {
		case LineCash:
			s.cash = s.cash.Add(v)
		case LineCurrentAsset:
			s.currentAssets = s.currentAssets.Add(v)
		case LineNonCurrentAsset:
			s.nonCurrentAssets = s.nonCurrentAssets.Add(v)
		case LineCurrentLiability:
			s.currentLiabilities = s.currentLiabilities.Add(v)
		case LineNonCurrentLiability:
			s.nonCurrentLiabilities = s.nonCurrentLiabilities.Add(v)
		case LineEquity:
			s.equity = s.equity.Add(v)
		case LineRevenue:
			s.revenue = s.revenue.Add(v)
		case LineCost:
			s.cost = s.cost.Add(v)
		case LineExpense:
			s.expense = s.expense.Add(v)
		}
	}
	return s
}

// Totals are the statement figures derived from a set of account balances
type Totals struct {
	Assets            decimal.Decimal `json:"assets"`
	Liabilities       decimal.Decimal `json:"liabilities"`
	Equity            decimal.Decimal `json:"equity"`
	Revenue           decimal.Decimal `json:"revenue"`
	Cost              decimal.Decimal `json:"cost"`
	Expense           decimal.Decimal `json:"expense"`
	NetIncome         decimal.Decimal `json:"net_income"`
	OpeningCash       decimal.Decimal `json:"opening_cash"`
	ClosingCash       decimal.Decimal `json:"closing_cash"`
	OperatingCashFlow decimal.Decimal `json:"operating_cash_flow"`
	InvestingCashFlow decimal.Decimal `json:"investing_cash_flow"`
	FinancingCashFlow decimal.Decimal `json:"financing_cash_flow"`
	FxTranslation     decimal.Decimal `json:"fx_translation"`
	IsBalanced        bool            `json:"is_balanced"`
}

// ComputeTotals derives statement totals from closing balances and cash flows
// from the movement between opening and closing. Equity includes cumulative
// net income and the fx_translation plug.
func ComputeTotals(balances []AccountBalance) Totals {
	open := takeSnapshot(balances, func(b AccountBalance) decimal.Decimal { return b.Opening })
	closing := takeSnapshot(balances, func(b AccountBalance) decimal.Decimal { return b.Closing })

	openPlug := open.plug()
	closePlug := closing.plug()

	t := Totals{
		Assets:        closing.assets(),
		Liabilities:   closing.liabilities(),
		Equity:        closing.equity.Add(closing.netIncome()).Add(closePlug),
		Revenue:       closing.revenue,
		Cost:          closing.cost,
		Expense:       closing.expense,
		NetIncome:     closing.netIncome(),
		OpeningCash:   open.cash,
		ClosingCash:   closing.cash,
		FxTranslation: closePlug,
	}

	t.OperatingCashFlow = closing.netIncome().Sub(open.netIncome()).
		Sub(closing.currentAssets.Sub(open.currentAssets)).
		Add(closing.currentLiabilities.Sub(open.currentLiabilities))
	t.InvestingCashFlow = closing.nonCurrentAssets.Sub(open.nonCurrentAssets).Neg()
	t.FinancingCashFlow = closing.nonCurrentLiabilities.Sub(open.nonCurrentLiabilities).
		Add(closing.equity.Sub(open.equity)).
		Add(closePlug.Sub(openPlug))

	bsGap := t.Assets.Sub(t.Liabilities).Sub(t.Equity).Abs()
	cashGap := t.OpeningCash.Add(t.OperatingCashFlow).Add(t.InvestingCashFlow).Add(t.FinancingCashFlow).
		Sub(t.ClosingCash).Abs()
	t.IsBalanced = bsGap.LessThan(ledger.BalanceTolerance) && cashGap.LessThan(ledger.BalanceTolerance)
	return t
}

// Vars exposes the totals as formula identifiers
func (t Totals) Vars() formula.Vars {
	return formula.Vars{
		"assets":              t.Assets,
		"total_assets":        t.Assets,
		"liabilities":         t.Liabilities,
		"total_liabilities":   t.Liabilities,
		"equity":              t.Equity,
		"total_equity":        t.Equity,
		"revenue":             t.Revenue,
		"cost":                t.Cost,
		"expense":             t.Expense,
		"net_income":          t.NetIncome,
		"opening_cash":        t.OpeningCash,
		"closing_cash":        t.ClosingCash,
		"operating_cash_flow": t.OperatingCashFlow,
		"investing_cash_flow": t.InvestingCashFlow,
		"financing_cash_flow": t.FinancingCashFlow,
		"fx_translation":      t.FxTranslation,
	}
}

// Context builds the identifier set for templates: totals plus acct_<code>
// closing balances.
func Context(totals Totals, balances []AccountBalance) formula.Vars {
	vars := totals.Vars()
	for _, b := range balances {
		vars["acct_"+b.Code] = b.Closing
	}
	return vars
}
