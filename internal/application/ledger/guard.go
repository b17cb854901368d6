package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/formula"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// evaluateRules runs every enabled audit rule against the voucher. A
// satisfied rule yields its message as a warning.
func evaluateRules(ctx context.Context, repos ledger.Repositories, scope shared.Scope, v *ledger.Voucher) ([]string, error) {
	rules, err := repos.AuditRules().FindEnabled(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit rules: %w", err)
	}
	vars := formula.Vars(ledger.VoucherAggregates(v))
	var warnings []string
	for _, rule := range rules {
		hit, err := formula.Test(rule.Expression, vars)
		if err != nil {
			return nil, err
		}
		if hit {
			warnings = append(warnings, rule.Code+": "+rule.Message)
		}
	}
	return warnings, nil
}

type dimensionSpend struct {
	dimType ledger.DimensionType
	id      uuid.UUID
}

// checkBudgets compares, per dimension the voucher touches, confirmed expense
// spending of the period plus this voucher's expense debits with the ceiling.
// In block mode the first overrun fails with BUDGET_EXCEEDED; in warn mode
// overruns become warnings.
func checkBudgets(ctx context.Context, repos ledger.Repositories, scope shared.Scope, v *ledger.Voucher, mode ledger.BudgetMode) ([]string, error) {
	chart, err := loadChart(ctx, repos, scope)
	if err != nil {
		return nil, err
	}
	isExpense := func(code string) bool {
		a := chart[code]
		return a != nil && a.Type == ledger.AccountTypeExpense
	}

	spend := make(map[dimensionSpend]decimal.Decimal)
	for _, e := range v.Entries {
		if !isExpense(e.AccountCode) || e.DebitAmount.IsZero() {
			continue
		}
		for _, t := range ledger.AllDimensionTypes {
			if id := e.DimensionKey.Get(t); id != uuid.Nil {
				k := dimensionSpend{dimType: t, id: id}
				spend[k] = spend[k].Add(e.DebitAmount)
			}
		}
	}
	if len(spend) == 0 {
		return nil, nil
	}

	keys := make([]dimensionSpend, 0, len(spend))
	for k := range spend {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dimType != keys[j].dimType {
			return keys[i].dimType < keys[j].dimType
		}
		return keys[i].id.String() < keys[j].id.String()
	})

	var posted []ledger.PostedEntry
	loaded := false
	var warnings []string
	for _, k := range keys {
		dim, err := repos.Dimensions().FindByID(ctx, scope, k.id)
		if err != nil {
			return nil, fmt.Errorf("failed to load dimension: %w", err)
		}
		if dim == nil {
			continue
		}
		budget, err := repos.Budgets().Find(ctx, scope, v.Period, k.dimType, dim.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to load budget: %w", err)
		}
		if budget == nil {
			continue
		}

		if !loaded {
			posted, err = repos.Vouchers().FindPostedEntries(ctx, scope, ledger.EntryQuery{FromPeriod: v.Period, ToPeriod: v.Period})
			if err != nil {
				return nil, fmt.Errorf("failed to load posted entries: %w", err)
			}
			loaded = true
		}
		actual := decimal.Zero
		for _, e := range posted {
			if !countsTowardBudget(e) || !isExpense(e.AccountCode) || e.DimensionKey.Get(k.dimType) != k.id {
				continue
			}
			actual = actual.Add(e.DebitAmount)
		}

		total := actual.Add(spend[k])
		if !budget.Exceeded(total) {
			continue
		}
		msg := fmt.Sprintf("%s %s budget %s exceeded: %s spent in %s", k.dimType, dim.Code,
			budget.Amount.StringFixed(2), total.StringFixed(2), v.Period)
		if mode != ledger.BudgetModeWarn {
			return nil, shared.NewDomainError(shared.CodeBudgetExceeded, msg).WithDetails(map[string]any{
				"dimension_type": k.dimType,
				"dimension_code": dim.Code,
				"period":         v.Period,
				"budget":         budget.Amount.StringFixed(2),
				"actual":         total.StringFixed(2),
			})
		}
		warnings = append(warnings, msg)
	}
	return warnings, nil
}

// countsTowardBudget reports whether a posted line is spending. A voided
// voucher and its reversal cancel out, so neither counts.
func countsTowardBudget(e ledger.PostedEntry) bool {
	switch {
	case e.Source == ledger.SourceClosing || e.Source == ledger.SourceReversal:
		return false
	case e.Status == ledger.VoucherStatusVoided:
		return false
	}
	return true
}
