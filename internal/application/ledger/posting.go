package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// applyBalances folds entries into one delta per balance key, then writes
// each key once. A missing row is seeded from the closing balance of the
// nearest earlier period. Rows of later open periods shift by the same net
// amount so every opening keeps matching the previous closing.
//
// The roll-forward stops at the first closed period after period. Rows from
// there on stay frozen, and the returned period names where it stopped so
// the caller can carry the movement into the next open period. An empty
// result means nothing was frozen.
func applyBalances(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string, entries []ledger.VoucherEntry) (string, error) {
	deltas := ledger.AggregateDeltas(period, entries)
	directions := make(map[string]ledger.Direction)
	balances := repos.Balances()

	frozen, err := firstClosedAfter(ctx, repos, scope, period)
	if err != nil {
		return "", err
	}
	stopped := false

	for _, kd := range deltas {
		direction, ok := directions[kd.Key.AccountCode]
		if !ok {
			account, err := repos.Accounts().FindByCode(ctx, scope, kd.Key.AccountCode)
			if err != nil {
				return "", fmt.Errorf("failed to load account %s: %w", kd.Key.AccountCode, err)
			}
			if account == nil {
				return "", shared.NewDomainError(shared.CodeAccountNotFound, "account not found: "+kd.Key.AccountCode)
			}
			direction = account.Direction
			directions[kd.Key.AccountCode] = direction
		}

		row, err := balances.FindForUpdate(ctx, scope, kd.Key)
		if err != nil {
			return "", fmt.Errorf("failed to lock balance %s %s: %w", kd.Key.AccountCode, period, err)
		}
		if row == nil {
			opening := decimal.Zero
			prev, err := balances.FindLatestBefore(ctx, scope, kd.Key)
			if err != nil {
				return "", fmt.Errorf("failed to load prior balance %s: %w", kd.Key.AccountCode, err)
			}
			if prev != nil {
				opening = prev.ClosingBalance
			}
			row = ledger.NewBalance(scope, kd.Key, opening)
		}
		row.Apply(kd.Delta, direction)
		if err := balances.Save(ctx, row); err != nil {
			return "", fmt.Errorf("failed to save balance %s %s: %w", kd.Key.AccountCode, period, err)
		}

		net := direction.Net(kd.Delta.Debit, kd.Delta.Credit)
		if net.IsZero() {
			continue
		}
		later, err := balances.FindLater(ctx, scope, kd.Key)
		if err != nil {
			return "", fmt.Errorf("failed to load later balances %s: %w", kd.Key.AccountCode, err)
		}
		last := row
		hasFrozenRow := false
		for i := range later {
			if frozen != "" && later[i].Period >= frozen {
				hasFrozenRow = later[i].Period == frozen
				break
			}
			later[i].ShiftOpening(net, direction)
			if err := balances.Save(ctx, &later[i]); err != nil {
				return "", fmt.Errorf("failed to roll balance %s %s forward: %w", later[i].AccountCode, later[i].Period, err)
			}
			last = &later[i]
		}
		if frozen == "" {
			continue
		}
		stopped = true
		if !hasFrozenRow {
			// pin the closed period to what it saw before this posting
			key := kd.Key
			key.Period = frozen
			pinned := ledger.NewBalance(scope, key, last.ClosingBalance.Sub(net))
			if err := balances.Save(ctx, pinned); err != nil {
				return "", fmt.Errorf("failed to pin balance %s %s: %w", key.AccountCode, frozen, err)
			}
		}
	}
	if !stopped {
		return "", nil
	}
	return frozen, nil
}

// firstClosedAfter returns the earliest closed period after period, or "" if there is none
func firstClosedAfter(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) (string, error) {
	all, err := repos.Periods().FindAll(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("failed to load periods: %w", err)
	}
	first := ""
	for _, p := range all {
		if !p.IsClosed() || p.Period <= period {
			continue
		}
		if first == "" || p.Period < first {
			first = p.Period
		}
	}
	return first, nil
}

// nextOpenPeriod returns the first period after period that is not closed
func nextOpenPeriod(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) (string, error) {
	closed := make(map[string]bool)
	all, err := repos.Periods().FindAll(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("failed to load periods: %w", err)
	}
	for _, p := range all {
		if p.IsClosed() {
			closed[p.Period] = true
		}
	}
	next := ledger.NextPeriod(period)
	for closed[next] {
		next = ledger.NextPeriod(next)
	}
	return next, nil
}
