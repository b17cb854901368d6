package consolidation

import (
	"github.com/erp/ledger/internal/domain/report"
	"github.com/shopspring/decimal"
)

// Eliminate applies one elimination pair to balances in place. The eliminable
// amount is the smaller of the two sides' absolute totals on the pair's field;
// each side is reduced by it proportionally, never past zero. A side whose
// total equals the eliminable amount is zeroed exactly.
func Eliminate(balances []report.AccountBalance, pair EliminationPair) (EliminationEntry, error) {
	field := pair.Field
	if field == "" {
		field = FieldClosing
	}
	entry := EliminationEntry{
		Name:   pair.Name,
		Field:  field,
		Amount: decimal.Zero,
		Left:   []Adjustment{},
		Right:  []Adjustment{},
	}

	var left, right []int
	for i := range balances {
		inLeft := pair.Left.Matches(balances[i])
		inRight := pair.Right.Matches(balances[i])
		if inLeft && inRight {
			return entry, invalidRule("elimination " + pair.Name + " matches account " + balances[i].Code + " on both sides")
		}
		if inLeft {
			left = append(left, i)
		}
		if inRight {
			right = append(right, i)
		}
	}

	leftTotal := absTotal(balances, left, field)
	rightTotal := absTotal(balances, right, field)
	eliminable := decimal.Min(leftTotal, rightTotal)
	entry.Amount = eliminable
	if eliminable.IsZero() {
		return entry, nil
	}

	entry.Left = reduce(balances, left, field, leftTotal, eliminable)
	entry.Right = reduce(balances, right, field, rightTotal, eliminable)
	return entry, nil
}

func absTotal(balances []report.AccountBalance, idx []int, field Field) decimal.Decimal {
	total := decimal.Zero
	for _, i := range idx {
		total = total.Add(field.get(&balances[i]).Abs())
	}
	return total
}

func reduce(balances []report.AccountBalance, idx []int, field Field, total, eliminable decimal.Decimal) []Adjustment {
	adjustments := make([]Adjustment, 0, len(idx))
	exact := total.Equal(eliminable)
	remaining := eliminable

	for k, i := range idx {
		b := &balances[i]
		before := field.get(b)
		magnitude := before.Abs()

		var cut decimal.Decimal
		switch {
		case exact:
			cut = magnitude
		case k == len(idx)-1:
			cut = remaining
		default:
			cut = eliminable.Mul(magnitude).Div(total).Round(2)
		}
		cut = decimal.Min(cut, magnitude, remaining)
		if cut.IsNegative() {
			cut = decimal.Zero
		}
		remaining = remaining.Sub(cut)

		after := magnitude.Sub(cut)
		if before.IsNegative() {
			after = after.Neg()
		}
		field.set(b, after)
		adjustments = append(adjustments, Adjustment{AccountCode: b.Code, Before: before, After: after})
	}
	return adjustments
}
