package ledger

import (
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance_Apply(t *testing.T) {
	scope := shared.NewScope("", "")
	key := BalanceKey{AccountCode: "1001", Period: "2025-01"}

	t.Run("debit direction", func(t *testing.T) {
		b := NewBalance(scope, key, decimal.NewFromInt(100))
		b.Apply(Delta{Debit: decimal.NewFromInt(50), Credit: decimal.NewFromInt(20)}, DirectionDebit)
		assert.True(t, b.ClosingBalance.Equal(decimal.NewFromInt(130)))
	})

	t.Run("credit direction", func(t *testing.T) {
		b := NewBalance(scope, key, decimal.NewFromInt(100))
		b.Apply(Delta{Debit: decimal.NewFromInt(50), Credit: decimal.NewFromInt(20)}, DirectionCredit)
		assert.True(t, b.ClosingBalance.Equal(decimal.NewFromInt(70)))
	})

	t.Run("shift opening moves closing by the same amount", func(t *testing.T) {
		b := NewBalance(scope, key, decimal.Zero)
		b.Apply(Delta{Debit: decimal.NewFromInt(10), Credit: decimal.Zero}, DirectionDebit)
		b.ShiftOpening(decimal.NewFromInt(5), DirectionDebit)
		assert.True(t, b.OpeningBalance.Equal(decimal.NewFromInt(5)))
		assert.True(t, b.ClosingBalance.Equal(decimal.NewFromInt(15)))
	})

	t.Run("key round trips dimension tuple", func(t *testing.T) {
		dims := DimensionKey{ProjectID: uuid.New()}
		b := NewBalance(scope, BalanceKey{AccountCode: "6601", Period: "2025-02", Dims: dims}, decimal.Zero)
		assert.Equal(t, dims, b.Dims())
		assert.Equal(t, "6601", b.Key().AccountCode)
	})
}

func TestAggregateDeltas(t *testing.T) {
	dept := uuid.New()
	withDept := func(e VoucherEntry) VoucherEntry {
		e.DepartmentID = dept
		return e
	}
	entries := []VoucherEntry{
		line("6601", 30, 0),
		withDept(line("6601", 20, 0)),
		line("6601", 45, 0),
		line("1001", 0, 95),
		line("1001", 5, 5),
	}

	deltas := AggregateDeltas("2025-03", entries)
	require.Len(t, deltas, 3)

	assert.Equal(t, "1001", deltas[0].Key.AccountCode)
	assert.True(t, deltas[0].Delta.Debit.Equal(decimal.NewFromInt(5)))
	assert.True(t, deltas[0].Delta.Credit.Equal(decimal.NewFromInt(100)))

	var undimensioned, dimensioned KeyedDelta
	for _, d := range deltas[1:] {
		if d.Key.Dims.IsEmpty() {
			undimensioned = d
		} else {
			dimensioned = d
		}
	}
	assert.True(t, undimensioned.Delta.Debit.Equal(decimal.NewFromInt(75)))
	assert.True(t, dimensioned.Delta.Debit.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "2025-03", dimensioned.Key.Period)
}

func TestPeriod(t *testing.T) {
	scope := shared.NewScope("", "")

	t.Run("period helpers", func(t *testing.T) {
		assert.Equal(t, "2025-02", NextPeriod("2025-01"))
		assert.Equal(t, "2026-01", NextPeriod("2025-12"))
		assert.Equal(t, 31, PeriodEnd("2025-01").Day())
		assert.Equal(t, 29, PeriodEnd("2024-02").Day())
		_, err := ParsePeriod("2025/01")
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("close twice fails, reopen restores open", func(t *testing.T) {
		p, err := NewPeriod(scope, "2025-01")
		require.NoError(t, err)
		id := uuid.New()

		require.NoError(t, p.Close(&id, nil, p.CreatedAt))
		assert.True(t, p.IsClosed())
		err = p.Close(nil, nil, p.CreatedAt)
		assert.True(t, shared.HasCode(err, shared.CodePeriodAlreadyClosed))

		require.NoError(t, p.Reopen(p.CreatedAt))
		assert.Equal(t, PeriodStatusOpen, p.Status)
		assert.Equal(t, id, *p.ClosingVoucherID)

		err = p.Reopen(p.CreatedAt)
		assert.True(t, shared.HasCode(err, shared.CodePeriodNotClosed))
	})

	t.Run("posting checks", func(t *testing.T) {
		p, _ := NewPeriod(scope, "2025-01")
		assert.NoError(t, p.CheckPosting(EntryTypeNormal))

		require.NoError(t, p.SetAdjustment(true, p.CreatedAt))
		assert.True(t, shared.HasCode(p.CheckPosting(EntryTypeNormal), shared.CodePeriodAdjustmentOnly))
		assert.NoError(t, p.CheckPosting(EntryTypeAdjustment))

		require.NoError(t, p.Close(nil, nil, p.CreatedAt))
		assert.True(t, shared.HasCode(p.CheckPosting(EntryTypeAdjustment), shared.CodePeriodClosed))
		assert.True(t, shared.HasCode(p.SetAdjustment(false, p.CreatedAt), shared.CodePeriodClosed))
	})
}
