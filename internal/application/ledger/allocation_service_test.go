package ledger

import (
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weights(pairs ...any) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out[pairs[i].(string)] = d(pairs[i+1].(string))
	}
	return out
}

func TestAllocationService_Allocate(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	ids := make(map[string]uuid.UUID)
	for _, code := range []string{"SVC", "A", "B"} {
		dim, err := f.registry.AddDimension(ctx, AddDimensionRequest{Type: ledger.DimensionDepartment, Code: code})
		require.NoError(t, err)
		ids[code] = dim.ID
	}
	f.post(t, ctx, day(2024, 3, 5), line("6602", "100", "").dept("SVC"), line("1001", "", "100"))
	f.post(t, ctx, day(2024, 3, 6), line("6602", "100", "").dept("A"), line("1001", "", "100"))
	f.post(t, ctx, day(2024, 3, 7), line("6401", "50", ""), line("1001", "", "50"))

	departmentClosing := func(t *testing.T, code string) decimal.Decimal {
		total := decimal.Zero
		for _, row := range f.balanceRows(t, tenantA, "2024-03") {
			if row.AccountCode == "6602" && row.DepartmentID == ids[code] {
				total = total.Add(row.ClosingBalance)
			}
		}
		return total
	}

	t.Run("invalid requests change nothing", func(t *testing.T) {
		_, err := f.allocation.Allocate(ctx, AllocateRequest{
			Period: "2024-03",
			Steps: []AllocationStep{
				{From: "SVC", To: weights("A", "1")},
				{From: "B", To: weights("SVC", "1")},
			},
		})
		requireCode(t, err, shared.CodeInvalidInput)

		_, err = f.allocation.Allocate(ctx, AllocateRequest{Period: "2024-03", Steps: []AllocationStep{{From: "SVC", To: weights("SVC", "1")}}})
		requireCode(t, err, shared.CodeInvalidInput)

		_, err = f.allocation.Allocate(ctx, AllocateRequest{Period: "2024-03", Steps: []AllocationStep{{From: "SVC", To: weights("A", "0")}}})
		requireCode(t, err, shared.CodeInvalidInput)

		_, err = f.allocation.Allocate(ctx, AllocateRequest{Period: "2024-03", Steps: []AllocationStep{{From: "SVC", To: weights("ZZ", "1")}}})
		requireCode(t, err, shared.CodeDimensionNotFound)

		_, err = f.allocation.Allocate(ctx, AllocateRequest{
			Period: "2024-03", AccountCodes: []string{"1001"}, Steps: []AllocationStep{{From: "SVC", To: weights("A", "1")}},
		})
		requireCode(t, err, shared.CodeInvalidInput)

		_, err = f.allocation.Allocate(ctx, AllocateRequest{
			Period: "2024-03", AccountCodes: []string{"9999"}, Steps: []AllocationStep{{From: "SVC", To: weights("A", "1")}},
		})
		requireCode(t, err, shared.CodeAccountNotFound)

		assertAmount(t, "100", departmentClosing(t, "SVC"))
	})

	t.Run("steps cascade and the last target takes the rounding", func(t *testing.T) {
		res, err := f.allocation.Allocate(ctx, AllocateRequest{
			Period: "2024-03",
			Steps: []AllocationStep{
				{From: "SVC", To: weights("A", "1", "B", "2")},
				{From: "A", To: weights("B", "1")},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, res.VoucherID)

		require.Len(t, res.Shares, 3)
		assert.Equal(t, AllocationShare{From: "SVC", To: "A", AccountCode: "6602", Amount: res.Shares[0].Amount}, res.Shares[0])
		assertAmount(t, "33.33", res.Shares[0].Amount)
		assert.Equal(t, "B", res.Shares[1].To)
		assertAmount(t, "66.67", res.Shares[1].Amount)
		assert.Equal(t, "A", res.Shares[2].From)
		assertAmount(t, "133.33", res.Shares[2].Amount)
		assertAmount(t, "233.33", res.Total)

		assertAmount(t, "0", departmentClosing(t, "SVC"))
		assertAmount(t, "0", departmentClosing(t, "A"))
		assertAmount(t, "200", departmentClosing(t, "B"))
		assertAmount(t, "200", f.balanceOf(t, ctx, "2024-03", "6602").Closing)
		assertAmount(t, "50", f.balanceOf(t, ctx, "2024-03", "6401").Closing)

		v, err := f.vouchers.Get(ctx, *res.VoucherID)
		require.NoError(t, err)
		assert.Equal(t, ledger.SourceAllocation, v.Source)
		assert.True(t, v.IsBalanced())
		assert.Contains(t, f.auditActions(t, ledger.AggregateTypePeriod, "2024-03"), ledger.AuditCostAllocate)
	})

	t.Run("nothing left to move posts nothing", func(t *testing.T) {
		res, err := f.allocation.Allocate(ctx, AllocateRequest{Period: "2024-03", Steps: []AllocationStep{{From: "SVC", To: weights("A", "1")}}})
		require.NoError(t, err)
		assert.Empty(t, res.Shares)
		assert.Nil(t, res.VoucherID)
	})
}

func TestAllocationService_Split(t *testing.T) {
	targets := []weightedTarget{
		{code: "A", weight: d("1").Div(d("3"))},
		{code: "B", weight: d("1").Div(d("3"))},
		{code: "C", weight: d("1").Div(d("3"))},
	}
	shares := split(d("100"), targets, "CNY")
	require.Len(t, shares, 3)
	assertAmount(t, "33.33", shares[0])
	assertAmount(t, "33.33", shares[1])
	assertAmount(t, "33.34", shares[2])

	t.Run("negative balances split the same way", func(t *testing.T) {
		shares := split(d("-10"), targets, "CNY")
		assertAmount(t, "-10", shares[0].Add(shares[1]).Add(shares[2]))
	})
}

func TestAllocationService_MovesOnlyThePeriodsOwnCosts(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)
	for _, code := range []string{"SVC", "A"} {
		_, err := f.registry.AddDimension(ctx, AddDimensionRequest{Type: ledger.DimensionDepartment, Code: code})
		require.NoError(t, err)
	}
	f.post(t, ctx, day(2024, 2, 5), line("6602", "100", "").dept("SVC"), line("1001", "", "100"))
	f.post(t, ctx, day(2024, 3, 5), line("6602", "40", "").dept("SVC"), line("1001", "", "40"))

	res, err := f.allocation.Allocate(ctx, AllocateRequest{Period: "2024-03", Steps: []AllocationStep{{From: "SVC", To: weights("A", "1")}}})
	require.NoError(t, err)
	require.Len(t, res.Shares, 1)
	assertAmount(t, "40", res.Shares[0].Amount)
	assertAmount(t, "140", f.balanceOf(t, ctx, "2024-03", "6602").Closing)
}
