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

func TestVoucherService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	t.Run("balanced voucher is confirmed and posted", func(t *testing.T) {
		res := f.post(t, ctx, day(2024, 1, 15), line("1001", "1000", ""), line("6001", "", "1000"))

		assert.Equal(t, "V202401-0001", res.VoucherNo)
		assertAmount(t, "1000", res.DebitTotal)
		assertAmount(t, "1000", res.CreditTotal)
		assert.Empty(t, res.Warnings)

		assertAmount(t, "1000", f.balanceOf(t, ctx, "2024-01", "1001").Closing)
		assertAmount(t, "1000", f.balanceOf(t, ctx, "2024-01", "6001").Closing)
		assert.ElementsMatch(t, []string{ledger.AuditVoucherCreate, ledger.AuditVoucherReview, ledger.AuditVoucherPost},
			f.auditActions(t, ledger.AggregateTypeVoucher, res.VoucherID.String()))
	})

	t.Run("accounts resolve by name", func(t *testing.T) {
		res, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 16),
			Entries: []EntryInput{line("Cash", "5", ""), line("Sales Revenue", "", "5")},
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusDraft, res.Status)

		v, err := f.vouchers.Get(ctx, res.VoucherID)
		require.NoError(t, err)
		assert.Equal(t, "1001", v.Entries[0].AccountCode)
		assert.Equal(t, "6001", v.Entries[1].AccountCode)
	})

	t.Run("unbalanced voucher is rejected whole", func(t *testing.T) {
		_, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:        day(2024, 1, 17),
			Entries:     []EntryInput{line("1001", "100", ""), line("6001", "", "90")},
			AutoConfirm: true,
		})
		requireCode(t, err, shared.CodeNotBalanced)

		list, err := f.vouchers.List(ctx, ledger.VoucherFilter{Period: "2024-01"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
	})

	t.Run("line errors carry the line number", func(t *testing.T) {
		_, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 17),
			Entries: []EntryInput{line("1001", "100", ""), line("9999", "", "100")},
		})
		requireCode(t, err, shared.CodeAccountNotFound)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, 2, domainErr.Details["line_no"])

		_, err = f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 17),
			Entries: []EntryInput{line("1001", "-1", ""), line("6001", "", "-1")},
		})
		requireCode(t, err, shared.CodeInvalidAmount)

		_, err = f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 17),
			Entries: []EntryInput{line("1001", "", ""), line("6001", "", "")},
		})
		requireCode(t, err, shared.CodeInvalidAmount)
	})

	t.Run("disabled accounts reject new lines", func(t *testing.T) {
		_, err := f.registry.DisableAccount(ctx, "1122")
		require.NoError(t, err)

		_, err = f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 18),
			Entries: []EntryInput{line("1122", "10", ""), line("6001", "", "10")},
		})
		requireCode(t, err, shared.CodeAccountDisabled)
	})

	t.Run("unknown dimension code fails", func(t *testing.T) {
		_, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 18),
			Entries: []EntryInput{line("6602", "10", "").dept("nowhere"), line("1001", "", "10")},
		})
		requireCode(t, err, shared.CodeDimensionNotFound)
	})
}

func TestVoucherService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	created, err := f.vouchers.Create(ctx, CreateVoucherRequest{
		Date:    day(2024, 2, 3),
		Entries: []EntryInput{line("6602", "300", ""), line("1001", "", "300")},
	})
	require.NoError(t, err)
	id := created.VoucherID

	t.Run("confirm requires review", func(t *testing.T) {
		_, err := f.vouchers.Confirm(ctx, id)
		requireCode(t, err, shared.CodeVoucherNotReviewed)
	})

	t.Run("review then revert then review again", func(t *testing.T) {
		res, err := f.vouchers.Review(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusReviewed, res.Status)

		_, err = f.vouchers.Review(ctx, id)
		requireCode(t, err, shared.CodeVoucherNotDraft)

		res, err = f.vouchers.Revert(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusDraft, res.Status)

		_, err = f.vouchers.Review(ctx, id)
		require.NoError(t, err)
	})

	t.Run("confirm posts and cannot be deleted", func(t *testing.T) {
		res, err := f.vouchers.Confirm(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusConfirmed, res.Status)
		assertAmount(t, "300", f.balanceOf(t, ctx, "2024-02", "6602").Closing)
		assertAmount(t, "-300", f.balanceOf(t, ctx, "2024-02", "1001").Closing)

		err = f.vouchers.Delete(ctx, id)
		requireCode(t, err, shared.CodeVoucherNotDraft)
	})

	t.Run("void posts a mirror and nets to zero", func(t *testing.T) {
		res, err := f.vouchers.Void(ctx, id, "duplicate")
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusVoided, res.Status)

		b := f.balanceOf(t, ctx, "2024-02", "6602")
		assertAmount(t, "0", b.Closing)
		assertAmount(t, "300", b.Debit)
		assertAmount(t, "300", b.Credit)

		v, err := f.vouchers.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, v.ReversedBy)
		mirror, err := f.vouchers.Get(ctx, *v.ReversedBy)
		require.NoError(t, err)
		assert.Equal(t, ledger.SourceReversal, mirror.Source)
		assert.Equal(t, v.Date.Format("2006-01-02"), mirror.Date.Format("2006-01-02"))
		require.NotNil(t, mirror.ReversalOf)
		assert.Equal(t, id, *mirror.ReversalOf)
	})

	t.Run("second void fails", func(t *testing.T) {
		_, err := f.vouchers.Void(ctx, id, "again")
		requireCode(t, err, shared.CodeVoidConfirmed)
	})

	t.Run("drafts can be deleted", func(t *testing.T) {
		draft, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 2, 4),
			Entries: []EntryInput{line("6602", "1", ""), line("1001", "", "1")},
		})
		require.NoError(t, err)
		require.NoError(t, f.vouchers.Delete(ctx, draft.VoucherID))

		_, err = f.vouchers.Get(ctx, draft.VoucherID)
		requireCode(t, err, shared.CodeVoucherNotFound)
	})
}

func TestVoucherService_BalanceCascade(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	f.post(t, ctx, day(2024, 3, 10), line("1001", "500", ""), line("4001", "", "500"))
	f.post(t, ctx, day(2024, 1, 10), line("1001", "200", ""), line("4001", "", "200"))
	f.post(t, ctx, day(2024, 2, 10), line("1001", "50", ""), line("4001", "", "50"))

	opening := func(period string) decimal.Decimal {
		for _, row := range f.balanceRows(t, tenantA, period) {
			if row.AccountCode == "1001" {
				return row.OpeningBalance
			}
		}
		return decimal.Zero
	}
	closing := func(period string) decimal.Decimal {
		for _, row := range f.balanceRows(t, tenantA, period) {
			if row.AccountCode == "1001" {
				return row.ClosingBalance
			}
		}
		return decimal.Zero
	}

	t.Run("closing of a period is the opening of the next", func(t *testing.T) {
		assertAmount(t, "200", closing("2024-01"))
		assertAmount(t, "200", opening("2024-02"))
		assertAmount(t, "250", closing("2024-02"))
		assertAmount(t, "250", opening("2024-03"))
		assertAmount(t, "750", closing("2024-03"))
	})

	t.Run("periods without activity carry the earlier closing", func(t *testing.T) {
		b := f.balanceOf(t, ctx, "2024-05", "1001")
		assertAmount(t, "750", b.Opening)
		assertAmount(t, "750", b.Closing)
	})
}

func TestVoucherService_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctxA := scoped(tenantA)
	ctxB := scoped(tenantB)
	f.seedChart(t, ctxA)
	f.seedChart(t, ctxB)

	res := f.post(t, ctxA, day(2024, 1, 5), line("1001", "80", ""), line("6001", "", "80"))

	t.Run("other tenant gets not found and the attempt is audited", func(t *testing.T) {
		_, err := f.vouchers.Get(ctxB, res.VoucherID)
		requireCode(t, err, shared.CodeVoucherNotFound)

		assert.Contains(t, f.auditActions(t, ledger.AggregateTypeVoucher, res.VoucherID.String()), ledger.AuditVoucherAccessDenied)
	})

	t.Run("missing voucher is reported the same way", func(t *testing.T) {
		_, err := f.vouchers.Get(ctxB, uuid.New())
		requireCode(t, err, shared.CodeVoucherNotFound)
	})

	t.Run("lifecycle calls cannot reach another tenant", func(t *testing.T) {
		_, err := f.vouchers.Void(ctxB, res.VoucherID, "nope")
		requireCode(t, err, shared.CodeVoucherNotFound)
	})

	t.Run("numbering and balances are per tenant", func(t *testing.T) {
		other := f.post(t, ctxB, day(2024, 1, 6), line("1001", "10", ""), line("6001", "", "10"))
		assert.Equal(t, "V202401-0001", other.VoucherNo)
		assertAmount(t, "80", f.balanceOf(t, ctxA, "2024-01", "1001").Closing)
		assertAmount(t, "10", f.balanceOf(t, ctxB, "2024-01", "1001").Closing)
	})
}

func TestVoucherService_Approvals(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.ApprovalThreshold = d("1000") })
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	t.Run("small vouchers need no approval", func(t *testing.T) {
		f.post(t, ctx, day(2024, 1, 2), line("1001", "999.99", ""), line("6001", "", "999.99"))
	})

	t.Run("large voucher waits for approval", func(t *testing.T) {
		res, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:        day(2024, 1, 3),
			Entries:     []EntryInput{line("1001", "5000", ""), line("6001", "", "5000")},
			AutoConfirm: true,
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusReviewed, res.Status)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], shared.CodeApprovalPending)

		_, err = f.vouchers.Confirm(ctx, res.VoucherID)
		requireCode(t, err, shared.CodeApprovalPending)

		approval, err := f.vouchers.Decide(ctx, res.VoucherID, true, "ok")
		require.NoError(t, err)
		assert.Equal(t, ledger.ApprovalApproved, approval.Status)

		confirmed, err := f.vouchers.Confirm(ctx, res.VoucherID)
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusConfirmed, confirmed.Status)
	})

	t.Run("rejected voucher cannot be confirmed", func(t *testing.T) {
		res, err := f.vouchers.Create(ctx, CreateVoucherRequest{
			Date:    day(2024, 1, 4),
			Entries: []EntryInput{line("1001", "2000", ""), line("6001", "", "2000")},
			Status:  ledger.VoucherStatusReviewed,
		})
		require.NoError(t, err)

		_, err = f.vouchers.Decide(ctx, res.VoucherID, false, "no")
		require.NoError(t, err)

		_, err = f.vouchers.Confirm(ctx, res.VoucherID)
		requireCode(t, err, shared.CodeApprovalRejected)

		_, err = f.vouchers.Decide(ctx, res.VoucherID, true, "changed my mind")
		require.Error(t, err)
	})
}

func TestVoucherService_Budgets(t *testing.T) {
	setup := func(t *testing.T, mode ledger.BudgetMode) (*fixture, func(amount string) (*VoucherResult, error)) {
		f := newFixture(t, func(s *Settings) { s.BudgetMode = mode })
		ctx := scoped(tenantA)
		f.seedChart(t, ctx)
		f.seedDepartments(t, ctx, "D01")
		_, err := f.registry.SetBudget(ctx, SetBudgetRequest{
			Period: "2024-04", DimensionType: ledger.DimensionDepartment, DimensionCode: "D01", Amount: d("1000"),
		})
		require.NoError(t, err)
		spend := func(amount string) (*VoucherResult, error) {
			return f.vouchers.Create(ctx, CreateVoucherRequest{
				Date:        day(2024, 4, 8),
				Entries:     []EntryInput{line("6602", amount, "").dept("D01"), line("1001", "", amount)},
				AutoConfirm: true,
			})
		}
		return f, spend
	}

	t.Run("block mode rejects the overrun", func(t *testing.T) {
		_, spend := setup(t, ledger.BudgetModeBlock)
		res, err := spend("600")
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusConfirmed, res.Status)

		_, err = spend("500")
		requireCode(t, err, shared.CodeBudgetExceeded)

		res, err = spend("400")
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusConfirmed, res.Status)
	})

	t.Run("warn mode confirms with a warning", func(t *testing.T) {
		_, spend := setup(t, ledger.BudgetModeWarn)
		res, err := spend("1200")
		require.NoError(t, err)
		assert.Equal(t, ledger.VoucherStatusConfirmed, res.Status)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "D01")
	})

	t.Run("voided spending frees the budget", func(t *testing.T) {
		f, spend := setup(t, ledger.BudgetModeBlock)
		first, err := spend("900")
		require.NoError(t, err)
		_, err = f.vouchers.Void(scoped(tenantA), first.VoucherID, "wrong department")
		require.NoError(t, err)

		_, err = spend("900")
		require.NoError(t, err)
	})

	t.Run("expense credits do not restore the budget", func(t *testing.T) {
		f, spend := setup(t, ledger.BudgetModeBlock)
		_, err := spend("600")
		require.NoError(t, err)
		f.post(t, scoped(tenantA), day(2024, 4, 9), line("1001", "300", ""), line("6602", "", "300").dept("D01"))

		_, err = spend("500")
		requireCode(t, err, shared.CodeBudgetExceeded)
	})
}

func TestVoucherService_AuditRules(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	_, err := f.registry.AddAuditRule(ctx, AddAuditRuleRequest{
		Code:       "BIG",
		Expression: "max_line_amount >= 10000 and line_count < 3",
		Message:    "large two-line voucher",
	})
	require.NoError(t, err)

	t.Run("satisfied rule becomes a warning", func(t *testing.T) {
		res := f.post(t, ctx, day(2024, 1, 9), line("1001", "20000", ""), line("4001", "", "20000"))
		assert.Equal(t, []string{"BIG: large two-line voucher"}, res.Warnings)
	})

	t.Run("unsatisfied rule is silent", func(t *testing.T) {
		res := f.post(t, ctx, day(2024, 1, 9), line("1001", "20", ""), line("4001", "", "20"))
		assert.Empty(t, res.Warnings)
	})

	t.Run("invalid expressions are rejected when saved", func(t *testing.T) {
		_, err := f.registry.AddAuditRule(ctx, AddAuditRuleRequest{Code: "BAD", Expression: "total_debit >"})
		requireCode(t, err, shared.CodeInvalidFormula)
	})
}

func TestVoucherService_Archive(t *testing.T) {
	f := newFixture(t)
	ctx := scoped(tenantA)
	f.seedChart(t, ctx)

	f.post(t, ctx, day(2024, 1, 9), line("1001", "20", ""), line("4001", "", "20"))
	f.post(t, ctx, day(2024, 2, 9), line("1001", "20", ""), line("4001", "", "20"))

	res, err := f.vouchers.Archive(ctx, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)
	assert.Equal(t, []string{"V202401-0001"}, res.VoucherNos)

	list, err := f.vouchers.List(ctx, ledger.VoucherFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	t.Run("archived entries still count as posted", func(t *testing.T) {
		tb, err := f.reports.TrialBalance(ctx, "2024-01")
		require.NoError(t, err)
		assertAmount(t, "20", tb.TotalDebit)
	})
}
