package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PeriodService opens, closes and reopens accounting periods
type PeriodService struct {
	base
	vouchers *VoucherService
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *PeriodService {
	return &PeriodService{
		base:     newBase(uow, settings, opts),
		vouchers: NewVoucherService(uow, settings, opts...),
	}
}

// CloseResult describes a closed period
type CloseResult struct {
	Period            string              `json:"period"`
	Status            ledger.PeriodStatus `json:"status"`
	NetIncome         decimal.Decimal     `json:"net_income"`
	ClosingVoucherID  *uuid.UUID          `json:"closing_voucher_id,omitempty"`
	ClosingVoucherNo  string              `json:"closing_voucher_no,omitempty"`
	TransferVoucherID *uuid.UUID          `json:"transfer_voucher_id,omitempty"`
	TransferVoucherNo string              `json:"transfer_voucher_no,omitempty"`
}

// Close zeroes every revenue and expense balance of the period into the
// clearing account, moves the clearing balance into retained earnings and
// marks the period closed. A period without profit-and-loss balances closes
// without vouchers.
func (s *PeriodService) Close(ctx context.Context, period string) (result *CloseResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "period", "close")
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "period.close", s.now(), &err)

	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, scope.TenantID, telemetry.SpanAttrPeriod, period)
	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}

	var closing, transfer *ledger.Voucher
	err = s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := loadPeriod(ctx, repos, scope, period)
		if err != nil {
			return err
		}
		if p.IsClosed() {
			return shared.NewDomainError(shared.CodePeriodAlreadyClosed, "period "+period+" is already closed")
		}
		unposted, err := repos.Vouchers().CountUnposted(ctx, scope, period)
		if err != nil {
			return fmt.Errorf("failed to count unposted vouchers: %w", err)
		}
		if unposted > 0 {
			return shared.NewDomainError(shared.CodePeriodHasUnposted,
				fmt.Sprintf("period %s has %d unposted vouchers", period, unposted)).
				WithDetails(map[string]any{"unposted": unposted})
		}

		lines, netIncome, err := s.closingLines(ctx, repos, scope, period)
		if err != nil {
			return err
		}
		result = &CloseResult{Period: period, NetIncome: netIncome}
		date := ledger.PeriodEnd(period)

		if len(lines) > 0 {
			closing, err = s.postSystemVoucher(ctx, repos, scope, date, ledger.SourceClosing, "close "+period+" profit and loss", lines)
			if err != nil {
				return err
			}
			result.ClosingVoucherID = &closing.ID
			result.ClosingVoucherNo = closing.VoucherNo
		}
		if !netIncome.IsZero() {
			transfer, err = s.postSystemVoucher(ctx, repos, scope, date, ledger.SourceTransfer, "transfer "+period+" net income", s.transferLines(netIncome))
			if err != nil {
				return err
			}
			result.TransferVoucherID = &transfer.ID
			result.TransferVoucherNo = transfer.VoucherNo
		}

		if err := p.Close(result.ClosingVoucherID, result.TransferVoucherID, s.now()); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save period: %w", err)
		}
		result.Status = p.Status
		if err := s.audit(ctx, repos, scope, ledger.AuditPeriodClose, ledger.AggregateTypePeriod, period, map[string]any{
			"net_income":          netIncome.StringFixed(2),
			"closing_voucher_no":  result.ClosingVoucherNo,
			"transfer_voucher_no": result.TransferVoucherNo,
		}); err != nil {
			return err
		}
		return publish(ctx, repos, ledger.NewPeriodClosedEvent(p, netIncome))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.postedAfterCommit(ctx, closing, transfer)
	s.metrics.PeriodClosed(ctx, scope.TenantID, scope.OrgID)
	logger.L(ctx).Info("Period closed",
		zap.String("period", period),
		zap.String("net_income", result.NetIncome.StringFixed(2)),
	)
	return result, nil
}

// closingLines builds one zeroing line per nonzero revenue/expense balance
// row and the clearing offset. Net income is what the clearing account
// receives: revenue closings less expense closings. A row that opens with a
// balance was left by an earlier period that is still open, so the close is
// refused rather than folding that period's income into this one.
func (s *PeriodService) closingLines(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) ([]ledger.VoucherEntry, decimal.Decimal, error) {
	chart, err := loadChart(ctx, repos, scope)
	if err != nil {
		return nil, decimal.Zero, err
	}
	rows, err := repos.Balances().FindByPeriod(ctx, scope, period)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load balances: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].AccountCode < rows[j].AccountCode })

	var lines []ledger.VoucherEntry
	offset := decimal.Zero // debit minus credit of the zeroing lines
	for _, row := range rows {
		account := chart[row.AccountCode]
		if account == nil || !account.Type.IsProfitAndLoss() {
			continue
		}
		if !row.OpeningBalance.IsZero() {
			return nil, decimal.Zero, s.unclosedBefore(ctx, repos, scope, &row, period)
		}
		if row.ClosingBalance.IsZero() {
			continue
		}
		line := ledger.VoucherEntry{
			AccountCode:  row.AccountCode,
			Description:  "close " + period,
			DebitAmount:  decimal.Zero,
			CreditAmount: decimal.Zero,
			DimensionKey: row.Dims(),
		}
		amount := row.ClosingBalance.Abs()
		// a positive balance sits on the account's own side and is reversed on the other
		reverseOnDebit := (account.Direction == ledger.DirectionCredit) == row.ClosingBalance.IsPositive()
		if reverseOnDebit {
			line.DebitAmount = amount
			offset = offset.Add(amount)
		} else {
			line.CreditAmount = amount
			offset = offset.Sub(amount)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, decimal.Zero, nil
	}

	clearing := ledger.VoucherEntry{
		AccountCode:  s.settings.ClearingAccount,
		Description:  "profit and loss summary " + period,
		DebitAmount:  decimal.Zero,
		CreditAmount: decimal.Zero,
	}
	if offset.IsPositive() {
		clearing.CreditAmount = offset
	} else {
		clearing.DebitAmount = offset.Neg()
	}
	if !offset.IsZero() {
		lines = append(lines, clearing)
	}
	return lines, offset, nil
}

// unclosedBefore reports the earlier period whose profit and loss row still
// carries into period
func (s *PeriodService) unclosedBefore(ctx context.Context, repos ledger.Repositories, scope shared.Scope, row *ledger.Balance, period string) error {
	earlier := ""
	prev, err := repos.Balances().FindLatestBefore(ctx, scope, row.Key())
	if err != nil {
		return fmt.Errorf("failed to load prior balance %s: %w", row.AccountCode, err)
	}
	if prev != nil {
		earlier = prev.Period
	}
	return shared.NewDomainError(shared.CodePeriodNotClosed,
		fmt.Sprintf("period %s carries profit and loss balance %s into %s and must be closed first", earlier, row.AccountCode, period)).
		WithDetails(map[string]any{"period": earlier, "account_code": row.AccountCode})
}

// transferLines moves the clearing balance into retained earnings
func (s *PeriodService) transferLines(netIncome decimal.Decimal) []ledger.VoucherEntry {
	amount := netIncome.Abs()
	fromClearing := ledger.VoucherEntry{AccountCode: s.settings.ClearingAccount, Description: "net income transfer", DebitAmount: decimal.Zero, CreditAmount: decimal.Zero}
	toRetained := ledger.VoucherEntry{AccountCode: s.settings.RetainedEarningsAccount, Description: "net income transfer", DebitAmount: decimal.Zero, CreditAmount: decimal.Zero}
	if netIncome.IsPositive() {
		fromClearing.DebitAmount = amount
		toRetained.CreditAmount = amount
	} else {
		fromClearing.CreditAmount = amount
		toRetained.DebitAmount = amount
	}
	return []ledger.VoucherEntry{fromClearing, toRetained}
}

// PeriodResult is the state of a period after a status change
type PeriodResult struct {
	Period string              `json:"period"`
	Status ledger.PeriodStatus `json:"status"`
}

// Reopen opens a closed period again. Balances and the closing vouchers stay as they are.
func (s *PeriodService) Reopen(ctx context.Context, period string) (*PeriodResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "period", "reopen")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}
	var result *PeriodResult
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := repos.Periods().Find(ctx, scope, period)
		if err != nil {
			return fmt.Errorf("failed to load period: %w", err)
		}
		if p == nil {
			return shared.NewDomainError(shared.CodePeriodNotClosed, "period "+period+" is not closed")
		}
		if err := p.Reopen(s.now()); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save period: %w", err)
		}
		result = &PeriodResult{Period: period, Status: p.Status}
		if err := s.audit(ctx, repos, scope, ledger.AuditPeriodReopen, ledger.AggregateTypePeriod, period, nil); err != nil {
			return err
		}
		return publish(ctx, repos, ledger.NewPeriodReopenedEvent(p))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Period reopened", zap.String("period", period))
	return result, nil
}

// SetAdjustment switches an open period into or out of adjustment-only mode
func (s *PeriodService) SetAdjustment(ctx context.Context, period string, enabled bool) (*PeriodResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "period", "set_adjustment")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}
	var result *PeriodResult
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := loadPeriod(ctx, repos, scope, period)
		if err != nil {
			return err
		}
		if err := p.SetAdjustment(enabled, s.now()); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save period: %w", err)
		}
		result = &PeriodResult{Period: period, Status: p.Status}
		return s.audit(ctx, repos, scope, ledger.AuditPeriodAdjustment, ledger.AggregateTypePeriod, period,
			map[string]any{"enabled": enabled})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// AdjustmentResult is the outcome of an adjustment posting
type AdjustmentResult struct {
	VoucherResult
	CarriedForward   bool       `json:"carried_forward"`
	CarryForwardID   *uuid.UUID `json:"carry_forward_voucher_id,omitempty"`
	CarryForwardNo   string     `json:"carry_forward_voucher_no,omitempty"`
	CarryForwardInto string     `json:"carry_forward_period,omitempty"`
}

// PostAdjustment records an adjustment voucher. Into an open period it is
// reviewed and confirmed like any voucher. Into a closed period it is
// confirmed without touching that period's balances, and a carry-forward
// voucher with the same lines is posted on the first day of the next period
// that is not closed.
func (s *PeriodService) PostAdjustment(ctx context.Context, req CreateVoucherRequest) (*AdjustmentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "period", "post_adjustment")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	req.EntryType = ledger.EntryTypeAdjustment
	if req.Date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "voucher date is required")
	}

	result := &AdjustmentResult{}
	var posted []*ledger.Voucher
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := loadPeriod(ctx, repos, scope, ledger.PeriodOf(req.Date))
		if err != nil {
			return err
		}
		v, err := s.vouchers.insert(ctx, repos, scope, req)
		if err != nil {
			return err
		}

		if !p.IsClosed() {
			warnings, err := s.vouchers.review(ctx, repos, v)
			if err != nil {
				return err
			}
			more, err := s.vouchers.confirm(ctx, repos, v)
			if err != nil {
				return err
			}
			result.VoucherResult = *newVoucherResult(v, append(warnings, more...))
			posted = append(posted, v)
			return nil
		}

		warnings, err := evaluateRules(ctx, repos, scope, v)
		if err != nil {
			return err
		}
		target, err := nextOpenPeriod(ctx, repos, scope, p.Period)
		if err != nil {
			return err
		}
		carried, err := s.postSystemVoucher(ctx, repos, scope, ledger.PeriodStart(target), ledger.SourceCarryForward,
			"carry forward "+v.VoucherNo+" from "+p.Period, carriedEntries(v.Entries))
		if err != nil {
			return err
		}

		if err := v.ConfirmSystem(s.now()); err != nil {
			return err
		}
		v.CarriedForwardTo = &carried.ID
		if err := repos.Vouchers().Update(ctx, v); err != nil {
			return fmt.Errorf("failed to update voucher: %w", err)
		}
		if err := s.audit(ctx, repos, scope, ledger.AuditVoucherPost, ledger.AggregateTypeVoucher, v.ID.String(), map[string]any{
			"voucher_no":         v.VoucherNo,
			"period":             v.Period,
			"carried_forward_to": carried.VoucherNo,
			"carry_period":       target,
		}); err != nil {
			return err
		}

		result.VoucherResult = *newVoucherResult(v, warnings)
		result.CarriedForward = true
		result.CarryForwardID = &carried.ID
		result.CarryForwardNo = carried.VoucherNo
		result.CarryForwardInto = target
		posted = append(posted, carried)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.postedAfterCommit(ctx, posted...)
	return result, nil
}
