package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// rateResolver looks up exchange rates inside one transaction
type rateResolver struct {
	repo  ledger.FxRateRepository
	scope shared.Scope
}

func newRateResolver(repos ledger.Repositories, scope shared.Scope) rateResolver {
	return rateResolver{repo: repos.FxRates(), scope: scope}
}

// Rate returns how many units of to one unit of from buys on asOf: the latest
// published rate for the pair, else the inverse of the reverse pair.
func (r rateResolver) Rate(ctx context.Context, from, to string, rateType ledger.RateType, asOf time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	direct, err := r.repo.FindLatest(ctx, r.scope, from, to, rateType, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load %s/%s rate: %w", from, to, err)
	}
	if direct != nil {
		return direct.Rate, nil
	}
	reverse, err := r.repo.FindLatest(ctx, r.scope, to, from, rateType, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load %s/%s rate: %w", to, from, err)
	}
	if reverse != nil {
		return ledger.Invert(reverse.Rate), nil
	}
	return decimal.Zero, shared.NewDomainError(shared.CodeFxRateNotFound,
		fmt.Sprintf("no %s rate for %s/%s on or before %s", rateType, from, to, asOf.Format("2006-01-02"))).
		WithDetails(map[string]any{"base": from, "quote": to, "rate_type": rateType})
}

// FxService manages exchange rates and period-end revaluation
type FxService struct {
	base
}

// NewFxService creates a new FxService
func NewFxService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *FxService {
	return &FxService{base: newBase(uow, settings, opts)}
}

// AddRateRequest publishes one exchange rate
type AddRateRequest struct {
	BaseCurrency  string          `json:"base_currency" validate:"required,len=3"`
	QuoteCurrency string          `json:"quote_currency" validate:"required,len=3"`
	RateType      ledger.RateType `json:"rate_type"`
	RateDate      time.Time       `json:"rate_date" validate:"required"`
	Rate          decimal.Decimal `json:"rate"`
}

// AddRate stores a rate. An empty rate type means spot.
func (s *FxService) AddRate(ctx context.Context, req AddRateRequest) (*ledger.FxRate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fx", "add_rate")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	if req.RateType == "" {
		req.RateType = ledger.RateSpot
	}
	rate, err := ledger.NewFxRate(scope, req.BaseCurrency, req.QuoteCurrency, req.RateType, req.RateDate, req.Rate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(repos ledger.Repositories) error {
		return repos.FxRates().Save(ctx, rate)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return rate, nil
}

// RevaluationLine is the adjustment of one foreign-currency series
type RevaluationLine struct {
	AccountCode  string              `json:"account_code"`
	CurrencyCode string              `json:"currency_code"`
	Dimensions   ledger.DimensionKey `json:"dimensions"`
	ForeignNet   decimal.Decimal     `json:"foreign_net"`
	BookedHome   decimal.Decimal     `json:"booked_home"`
	Rate         decimal.Decimal     `json:"rate"`
	RevaluedHome decimal.Decimal     `json:"revalued_home"`
	Difference   decimal.Decimal     `json:"difference"`
}

// RevaluationResult summarizes one revaluation run
type RevaluationResult struct {
	Period    string            `json:"period"`
	Lines     []RevaluationLine `json:"lines"`
	NetGain   decimal.Decimal   `json:"net_gain"`
	VoucherID *uuid.UUID        `json:"voucher_id,omitempty"`
	VoucherNo string            `json:"voucher_no,omitempty"`
}

type revaluationSeries struct {
	account  string
	currency string
	dims     ledger.DimensionKey
}

// Revalue restates foreign-currency balances of monetary accounts at the
// closing rate of the period end. The difference is posted as one confirmed
// revaluation voucher against the FX gain/loss account.
func (s *FxService) Revalue(ctx context.Context, period string) (*RevaluationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fx", "revalue")
	defer span.End()
	started := s.now()

	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, scope.TenantID, telemetry.SpanAttrPeriod, period)
	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}

	result := &RevaluationResult{Period: period, Lines: []RevaluationLine{}, NetGain: decimal.Zero}
	var posted *ledger.Voucher
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := loadPeriod(ctx, repos, scope, period)
		if err != nil {
			return err
		}
		if err := p.CheckPosting(ledger.EntryTypeNormal); err != nil {
			return err
		}
		home, err := s.baseCurrency(ctx, repos, scope)
		if err != nil {
			return err
		}
		chart, err := loadChart(ctx, repos, scope)
		if err != nil {
			return err
		}
		entries, err := repos.Vouchers().FindPostedEntries(ctx, scope, ledger.EntryQuery{ToPeriod: period})
		if err != nil {
			return fmt.Errorf("failed to load posted entries: %w", err)
		}

		type totals struct{ foreign, home decimal.Decimal }
		sums := make(map[revaluationSeries]*totals)
		var order []revaluationSeries
		for _, e := range entries {
			if e.CurrencyCode == "" || e.CurrencyCode == home {
				continue
			}
			account := chart[e.AccountCode]
			if account == nil || (account.Type != ledger.AccountTypeAsset && account.Type != ledger.AccountTypeLiability) {
				continue
			}
			key := revaluationSeries{account: e.AccountCode, currency: e.CurrencyCode, dims: e.DimensionKey}
			t, ok := sums[key]
			if !ok {
				t = &totals{foreign: decimal.Zero, home: decimal.Zero}
				sums[key] = t
				order = append(order, key)
			}
			t.foreign = t.foreign.Add(e.ForeignDebit).Sub(e.ForeignCredit)
			t.home = t.home.Add(e.DebitAmount).Sub(e.CreditAmount)
		}
		sort.SliceStable(order, func(i, j int) bool {
			if order[i].account != order[j].account {
				return order[i].account < order[j].account
			}
			return order[i].currency < order[j].currency
		})

		resolver := newRateResolver(repos, scope)
		asOf := ledger.PeriodEnd(period)
		var lines []ledger.VoucherEntry
		for _, key := range order {
			t := sums[key]
			rate, err := resolver.Rate(ctx, key.currency, home, ledger.RateClosing, asOf)
			if err != nil {
				return err
			}
			revalued := ledger.RoundAmount(t.foreign.Mul(rate), home)
			diff := revalued.Sub(t.home)
			if diff.IsZero() {
				continue
			}
			result.Lines = append(result.Lines, RevaluationLine{
				AccountCode:  key.account,
				CurrencyCode: key.currency,
				Dimensions:   key.dims,
				ForeignNet:   t.foreign,
				BookedHome:   t.home,
				Rate:         rate,
				RevaluedHome: revalued,
				Difference:   diff,
			})
			result.NetGain = result.NetGain.Add(diff)

			// the line keeps the foreign currency so later runs net it into the series
			line := ledger.VoucherEntry{
				AccountCode:  key.account,
				Description:  "revaluation " + key.currency + " " + period,
				CurrencyCode: key.currency,
				FxRate:       rate,
				DebitAmount:  decimal.Zero,
				CreditAmount: decimal.Zero,
				DimensionKey: key.dims,
			}
			if diff.IsPositive() {
				line.DebitAmount = diff
			} else {
				line.CreditAmount = diff.Neg()
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			return nil
		}

		offset := ledger.VoucherEntry{
			AccountCode:  s.settings.FxGainLossAccount,
			Description:  "exchange gain/loss " + period,
			CurrencyCode: home,
			FxRate:       decimal.NewFromInt(1),
			DebitAmount:  decimal.Zero,
			CreditAmount: decimal.Zero,
		}
		if result.NetGain.IsPositive() {
			offset.CreditAmount = result.NetGain
		} else {
			offset.DebitAmount = result.NetGain.Neg()
		}
		if !result.NetGain.IsZero() {
			lines = append(lines, offset)
		}

		posted, err = s.postSystemVoucher(ctx, repos, scope, asOf, ledger.SourceRevaluation, "FX revaluation "+period, lines)
		if err != nil {
			return err
		}
		result.VoucherID = &posted.ID
		result.VoucherNo = posted.VoucherNo
		return s.audit(ctx, repos, scope, ledger.AuditFxRevalue, ledger.AggregateTypePeriod, period, map[string]any{
			"voucher_no": posted.VoucherNo,
			"net_gain":   result.NetGain.StringFixed(2),
			"lines":      len(result.Lines),
		})
	})
	s.metrics.ObserveOperation(ctx, "fx.revalue", started, &err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.postedAfterCommit(ctx, posted)
	logger.L(ctx).Info("Revaluation completed",
		zap.String("period", period),
		zap.Int("lines", len(result.Lines)),
		zap.String("net_gain", result.NetGain.StringFixed(2)),
	)
	return result, nil
}
