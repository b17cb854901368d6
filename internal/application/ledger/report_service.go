package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportService reads balances and produces statements
type ReportService struct {
	base
}

// NewReportService creates a new ReportService
func NewReportService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *ReportService {
	return &ReportService{base: newBase(uow, settings, opts)}
}

// periodBalances returns one row per account for period. Series without
// activity in the period carry their latest earlier closing as both opening
// and closing.
func periodBalances(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) ([]report.AccountBalance, error) {
	rows, err := repos.Balances().FindAsOf(ctx, scope, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	for i := range rows {
		if rows[i].Period != period {
			rows[i].Period = period
			rows[i].OpeningBalance = rows[i].ClosingBalance
			rows[i].DebitAmount = decimal.Zero
			rows[i].CreditAmount = decimal.Zero
		}
	}
	chart, err := loadChart(ctx, repos, scope)
	if err != nil {
		return nil, err
	}
	return report.Aggregate(rows, chart)
}

// statementBalances is periodBalances with the period's closing and transfer
// vouchers taken back out, so a closed period still reports its revenue,
// expenses and net income.
func statementBalances(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) ([]report.AccountBalance, error) {
	balances, err := periodBalances(ctx, repos, scope, period)
	if err != nil {
		return nil, err
	}
	p, err := repos.Periods().Find(ctx, scope, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if p == nil || !p.IsClosed() {
		return balances, nil
	}

	index := make(map[string]int, len(balances))
	for i, b := range balances {
		index[b.Code] = i
	}
	for _, id := range []*uuid.UUID{p.ClosingVoucherID, p.TransferVoucherID} {
		if id == nil {
			continue
		}
		v, err := repos.Vouchers().FindByID(ctx, *id)
		if err != nil {
			return nil, fmt.Errorf("failed to load closing voucher: %w", err)
		}
		if v == nil {
			continue
		}
		for _, e := range v.Entries {
			i, ok := index[e.AccountCode]
			if !ok {
				continue
			}
			b := &balances[i]
			b.Debit = b.Debit.Sub(e.DebitAmount)
			b.Credit = b.Credit.Sub(e.CreditAmount)
			b.Closing = b.Closing.Sub(b.Direction.Net(e.DebitAmount, e.CreditAmount))
		}
	}
	return balances, nil
}

// Balances returns per-account balances of period
func (s *ReportService) Balances(ctx context.Context, period string) ([]report.AccountBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "balances")
	defer span.End()

	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var out []report.AccountBalance
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		out, err = periodBalances(ctx, repos, scope, period)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out == nil {
		out = []report.AccountBalance{}
	}
	return out, nil
}

// TrialBalance checks the period's balances and reports non-fatal warnings
func (s *ReportService) TrialBalance(ctx context.Context, period string) (*report.TrialBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "trial_balance")
	defer span.End()

	if _, err := ledger.ParsePeriod(period); err != nil {
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var tb report.TrialBalance
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		balances, err := periodBalances(ctx, repos, scope, period)
		if err != nil {
			return err
		}
		entries, err := repos.Vouchers().FindPostedEntries(ctx, scope, ledger.EntryQuery{FromPeriod: period, ToPeriod: period})
		if err != nil {
			return fmt.Errorf("failed to load posted entries: %w", err)
		}
		if balances == nil {
			balances = []report.AccountBalance{}
		}
		tb = report.BuildTrialBalance(period, balances, entries)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "balanced", tb.Balanced, "warnings", len(tb.Warnings))
	return &tb, nil
}

// TemplateRequest names a stored template or carries one inline
type TemplateRequest struct {
	Period       string          `json:"period" validate:"required"`
	TemplateName string          `json:"template_name,omitempty"`
	Template     json.RawMessage `json:"template,omitempty"`
}

// TemplateReport is an evaluated template with the totals it was evaluated against
type TemplateReport struct {
	Period string              `json:"period"`
	Name   string              `json:"name"`
	Totals report.Totals       `json:"totals"`
	Fields []report.FieldValue `json:"fields"`
}

// loadTemplate parses the inline body or the named stored template
func loadTemplate(ctx context.Context, repos ledger.Repositories, scope shared.Scope, name string, body json.RawMessage) (*report.Template, error) {
	if len(body) > 0 {
		return report.ParseTemplate(body)
	}
	if name == "" {
		return nil, nil
	}
	record, err := repos.Documents().FindTemplate(ctx, scope, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", name, err)
	}
	if record == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "report template not found: "+name)
	}
	return report.ParseTemplate([]byte(record.Body))
}

// EvaluateTemplate evaluates a report template against the period's statement totals
func (s *ReportService) EvaluateTemplate(ctx context.Context, req TemplateRequest) (*TemplateReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "template")
	defer span.End()

	if _, err := ledger.ParsePeriod(req.Period); err != nil {
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var out *TemplateReport
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		tmpl, err := loadTemplate(ctx, repos, scope, req.TemplateName, req.Template)
		if err != nil {
			return err
		}
		if tmpl == nil {
			return shared.NewDomainError(shared.CodeInvalidTemplate, "a template or template name is required")
		}
		balances, err := statementBalances(ctx, repos, scope, req.Period)
		if err != nil {
			return err
		}
		totals := report.ComputeTotals(balances)
		fields, err := tmpl.Evaluate(report.Context(totals, balances))
		if err != nil {
			return err
		}
		out = &TemplateReport{Period: req.Period, Name: tmpl.Name, Totals: totals, Fields: fields}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return out, nil
}
