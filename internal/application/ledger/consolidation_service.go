package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/consolidation"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConsolidationService merges member ledgers into one group statement
type ConsolidationService struct {
	base
}

// NewConsolidationService creates a new ConsolidationService
func NewConsolidationService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *ConsolidationService {
	return &ConsolidationService{base: newBase(uow, settings, opts)}
}

// ConsolidateRequest selects the companies, period and optional rule and
// template. Rule and Template may be inline JSON or the name of a stored document.
type ConsolidateRequest struct {
	CompanyCodes  []string        `json:"company_codes" validate:"required,min=1,dive,required"`
	Period        string          `json:"period" validate:"required"`
	GroupCurrency string          `json:"group_currency,omitempty"`
	RuleName      string          `json:"rule_name,omitempty"`
	Rule          json.RawMessage `json:"rule,omitempty"`
	TemplateName  string          `json:"template_name,omitempty"`
	Template      json.RawMessage `json:"template,omitempty"`
}

// Consolidate translates each company's statement balances into the group
// currency, scales them by ownership, eliminates inter-company pairs and
// evaluates the optional template. Rates are read from the caller's scope as
// of the period end.
func (s *ConsolidationService) Consolidate(ctx context.Context, req ConsolidateRequest) (*consolidation.Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "consolidation", "run")
	defer span.End()
	started := s.now()

	if _, err := ledger.ParsePeriod(req.Period); err != nil {
		return nil, err
	}
	if len(req.CompanyCodes) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "at least one company code is required")
	}
	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, scope.TenantID,
		telemetry.SpanAttrPeriod, req.Period,
		"companies", strings.Join(req.CompanyCodes, ","),
	)

	var result *consolidation.Result
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		rule, err := s.loadRule(ctx, repos, scope, req)
		if err != nil {
			return err
		}
		tmpl, err := loadTemplate(ctx, repos, scope, req.TemplateName, req.Template)
		if err != nil {
			return err
		}

		ledgers := make([]consolidation.LedgerInput, 0, len(req.CompanyCodes))
		for _, code := range req.CompanyCodes {
			company, err := repos.Companies().FindByCode(ctx, scope, code)
			if err != nil {
				return fmt.Errorf("failed to load company %s: %w", code, err)
			}
			if company == nil {
				return shared.NewDomainError(shared.CodeNotFound, "company not found: "+code)
			}
			balances, err := statementBalances(ctx, repos, company.LedgerScope(), req.Period)
			if err != nil {
				return err
			}
			ledgers = append(ledgers, consolidation.LedgerInput{
				Company:      company.Code,
				BaseCurrency: company.BaseCurrency,
				Balances:     balances,
			})
		}

		resolver := newRateResolver(repos, scope)
		asOf := ledger.PeriodEnd(req.Period)
		rates := func(from, to string, rateType ledger.RateType) (decimal.Decimal, error) {
			return resolver.Rate(ctx, from, to, rateType, asOf)
		}

		result, err = consolidation.Consolidate(consolidation.Request{
			Period:        req.Period,
			GroupCurrency: req.GroupCurrency,
			Rule:          rule,
			Ledgers:       ledgers,
			Rates:         rates,
			Template:      tmpl,
		})
		if err != nil {
			return err
		}
		return s.audit(ctx, repos, scope, ledger.AuditConsolidationRun, "consolidation", req.Period, map[string]any{
			"companies":      req.CompanyCodes,
			"group_currency": result.GroupCurrency,
			"fx_translation": result.FxTranslation.StringFixed(2),
			"is_balanced":    result.IsBalanced,
		})
	})
	s.metrics.ObserveOperation(ctx, "consolidation.run", started, &err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Consolidation completed",
		zap.String("period", req.Period),
		zap.String("group_currency", result.GroupCurrency),
		zap.Bool("is_balanced", result.IsBalanced),
	)
	return result, nil
}

// loadRule parses the inline or named rule and layers the configured rate
// policy under the rule's own overrides
func (s *ConsolidationService) loadRule(ctx context.Context, repos ledger.Repositories, scope shared.Scope, req ConsolidateRequest) (*consolidation.Rule, error) {
	var rule *consolidation.Rule
	switch {
	case len(req.Rule) > 0:
		parsed, err := consolidation.ParseRule(req.Rule)
		if err != nil {
			return nil, err
		}
		rule = parsed
	case req.RuleName != "":
		record, err := repos.Documents().FindRule(ctx, scope, req.RuleName)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", req.RuleName, err)
		}
		if record == nil {
			return nil, shared.NewDomainError(shared.CodeNotFound, "consolidation rule not found: "+req.RuleName)
		}
		parsed, err := consolidation.ParseRule([]byte(record.Body))
		if err != nil {
			return nil, err
		}
		rule = parsed
	}

	if len(s.settings.RatePolicy) == 0 {
		return rule, nil
	}
	if rule == nil {
		rule = &consolidation.Rule{}
	}
	rule.RatePolicy = s.settings.RatePolicy.Merge(rule.RatePolicy)
	return rule, nil
}
