package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/ledger/internal/domain/consolidation"
	"github.com/erp/ledger/internal/domain/formula"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegistryService maintains master data: the chart of accounts, dimensions,
// budgets, audit rules, companies and stored documents
type RegistryService struct {
	base
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *RegistryService {
	return &RegistryService{base: newBase(uow, settings, opts)}
}

// AddAccountRequest adds one account to the chart
type AddAccountRequest struct {
	Code       string             `json:"code" validate:"required,max=32"`
	Name       string             `json:"name" validate:"required,max=128"`
	Type       ledger.AccountType `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	Direction  ledger.Direction   `json:"direction,omitempty" validate:"omitempty,oneof=debit credit"`
	ParentCode string             `json:"parent_code,omitempty"`
}

// AddAccount creates an account. Codes are unique within the scope.
func (s *RegistryService) AddAccount(ctx context.Context, req AddAccountRequest) (*ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "add_account")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var account *ledger.Account
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		existing, err := repos.Accounts().FindByCode(ctx, scope, req.Code)
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "account already exists: "+req.Code)
		}
		var parent *ledger.Account
		if req.ParentCode != "" {
			parent, err = repos.Accounts().FindByCode(ctx, scope, req.ParentCode)
			if err != nil {
				return fmt.Errorf("failed to load parent account: %w", err)
			}
			if parent == nil {
				return shared.NewDomainError(shared.CodeAccountNotFound, "parent account not found: "+req.ParentCode)
			}
		}
		account, err = ledger.NewAccount(scope, req.Code, req.Name, req.Type, req.Direction, parent)
		if err != nil {
			return err
		}
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Account added", zap.String("code", account.Code), zap.String("type", string(account.Type)))
	return account, nil
}

// DisableAccount stops new postings to an account; existing balances stay
func (s *RegistryService) DisableAccount(ctx context.Context, code string) (*ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "disable_account")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var account *ledger.Account
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		account, err = repos.Accounts().FindByCode(ctx, scope, code)
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
		if account == nil {
			return shared.NewDomainError(shared.CodeAccountNotFound, "account not found: "+code)
		}
		account.Disable()
		account.Touch(s.now())
		return repos.Accounts().Save(ctx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return account, nil
}

// ListAccounts returns the chart of accounts ordered by code
func (s *RegistryService) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "list_accounts")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var accounts []ledger.Account
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		accounts, err = repos.Accounts().FindAll(ctx, scope)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	return accounts, nil
}

// AddDimensionRequest adds one analytic tag
type AddDimensionRequest struct {
	Type        ledger.DimensionType `json:"type" validate:"required,oneof=department project customer supplier employee"`
	Code        string               `json:"code" validate:"required,max=32"`
	Name        string               `json:"name,omitempty" validate:"max=128"`
	ParentCode  string               `json:"parent_code,omitempty"`
	CreditLimit *decimal.Decimal     `json:"credit_limit,omitempty"`
}

// AddDimension creates a dimension tag. Codes are unique per type within the scope.
func (s *RegistryService) AddDimension(ctx context.Context, req AddDimensionRequest) (*ledger.Dimension, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "add_dimension")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var dim *ledger.Dimension
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		existing, err := repos.Dimensions().FindByCode(ctx, scope, req.Type, req.Code)
		if err != nil {
			return fmt.Errorf("failed to load dimension: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s %s already exists", req.Type, req.Code))
		}
		var parent *ledger.Dimension
		if req.ParentCode != "" {
			parent, err = repos.Dimensions().FindByCode(ctx, scope, req.Type, req.ParentCode)
			if err != nil {
				return fmt.Errorf("failed to load parent dimension: %w", err)
			}
			if parent == nil {
				return shared.NewDomainError(shared.CodeDimensionNotFound,
					fmt.Sprintf("parent %s not found: %s", req.Type, req.ParentCode))
			}
		}
		dim, err = ledger.NewDimension(scope, req.Type, req.Code, req.Name, parent)
		if err != nil {
			return err
		}
		if err := dim.SetCreditLimit(req.CreditLimit); err != nil {
			return err
		}
		return repos.Dimensions().Save(ctx, dim)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Dimension added", zap.String("type", string(dim.Type)), zap.String("code", dim.Code))
	return dim, nil
}

// SetBudgetRequest sets the expense ceiling of one dimension in one period
type SetBudgetRequest struct {
	Period        string               `json:"period" validate:"required"`
	DimensionType ledger.DimensionType `json:"dimension_type" validate:"required"`
	DimensionCode string               `json:"dimension_code" validate:"required"`
	Amount        decimal.Decimal      `json:"amount"`
}

// SetBudget creates or replaces a ceiling. The dimension must exist.
func (s *RegistryService) SetBudget(ctx context.Context, req SetBudgetRequest) (*ledger.Budget, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "set_budget")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var budget *ledger.Budget
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		fresh, err := ledger.NewBudget(scope, req.Period, req.DimensionType, req.DimensionCode, req.Amount)
		if err != nil {
			return err
		}
		dim, err := repos.Dimensions().FindByCode(ctx, scope, req.DimensionType, req.DimensionCode)
		if err != nil {
			return fmt.Errorf("failed to load dimension: %w", err)
		}
		if dim == nil {
			return shared.NewDomainError(shared.CodeDimensionNotFound,
				fmt.Sprintf("%s not found: %s", req.DimensionType, req.DimensionCode))
		}
		budget, err = repos.Budgets().Find(ctx, scope, req.Period, req.DimensionType, req.DimensionCode)
		if err != nil {
			return fmt.Errorf("failed to load budget: %w", err)
		}
		if budget == nil {
			budget = fresh
		} else {
			budget.Amount = fresh.Amount
			budget.Touch(s.now())
		}
		return repos.Budgets().Save(ctx, budget)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return budget, nil
}

// AddAuditRuleRequest registers a boolean check run at review time
type AddAuditRuleRequest struct {
	Code        string `json:"code" validate:"required,max=32"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression" validate:"required"`
	Message     string `json:"message,omitempty"`
}

// AddAuditRule parses the expression and stores the rule, replacing one with the same code
func (s *RegistryService) AddAuditRule(ctx context.Context, req AddAuditRuleRequest) (*ledger.AuditRule, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "add_audit_rule")
	defer span.End()

	if _, err := formula.Parse(req.Expression, formula.Condition); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var rule *ledger.AuditRule
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		fresh, err := ledger.NewAuditRule(scope, req.Code, req.Description, req.Expression, req.Message)
		if err != nil {
			return err
		}
		rule, err = repos.AuditRules().FindByCode(ctx, scope, fresh.Code)
		if err != nil {
			return fmt.Errorf("failed to load audit rule: %w", err)
		}
		if rule == nil {
			rule = fresh
		} else {
			rule.Description = fresh.Description
			rule.Expression = fresh.Expression
			rule.Message = fresh.Message
			rule.Enabled = true
			rule.Touch(s.now())
		}
		return repos.AuditRules().Save(ctx, rule)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return rule, nil
}

// RegisterCompanyRequest makes an org's ledger available for consolidation
type RegisterCompanyRequest struct {
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name,omitempty"`
	BaseCurrency string `json:"base_currency" validate:"required,len=3"`
	LedgerOrgID  string `json:"ledger_org_id,omitempty"`
}

// RegisterCompany creates or updates a company in the caller's scope
func (s *RegistryService) RegisterCompany(ctx context.Context, req RegisterCompanyRequest) (*ledger.Company, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "register_company")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var company *ledger.Company
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		fresh, err := ledger.NewCompany(scope, req.Code, req.Name, req.BaseCurrency, req.LedgerOrgID)
		if err != nil {
			return err
		}
		company, err = repos.Companies().FindByCode(ctx, scope, fresh.Code)
		if err != nil {
			return fmt.Errorf("failed to load company: %w", err)
		}
		if company == nil {
			company = fresh
		} else {
			company.Name = fresh.Name
			company.BaseCurrency = fresh.BaseCurrency
			company.LedgerOrgID = fresh.LedgerOrgID
			company.Touch(s.now())
		}
		return repos.Companies().Save(ctx, company)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return company, nil
}

// SaveDocumentRequest stores a named consolidation rule or report template
type SaveDocumentRequest struct {
	Name string          `json:"name" validate:"required,max=64"`
	Body json.RawMessage `json:"body" validate:"required"`
}

// SaveConsolidationRule validates and stores a rule under its name
func (s *RegistryService) SaveConsolidationRule(ctx context.Context, req SaveDocumentRequest) (*ledger.ConsolidationRuleRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "save_rule")
	defer span.End()

	if _, err := consolidation.ParseRule(req.Body); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var record *ledger.ConsolidationRuleRecord
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		record, err = repos.Documents().FindRule(ctx, scope, req.Name)
		if err != nil {
			return fmt.Errorf("failed to load rule: %w", err)
		}
		if record == nil {
			record = &ledger.ConsolidationRuleRecord{ScopedEntity: shared.NewScopedEntity(scope), Name: req.Name}
		}
		record.Body = string(req.Body)
		record.Touch(s.now())
		return repos.Documents().SaveRule(ctx, record)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return record, nil
}

// SaveReportTemplate compiles and stores a template under its name
func (s *RegistryService) SaveReportTemplate(ctx context.Context, req SaveDocumentRequest) (*ledger.ReportTemplateRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "save_template")
	defer span.End()

	if _, err := report.ParseTemplate(req.Body); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	var record *ledger.ReportTemplateRecord
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		record, err = repos.Documents().FindTemplate(ctx, scope, req.Name)
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		if record == nil {
			record = &ledger.ReportTemplateRecord{ScopedEntity: shared.NewScopedEntity(scope), Name: req.Name}
		}
		record.Body = string(req.Body)
		record.Touch(s.now())
		return repos.Documents().SaveTemplate(ctx, record)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return record, nil
}
