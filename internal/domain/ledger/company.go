package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// Company registers a ledger for consolidation. Its balances live in the
// (TenantID, LedgerOrgID) scope; the row itself belongs to the group's scope.
type Company struct {
	shared.ScopedEntity
	Code         string `gorm:"type:varchar(32);not null;index" json:"code"`
	Name         string `gorm:"type:varchar(128);not null" json:"name"`
	BaseCurrency string `gorm:"type:varchar(3);not null" json:"base_currency"`
	LedgerOrgID  string `gorm:"type:varchar(64);not null;index" json:"ledger_org_id"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "ledger_companies"
}

// NewCompany creates a company whose ledger is the org ledgerOrgID
func NewCompany(scope shared.Scope, code, name, baseCurrency, ledgerOrgID string) (*Company, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "company code cannot be empty")
	}
	currency, err := NormalizeCurrency(baseCurrency)
	if err != nil {
		return nil, err
	}
	if ledgerOrgID == "" {
		ledgerOrgID = code
	}
	if name == "" {
		name = code
	}
	return &Company{
		ScopedEntity: shared.NewScopedEntity(scope),
		Code:         code,
		Name:         name,
		BaseCurrency: currency,
		LedgerOrgID:  ledgerOrgID,
	}, nil
}

// LedgerScope returns the scope holding the company's balances
func (c *Company) LedgerScope() shared.Scope {
	return shared.Scope{TenantID: c.TenantID, OrgID: c.LedgerOrgID}
}

// ConsolidationRuleRecord is a named rule bundle stored as JSON text
type ConsolidationRuleRecord struct {
	shared.ScopedEntity
	Name string `gorm:"type:varchar(64);not null;index" json:"name"`
	Body string `gorm:"type:text;not null" json:"body"`
}

// TableName returns the table name for GORM
func (ConsolidationRuleRecord) TableName() string {
	return "ledger_consolidation_rules"
}

// ReportTemplateRecord is a named report template stored as JSON text
type ReportTemplateRecord struct {
	shared.ScopedEntity
	Name string `gorm:"type:varchar(64);not null;index" json:"name"`
	Body string `gorm:"type:text;not null" json:"body"`
}

// TableName returns the table name for GORM
func (ReportTemplateRecord) TableName() string {
	return "ledger_report_templates"
}
