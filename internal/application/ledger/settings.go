// Package ledger implements the bookkeeping use cases: building and posting
// vouchers, closing periods, revaluing foreign balances, consolidating
// ledgers and producing reports. Every operation runs in one unit of work.
package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// Settings is the bookkeeping policy shared by the services
type Settings struct {
	BaseCurrency            string
	ClearingAccount         string
	RetainedEarningsAccount string
	FxGainLossAccount       string
	BudgetMode              ledger.BudgetMode
	ApprovalThreshold       decimal.Decimal
	RatePolicy              ledger.RatePolicy
}

// DefaultSettings returns the policy used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		BaseCurrency:            "CNY",
		ClearingAccount:         "4103",
		RetainedEarningsAccount: "4104",
		FxGainLossAccount:       "6603",
		BudgetMode:              ledger.BudgetModeBlock,
		ApprovalThreshold:       decimal.Zero,
		RatePolicy:              ledger.RatePolicy{},
	}
}

// SettingsFrom converts the configuration section into settings. Empty
// values keep their defaults.
func SettingsFrom(cfg config.LedgerConfig) Settings {
	s := DefaultSettings()
	if cfg.BaseCurrency != "" {
		s.BaseCurrency = strings.ToUpper(cfg.BaseCurrency)
	}
	if cfg.ClearingAccount != "" {
		s.ClearingAccount = cfg.ClearingAccount
	}
	if cfg.RetainedEarningsAccount != "" {
		s.RetainedEarningsAccount = cfg.RetainedEarningsAccount
	}
	if cfg.FxGainLossAccount != "" {
		s.FxGainLossAccount = cfg.FxGainLossAccount
	}
	if ledger.BudgetMode(cfg.BudgetMode) == ledger.BudgetModeWarn {
		s.BudgetMode = ledger.BudgetModeWarn
	}
	if cfg.ApprovalThreshold > 0 {
		s.ApprovalThreshold = decimal.NewFromFloat(cfg.ApprovalThreshold)
	}
	for accountType, rateType := range cfg.RatePolicy {
		t, r := ledger.AccountType(strings.ToLower(accountType)), ledger.RateType(strings.ToLower(rateType))
		if t.IsValid() && r.IsValid() {
			s.RatePolicy[t] = r
		}
	}
	return s
}

// approvalRequired reports whether a voucher of amount needs an approval
func (s Settings) approvalRequired(amount decimal.Decimal) bool {
	return s.ApprovalThreshold.IsPositive() && amount.GreaterThanOrEqual(s.ApprovalThreshold)
}
