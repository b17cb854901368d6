package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RateType selects which published rate applies
type RateType string

const (
	RateSpot       RateType = "spot"
	RateClosing    RateType = "closing"
	RateAverage    RateType = "average"
	RateHistorical RateType = "historical"
)

// IsValid reports whether r is a known rate type
func (r RateType) IsValid() bool {
	switch r {
	case RateSpot, RateClosing, RateAverage, RateHistorical:
		return true
	}
	return false
}

// FxRate says one unit of BaseCurrency is worth Rate units of QuoteCurrency on RateDate
type FxRate struct {
	shared.ScopedEntity
	BaseCurrency  string          `gorm:"type:varchar(3);not null;index:idx_ledger_fx_pair,priority:1" json:"base_currency"`
	QuoteCurrency string          `gorm:"type:varchar(3);not null;index:idx_ledger_fx_pair,priority:2" json:"quote_currency"`
	RateType      RateType        `gorm:"type:varchar(16);not null;index:idx_ledger_fx_pair,priority:3" json:"rate_type"`
	RateDate      time.Time       `gorm:"not null" json:"rate_date"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"rate"`
}

// TableName returns the table name for GORM
func (FxRate) TableName() string {
	return "ledger_fx_rates"
}

// NewFxRate validates and creates a rate
func NewFxRate(scope shared.Scope, base, quote string, rateType RateType, rateDate time.Time, rate decimal.Decimal) (*FxRate, error) {
	base, err := NormalizeCurrency(base)
	if err != nil {
		return nil, err
	}
	quote, err = NormalizeCurrency(quote)
	if err != nil {
		return nil, err
	}
	if base == quote {
		return nil, shared.NewDomainError(shared.CodeInvalidCurrency, "rate currencies must differ")
	}
	if !rateType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown rate type: "+string(rateType))
	}
	if !rate.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "rate must be positive")
	}
	return &FxRate{
		ScopedEntity:  shared.NewScopedEntity(scope),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		RateType:      rateType,
		RateDate:      rateDate,
		Rate:          rate,
	}, nil
}

// RateDivisionPrecision is the scale used when inverting a rate
const RateDivisionPrecision = 10

// Invert returns 1 / rate
func Invert(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).DivRound(rate, RateDivisionPrecision)
}

// RatePolicy maps each account type to the rate type used to translate it
type RatePolicy map[AccountType]RateType

// DefaultRatePolicy translates balance-sheet items at closing, equity at
// historical and profit-and-loss items at average rate.
func DefaultRatePolicy() RatePolicy {
	return RatePolicy{
		AccountTypeAsset:     RateClosing,
		AccountTypeLiability: RateClosing,
		AccountTypeEquity:    RateHistorical,
		AccountTypeRevenue:   RateAverage,
		AccountTypeExpense:   RateAverage,
	}
}

// RateFor returns the rate type for an account type
func (p RatePolicy) RateFor(t AccountType) RateType {
	if r, ok := p[t]; ok {
		return r
	}
	return DefaultRatePolicy()[t]
}

// Merge returns a policy where overrides replace the receiver's entries
func (p RatePolicy) Merge(overrides RatePolicy) RatePolicy {
	merged := make(RatePolicy, len(p)+len(overrides))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
