package ledger

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NormalizeCurrency upper-cases an ISO 4217 code and rejects unknown codes
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if money.GetCurrency(code) == nil {
		return "", shared.NewDomainError(shared.CodeInvalidCurrency, "unknown currency code: "+code)
	}
	return code, nil
}

// CurrencyFraction returns the number of minor-unit digits of a currency, 2 when unknown
func CurrencyFraction(code string) int32 {
	if cur := money.GetCurrency(code); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}

// RoundAmount rounds an amount to the minor unit of currency
func RoundAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(CurrencyFraction(currency))
}
