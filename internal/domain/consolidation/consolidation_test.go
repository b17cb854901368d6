package consolidation

import (
	"errors"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func closing(code string, t ledger.AccountType, amount string) report.AccountBalance {
	return report.AccountBalance{
		Code:      code,
		Type:      t,
		Direction: t.NormalDirection(),
		Opening:   decimal.Zero,
		Debit:     decimal.Zero,
		Credit:    decimal.Zero,
		Closing:   dec(amount),
	}
}

// usdToCny quotes closing 7.1 and average 7.0
func usdToCny(from, to string, rateType ledger.RateType) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if from == "USD" && to == "CNY" {
		switch rateType {
		case ledger.RateClosing:
			return dec("7.1"), nil
		case ledger.RateAverage:
			return dec("7.0"), nil
		}
	}
	return decimal.Zero, shared.NewDomainError(shared.CodeFxRateNotFound, "no rate")
}

func find(balances []report.AccountBalance, code string) report.AccountBalance {
	for _, b := range balances {
		if b.Code == code {
			return b
		}
	}
	return report.AccountBalance{}
}

func TestConsolidate_TranslationPlug(t *testing.T) {
	result, err := Consolidate(Request{
		Period:        "2025-01",
		GroupCurrency: "CNY",
		Ledgers: []LedgerInput{
			{Company: "A", BaseCurrency: "USD", Balances: []report.AccountBalance{
				closing("1001", ledger.AccountTypeAsset, "100"),
				closing("6001", ledger.AccountTypeRevenue, "100"),
			}},
			{Company: "B", BaseCurrency: "CNY"},
		},
		Rates: usdToCny,
	})
	require.NoError(t, err)

	assert.Equal(t, "CNY", result.GroupCurrency)
	assert.True(t, result.Totals.Assets.Equal(dec("710")), result.Totals.Assets.String())
	assert.True(t, result.Totals.Revenue.Equal(dec("700")))
	assert.True(t, result.FxTranslation.Equal(dec("10")))
	assert.True(t, result.Totals.Assets.Sub(result.Totals.Liabilities).Sub(result.Totals.Equity).Abs().LessThan(dec("0.01")))
	assert.True(t, result.IsBalanced)
}

func TestConsolidate_GroupCurrency(t *testing.T) {
	ledgers := []LedgerInput{
		{Company: "A", BaseCurrency: "USD"},
		{Company: "B", BaseCurrency: "CNY"},
	}

	t.Run("mixed currencies need an explicit group currency", func(t *testing.T) {
		_, err := Consolidate(Request{Period: "2025-01", Ledgers: ledgers, Rates: usdToCny})
		assert.True(t, shared.HasCode(err, shared.CodeGroupCurrencyRequired))
	})

	t.Run("rule currency applies when none is explicit", func(t *testing.T) {
		got, err := ResolveGroupCurrency("", &Rule{GroupCurrency: "CNY"}, ledgers)
		require.NoError(t, err)
		assert.Equal(t, "CNY", got)
	})

	t.Run("explicit wins over rule", func(t *testing.T) {
		got, err := ResolveGroupCurrency("usd", &Rule{GroupCurrency: "CNY"}, ledgers)
		require.NoError(t, err)
		assert.Equal(t, "USD", got)
	})

	t.Run("shared base currency is used", func(t *testing.T) {
		got, err := ResolveGroupCurrency("", nil, []LedgerInput{{BaseCurrency: "EUR"}, {BaseCurrency: "EUR"}})
		require.NoError(t, err)
		assert.Equal(t, "EUR", got)
	})

	t.Run("missing rate fails", func(t *testing.T) {
		_, err := Consolidate(Request{
			Period:        "2025-01",
			GroupCurrency: "EUR",
			Ledgers: []LedgerInput{{Company: "A", BaseCurrency: "USD", Balances: []report.AccountBalance{
				closing("1001", ledger.AccountTypeAsset, "1"),
			}}},
			Rates: usdToCny,
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeFxRateNotFound, de.Code)
	})
}

func TestConsolidate_OwnershipAndAggregation(t *testing.T) {
	rule := &Rule{Ownership: map[string]decimal.Decimal{"B": dec("0.6")}}
	result, err := Consolidate(Request{
		Period: "2025-01",
		Rule:   rule,
		Ledgers: []LedgerInput{
			{Company: "A", BaseCurrency: "CNY", Balances: []report.AccountBalance{
				closing("1001", ledger.AccountTypeAsset, "1000"),
				closing("4001", ledger.AccountTypeEquity, "1000"),
			}},
			{Company: "B", BaseCurrency: "CNY", Balances: []report.AccountBalance{
				closing("1001", ledger.AccountTypeAsset, "500"),
				closing("4001", ledger.AccountTypeEquity, "500"),
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.Companies)
	require.Len(t, result.Balances, 2)
	assert.True(t, find(result.Balances, "1001").Closing.Equal(dec("1300")))
	assert.True(t, result.IsBalanced)
}

func TestEliminate(t *testing.T) {
	pair := EliminationPair{
		Name:  "intercompany",
		Left:  Matcher{Codes: []string{"1122"}},
		Right: Matcher{Prefixes: []string{"2202"}},
	}

	t.Run("equal magnitude drives both sides to zero", func(t *testing.T) {
		balances := []report.AccountBalance{
			closing("1122", ledger.AccountTypeAsset, "300"),
			closing("2202", ledger.AccountTypeLiability, "300"),
		}
		entry, err := Eliminate(balances, pair)
		require.NoError(t, err)
		assert.True(t, entry.Amount.Equal(dec("300")))
		assert.True(t, balances[0].Closing.IsZero())
		assert.True(t, balances[1].Closing.IsZero())
	})

	t.Run("mismatched pair leaves the remainder on the larger side", func(t *testing.T) {
		balances := []report.AccountBalance{
			closing("1122", ledger.AccountTypeAsset, "500"),
			closing("2202", ledger.AccountTypeLiability, "300"),
		}
		_, err := Eliminate(balances, pair)
		require.NoError(t, err)
		assert.True(t, balances[0].Closing.Equal(dec("200")))
		assert.True(t, balances[1].Closing.IsZero())
	})

	t.Run("proportional reduction never flips sign", func(t *testing.T) {
		split := EliminationPair{
			Name:  "split",
			Left:  Matcher{Codes: []string{"1122", "1123"}},
			Right: Matcher{Codes: []string{"2202"}},
		}
		balances := []report.AccountBalance{
			closing("1122", ledger.AccountTypeAsset, "100"),
			closing("1123", ledger.AccountTypeAsset, "-200"),
			closing("2202", ledger.AccountTypeLiability, "150"),
		}
		entry, err := Eliminate(balances, split)
		require.NoError(t, err)

		assert.True(t, entry.Amount.Equal(dec("150")))
		assert.True(t, balances[0].Closing.Equal(dec("50")))
		assert.True(t, balances[1].Closing.Equal(dec("-100")))
		assert.True(t, balances[2].Closing.IsZero())
		require.Len(t, entry.Left, 2)
		assert.True(t, entry.Left[1].Before.Equal(dec("-200")))
	})

	t.Run("configured field", func(t *testing.T) {
		sales := closing("6001", ledger.AccountTypeRevenue, "0")
		sales.Credit = dec("80")
		purchases := closing("6401", ledger.AccountTypeExpense, "0")
		purchases.Credit = dec("80")
		balances := []report.AccountBalance{sales, purchases}

		_, err := Eliminate(balances, EliminationPair{
			Name:  "sales",
			Left:  Matcher{Codes: []string{"6001"}},
			Right: Matcher{Codes: []string{"6401"}},
			Field: FieldCredit,
		})
		require.NoError(t, err)
		assert.True(t, balances[0].Credit.IsZero())
		assert.True(t, balances[0].Closing.IsZero())
	})

	t.Run("overlapping sides are rejected", func(t *testing.T) {
		balances := []report.AccountBalance{closing("1122", ledger.AccountTypeAsset, "1")}
		_, err := Eliminate(balances, EliminationPair{
			Name:  "bad",
			Left:  Matcher{Codes: []string{"1122"}},
			Right: Matcher{Types: []ledger.AccountType{ledger.AccountTypeAsset}},
		})
		assert.True(t, shared.HasCode(err, shared.CodeInvalidEliminationRule))
	})
}

func TestParseRule(t *testing.T) {
	t.Run("valid bundle", func(t *testing.T) {
		rule, err := ParseRule([]byte(`{
			"group_currency": "cny",
			"ownership": {"B": "0.8"},
			"rate_policy": {"equity": "closing"},
			"eliminations": [{"name": "ic", "left": {"codes": ["1122"]}, "right": {"codes": ["2202"]}}]
		}`))
		require.NoError(t, err)
		assert.Equal(t, "CNY", rule.GroupCurrency)
		assert.True(t, rule.OwnershipOf("B").Equal(dec("0.8")))
		assert.True(t, rule.OwnershipOf("A").Equal(decimal.NewFromInt(1)))
		assert.Equal(t, FieldClosing, rule.Eliminations[0].Field)
		assert.Equal(t, ledger.RateClosing, rule.RatePolicy[ledger.AccountTypeEquity])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseRule([]byte(`{"ownership":`))
		assert.True(t, shared.HasCode(err, shared.CodeInvalidJSON))
	})

	cases := map[string]string{
		"same code both sides": `{"eliminations":[{"name":"x","left":{"codes":["1122"]},"right":{"codes":["1122"]}}]}`,
		"empty side":           `{"eliminations":[{"name":"x","left":{"codes":["1122"]},"right":{}}]}`,
		"unknown field":        `{"eliminations":[{"name":"x","left":{"codes":["1"]},"right":{"codes":["2"]},"field":"net"}]}`,
		"bad ownership":        `{"ownership":{"A":"1.5"}}`,
		"bad rate policy":      `{"rate_policy":{"asset":"weekly"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRule([]byte(body))
			assert.True(t, shared.HasCode(err, shared.CodeInvalidEliminationRule))
		})
	}
}
