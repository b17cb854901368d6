package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	groupHQ = shared.Scope{TenantID: "tenant-g", OrgID: "hq"}
	groupUS = shared.Scope{TenantID: "tenant-g", OrgID: "us"}
	groupCN = shared.Scope{TenantID: "tenant-g", OrgID: "cn"}
)

// seedGroup registers a USD and a CNY member ledger with USD/CNY rates
func seedGroup(t *testing.T, f *fixture) context.Context {
	t.Helper()
	ctx := scoped(groupHQ)
	for _, c := range []RegisterCompanyRequest{
		{Code: "US", BaseCurrency: "USD", LedgerOrgID: "us"},
		{Code: "CN", BaseCurrency: "CNY", LedgerOrgID: "cn"},
	} {
		_, err := f.registry.RegisterCompany(ctx, c)
		require.NoError(t, err)
	}
	for _, r := range []AddRateRequest{
		{BaseCurrency: "USD", QuoteCurrency: "CNY", RateType: ledger.RateClosing, RateDate: day(2024, 1, 31), Rate: d("7.1")},
		{BaseCurrency: "USD", QuoteCurrency: "CNY", RateType: ledger.RateAverage, RateDate: day(2024, 1, 1), Rate: d("7.0")},
	} {
		_, err := f.fx.AddRate(ctx, r)
		require.NoError(t, err)
	}
	f.seedChart(t, scoped(groupUS))
	f.seedChart(t, scoped(groupCN))
	return ctx
}

func findBalance(balances []report.AccountBalance, code string) report.AccountBalance {
	for _, b := range balances {
		if b.Code == code {
			return b
		}
	}
	return report.AccountBalance{}
}

func TestConsolidationService_Translation(t *testing.T) {
	f := newFixture(t)
	ctx := seedGroup(t, f)
	f.post(t, scoped(groupUS), day(2024, 1, 10), line("1001", "100", ""), line("6001", "", "100"))

	t.Run("translation difference is plugged", func(t *testing.T) {
		res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{
			CompanyCodes:  []string{"US", "CN"},
			Period:        "2024-01",
			GroupCurrency: "CNY",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"US", "CN"}, res.Companies)
		assertAmount(t, "710", res.Totals.Assets)
		assertAmount(t, "700", res.Totals.Revenue)
		assertAmount(t, "10", res.FxTranslation)
		assert.True(t, res.IsBalanced)
	})

	t.Run("mixed currencies need a group currency", func(t *testing.T) {
		_, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"US", "CN"}, Period: "2024-01"})
		requireCode(t, err, shared.CodeGroupCurrencyRequired)
	})

	t.Run("single ledger keeps its own currency", func(t *testing.T) {
		res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"US"}, Period: "2024-01"})
		require.NoError(t, err)
		assert.Equal(t, "USD", res.GroupCurrency)
		assertAmount(t, "100", res.Totals.Assets)
		assert.True(t, res.FxTranslation.IsZero())
	})

	t.Run("rule rate policy overrides the default", func(t *testing.T) {
		res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{
			CompanyCodes: []string{"US"},
			Period:       "2024-01",
			Rule:         json.RawMessage(`{"group_currency":"CNY","rate_policy":{"revenue":"closing"}}`),
		})
		require.NoError(t, err)
		assertAmount(t, "710", res.Totals.Revenue)
		assert.True(t, res.FxTranslation.IsZero())
	})

	t.Run("unknown company and missing rate", func(t *testing.T) {
		_, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"XX"}, Period: "2024-01"})
		requireCode(t, err, shared.CodeNotFound)

		_, err = f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"US"}, Period: "2024-01", GroupCurrency: "EUR"})
		requireCode(t, err, shared.CodeFxRateNotFound)
	})

	t.Run("runs are audited", func(t *testing.T) {
		assert.Contains(t, f.auditActions(t, "consolidation", "2024-01"), ledger.AuditConsolidationRun)
	})
}

func TestConsolidationService_SettingsRatePolicy(t *testing.T) {
	f := newFixture(t, func(s *Settings) {
		s.RatePolicy = ledger.RatePolicy{ledger.AccountTypeRevenue: ledger.RateClosing}
	})
	ctx := seedGroup(t, f)
	f.post(t, scoped(groupUS), day(2024, 1, 10), line("1001", "100", ""), line("6001", "", "100"))

	res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"US"}, Period: "2024-01", GroupCurrency: "CNY"})
	require.NoError(t, err)
	assertAmount(t, "710", res.Totals.Revenue)

	res, err = f.consolidation.Consolidate(ctx, ConsolidateRequest{
		CompanyCodes:  []string{"US"},
		Period:        "2024-01",
		GroupCurrency: "CNY",
		Rule:          json.RawMessage(`{"rate_policy":{"revenue":"average"}}`),
	})
	require.NoError(t, err)
	assertAmount(t, "700", res.Totals.Revenue)
}

func TestConsolidationService_Eliminations(t *testing.T) {
	f := newFixture(t)
	ctx := seedGroup(t, f)
	f.post(t, scoped(groupUS), day(2024, 1, 10), line("1001", "100", ""), line("6001", "", "100"))
	f.post(t, scoped(groupUS), day(2024, 1, 11), line("1001", "10", ""), line("2202", "", "10"))
	f.post(t, scoped(groupCN), day(2024, 1, 12), line("1122", "71", ""), line("4001", "", "71"))

	rule := `{
		"group_currency": "CNY",
		"eliminations": [
			{"name": "intercompany", "left": {"codes": ["1122"]}, "right": {"codes": ["2202"]}}
		]
	}`
	_, err := f.registry.SaveConsolidationRule(ctx, SaveDocumentRequest{Name: "group", Body: json.RawMessage(rule)})
	require.NoError(t, err)

	t.Run("stored rule zeroes the matched pair", func(t *testing.T) {
		res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{
			CompanyCodes: []string{"US", "CN"},
			Period:       "2024-01",
			RuleName:     "group",
			Template:     json.RawMessage(`{"name":"t","fields":[{"name":"ar","source":"acct_1122"}]}`),
		})
		require.NoError(t, err)
		require.Len(t, res.Eliminations, 1)
		assertAmount(t, "71", res.Eliminations[0].Amount)
		assertAmount(t, "0", findBalance(res.Balances, "1122").Closing)
		assertAmount(t, "0", findBalance(res.Balances, "2202").Closing)
		assertAmount(t, "781", res.Totals.Assets)
		assertAmount(t, "10", res.FxTranslation)
		assert.True(t, res.IsBalanced)

		require.Len(t, res.Fields, 1)
		assertAmount(t, "0", res.Fields[0].Value)
	})

	t.Run("ownership scales a member", func(t *testing.T) {
		res, err := f.consolidation.Consolidate(ctx, ConsolidateRequest{
			CompanyCodes: []string{"CN"},
			Period:       "2024-01",
			Rule:         json.RawMessage(`{"ownership":{"CN":"0.5"}}`),
		})
		require.NoError(t, err)
		assertAmount(t, "35.5", findBalance(res.Balances, "1122").Closing)
	})

	t.Run("invalid rules are rejected", func(t *testing.T) {
		_, err := f.registry.SaveConsolidationRule(ctx, SaveDocumentRequest{
			Name: "bad",
			Body: json.RawMessage(`{"eliminations":[{"name":"x","left":{"codes":["1122"]},"right":{}}]}`),
		})
		requireCode(t, err, shared.CodeInvalidEliminationRule)

		_, err = f.consolidation.Consolidate(ctx, ConsolidateRequest{
			CompanyCodes: []string{"CN"},
			Period:       "2024-01",
			Rule:         json.RawMessage(`{"ownership":`),
		})
		requireCode(t, err, shared.CodeInvalidJSON)

		_, err = f.consolidation.Consolidate(ctx, ConsolidateRequest{CompanyCodes: []string{"CN"}, Period: "2024-01", RuleName: "nope"})
		requireCode(t, err, shared.CodeNotFound)
	})
}
