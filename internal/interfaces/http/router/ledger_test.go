package router

import (
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func stubHandlers() Handlers {
	return Handlers{
		Auth:          handler.NewAuthHandler(nil),
		Vouchers:      handler.NewVoucherHandler(nil),
		Periods:       handler.NewPeriodHandler(nil),
		Reports:       handler.NewReportHandler(nil),
		Fx:            handler.NewFxHandler(nil),
		Consolidation: handler.NewConsolidationHandler(nil),
		Registry:      handler.NewRegistryHandler(nil),
		Allocation:    handler.NewAllocationHandler(nil),
	}
}

func TestLedgerGroups(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	throttle := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	NewRouter(engine).RegisterLedger(stubHandlers(), deny, throttle).Setup()

	routes := make(map[string]bool)
	for _, info := range engine.Routes() {
		routes[info.Method+" "+info.Path] = true
	}

	t.Run("registers the ledger API", func(t *testing.T) {
		for _, route := range []string{
			"POST /api/v1/auth/token",
			"POST /api/v1/auth/revoke",
			"POST /api/v1/vouchers",
			"GET /api/v1/vouchers",
			"GET /api/v1/vouchers/:id",
			"DELETE /api/v1/vouchers/:id",
			"POST /api/v1/vouchers/:id/review",
			"POST /api/v1/vouchers/:id/revert",
			"POST /api/v1/vouchers/:id/confirm",
			"POST /api/v1/vouchers/:id/void",
			"POST /api/v1/vouchers/:id/approval",
			"POST /api/v1/vouchers/archive",
			"POST /api/v1/periods/:period/close",
			"POST /api/v1/periods/:period/reopen",
			"POST /api/v1/periods/:period/adjustment",
			"POST /api/v1/periods/:period/adjustments",
			"GET /api/v1/balances",
			"GET /api/v1/reports/trial-balance",
			"POST /api/v1/reports/template",
			"POST /api/v1/fx/rates",
			"POST /api/v1/fx/revalue",
			"POST /api/v1/consolidations",
			"POST /api/v1/allocations",
			"GET /api/v1/accounts",
			"POST /api/v1/accounts",
			"POST /api/v1/accounts/:code/disable",
			"POST /api/v1/dimensions",
			"PUT /api/v1/budgets",
			"PUT /api/v1/audit-rules",
			"PUT /api/v1/companies",
			"PUT /api/v1/consolidation-rules",
			"PUT /api/v1/report-templates",
		} {
			assert.True(t, routes[route], "missing route %s", route)
		}
	})

	t.Run("everything but token issuance requires authentication", func(t *testing.T) {
		assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodPost, "/api/v1/auth/token").Code)
		for _, tt := range []struct{ method, path string }{
			{http.MethodPost, "/api/v1/auth/revoke"},
			{http.MethodGet, "/api/v1/vouchers"},
			{http.MethodPost, "/api/v1/vouchers/archive"},
			{http.MethodPost, "/api/v1/periods/2024-01/close"},
			{http.MethodGet, "/api/v1/balances?period=2024-01"},
			{http.MethodPost, "/api/v1/consolidations"},
			{http.MethodPut, "/api/v1/budgets"},
		} {
			assert.Equal(t, http.StatusUnauthorized, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})
}
