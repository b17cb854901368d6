package router

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the ledger API handlers
type Handlers struct {
	Auth          *handler.AuthHandler
	Vouchers      *handler.VoucherHandler
	Periods       *handler.PeriodHandler
	Reports       *handler.ReportHandler
	Fx            *handler.FxHandler
	Consolidation *handler.ConsolidationHandler
	Registry      *handler.RegistryHandler
	Allocation    *handler.AllocationHandler
}

// NewHandlers creates the handlers over svc
func NewHandlers(svc *ledgerapp.Services, tokens handler.TokenIssuer) Handlers {
	return Handlers{
		Auth:          handler.NewAuthHandler(tokens),
		Vouchers:      handler.NewVoucherHandler(svc.Vouchers),
		Periods:       handler.NewPeriodHandler(svc.Periods),
		Reports:       handler.NewReportHandler(svc.Reports),
		Fx:            handler.NewFxHandler(svc.Fx),
		Consolidation: handler.NewConsolidationHandler(svc.Consolidation),
		Registry:      handler.NewRegistryHandler(svc.Registry),
		Allocation:    handler.NewAllocationHandler(svc.Allocation),
	}
}

// LedgerGroups builds the route groups of the ledger API. Every group
// except token issuance sits behind authn. issueGuard runs before token
// issuance and may be nil.
func LedgerGroups(h Handlers, authn, issueGuard gin.HandlerFunc) []*DomainGroup {
	authGroup := NewDomainGroup("/auth")
	if issueGuard != nil {
		authGroup.POST("/token", issueGuard, h.Auth.IssueToken)
	} else {
		authGroup.POST("/token", h.Auth.IssueToken)
	}
	authGroup.POST("/revoke", authn, h.Auth.RevokeToken)

	vouchers := NewDomainGroup("/vouchers").Use(authn).
		POST("", h.Vouchers.Create).
		GET("", h.Vouchers.List).
		POST("/archive", h.Vouchers.Archive).
		GET("/:id", h.Vouchers.Get).
		DELETE("/:id", h.Vouchers.Delete).
		POST("/:id/review", h.Vouchers.Review).
		POST("/:id/revert", h.Vouchers.Revert).
		POST("/:id/confirm", h.Vouchers.Confirm).
		POST("/:id/void", h.Vouchers.Void).
		POST("/:id/approval", h.Vouchers.Decide)

	periods := NewDomainGroup("/periods").Use(authn).
		POST("/:period/close", h.Periods.Close).
		POST("/:period/reopen", h.Periods.Reopen).
		POST("/:period/adjustment", h.Periods.Adjustment).
		POST("/:period/adjustments", h.Periods.PostAdjustment)

	balances := NewDomainGroup("/balances").Use(authn).
		GET("", h.Reports.Balances)

	reports := NewDomainGroup("/reports").Use(authn).
		GET("/trial-balance", h.Reports.TrialBalance).
		POST("/template", h.Reports.Template)

	fx := NewDomainGroup("/fx").Use(authn).
		POST("/rates", h.Fx.AddRate).
		POST("/revalue", h.Fx.Revalue)

	consolidations := NewDomainGroup("/consolidations").Use(authn).
		POST("", h.Consolidation.Consolidate)

	allocations := NewDomainGroup("/allocations").Use(authn).
		POST("", h.Allocation.Allocate)

	accounts := NewDomainGroup("/accounts").Use(authn).
		GET("", h.Registry.ListAccounts).
		POST("", h.Registry.AddAccount).
		POST("/:code/disable", h.Registry.DisableAccount)

	registry := NewDomainGroup("").Use(authn).
		POST("/dimensions", h.Registry.AddDimension).
		PUT("/budgets", h.Registry.SetBudget).
		PUT("/audit-rules", h.Registry.AddAuditRule).
		PUT("/companies", h.Registry.RegisterCompany).
		PUT("/consolidation-rules", h.Registry.SaveConsolidationRule).
		PUT("/report-templates", h.Registry.SaveReportTemplate)

	return []*DomainGroup{
		authGroup, vouchers, periods, balances, reports, fx,
		consolidations, allocations, accounts, registry,
	}
}

// RegisterLedger adds the ledger API groups to r
func (r *Router) RegisterLedger(h Handlers, authn, issueGuard gin.HandlerFunc) *Router {
	for _, g := range LedgerGroups(h, authn, issueGuard) {
		r.Register(g)
	}
	return r
}
