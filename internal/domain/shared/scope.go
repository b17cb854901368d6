package shared

import "context"

// DefaultTenant and DefaultOrg are used when a caller does not name a scope.
const (
	DefaultTenant = "default"
	DefaultOrg    = "default"
)

// Scope identifies one ledger: every row is owned by exactly one (tenant, org) pair.
type Scope struct {
	TenantID string `json:"tenant_id"`
	OrgID    string `json:"org_id"`
}

// NewScope builds a scope, falling back to the single-tenant defaults for empty parts
func NewScope(tenantID, orgID string) Scope {
	if tenantID == "" {
		tenantID = DefaultTenant
	}
	if orgID == "" {
		orgID = DefaultOrg
	}
	return Scope{TenantID: tenantID, OrgID: orgID}
}

// String renders the scope as tenant/org
func (s Scope) String() string {
	return s.TenantID + "/" + s.OrgID
}

type scopeKey struct{}
type actorKey struct{}

// WithScope attaches the caller's scope to ctx
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope attached to ctx or the default scope
func ScopeFromContext(ctx context.Context) Scope {
	if scope, ok := ctx.Value(scopeKey{}).(Scope); ok {
		return scope
	}
	return NewScope("", "")
}

// WithActor attaches the acting principal's name to ctx
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting principal or "system"
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
