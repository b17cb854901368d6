package handler

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IssuerKeyHeader carries the key that authorizes token issuance
const IssuerKeyHeader = "X-Issuer-Key"

// TokenIssuer issues and revokes scoped bearer tokens
type TokenIssuer interface {
	Issue(issuerKey string, scope shared.Scope, subject string) (*auth.Token, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// AuthHandler handles token issuance and revocation
type AuthHandler struct {
	BaseHandler
	tokens TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// IssueToken handles POST /auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.IssueTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	scope := shared.Scope{TenantID: req.TenantID, OrgID: req.OrgID}
	token, err := h.tokens.Issue(c.GetHeader(IssuerKeyHeader), scope, req.Subject)
	if err != nil {
		logger.L(c.Request.Context()).Info("token issuance rejected",
			zap.String("tenant_id", scope.TenantID),
			zap.String("org_id", scope.OrgID),
			zap.String("client_ip", c.ClientIP()),
		)
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.TokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RevokeToken handles POST /auth/revoke. The presented token is revoked.
func (h *AuthHandler) RevokeToken(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.HandleError(c, auth.ErrAuthRequired)
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.StatusResponse{Status: "revoked"})
}
