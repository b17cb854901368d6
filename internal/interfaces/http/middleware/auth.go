package middleware

import (
	"context"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ClaimsKey     = "auth_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// BearerAuth rejects requests without a valid, unrevoked token. The token's
// ledger scope and subject become the request's scope and actor.
func BearerAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithError(c, auth.ErrAuthRequired)
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortWithError(c, auth.ErrInvalidToken)
			return
		}

		ctx := c.Request.Context()
		claims, err := tokens.Validate(ctx, strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix)))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ClaimsKey, claims)
		scope := claims.Scope()
		ctx = shared.WithScope(ctx, scope)
		ctx = shared.WithActor(ctx, claims.Actor())
		ctx = logger.WithScope(ctx, scope.TenantID, scope.OrgID)
		ctx = logger.WithActor(ctx, claims.Actor())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClaims returns the claims stored by BearerAuth
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// abortWithError answers with the standard error body for err
func abortWithError(c *gin.Context, err error) {
	status, body := dto.FromError(err, GetRequestID(c))
	if status >= 500 {
		logger.L(c.Request.Context()).Error("token validation failed", zap.Error(err))
	} else {
		logger.L(c.Request.Context()).Debug("authentication rejected",
			zap.String("code", body.Error),
			zap.String("path", c.Request.URL.Path),
		)
	}
	c.AbortWithStatusJSON(status, body)
}
