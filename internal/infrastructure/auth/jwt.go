package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Authentication errors. They map to 401 at the HTTP boundary.
var (
	ErrAuthRequired = shared.NewDomainError(shared.CodeAuthRequired, "authentication required")
	ErrInvalidToken = shared.NewDomainError(shared.CodeAuthInvalid, "invalid or expired token")
	ErrInvalidKey   = shared.NewDomainError(shared.CodeAuthInvalid, "invalid issuer key")
	ErrRevoked      = shared.NewDomainError(shared.CodeAuthRevoked, "token has been revoked")
)

// Claims carries the ledger scope a token grants access to
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	OrgID    string `json:"org_id"`
}

// Scope returns the ledger scope of the token
func (c *Claims) Scope() shared.Scope {
	return shared.Scope{TenantID: c.TenantID, OrgID: c.OrgID}
}

// Actor returns the subject, or "api" when the token names none
func (c *Claims) Actor() string {
	if c.Subject == "" {
		return "api"
	}
	return c.Subject
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if remaining := c.ExpiresAt.Time.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Token is an issued bearer token
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues, validates and revokes scoped bearer tokens
type TokenService struct {
	secret        []byte
	issuer        string
	ttl           time.Duration
	issuerKeyHash []byte
	revocations   RevocationList
	now           func() time.Time
}

// NewTokenService creates a token service. An empty issuer key hash disables
// the issuer key check; config validation forbids that in production.
func NewTokenService(cfg config.AuthConfig, revocations RevocationList) *TokenService {
	if revocations == nil {
		revocations = NewInMemoryRevocationList()
	}
	return &TokenService{
		secret:        []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		ttl:           cfg.TokenTTL,
		issuerKeyHash: []byte(cfg.IssuerKeyHash),
		revocations:   revocations,
		now:           time.Now,
	}
}

// Issue signs a token for scope after checking the caller's issuer key
func (s *TokenService) Issue(issuerKey string, scope shared.Scope, subject string) (*Token, error) {
	if len(s.issuerKeyHash) > 0 {
		if issuerKey == "" {
			return nil, ErrAuthRequired
		}
		if err := bcrypt.CompareHashAndPassword(s.issuerKeyHash, []byte(issuerKey)); err != nil {
			return nil, ErrInvalidKey
		}
	}
	if strings.TrimSpace(scope.TenantID) == "" || strings.TrimSpace(scope.OrgID) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "tenant_id and org_id are required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID: scope.TenantID,
		OrgID:    scope.OrgID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses tokenString and rejects expired, foreign or revoked tokens
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrAuthRequired
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.TenantID == "" || claims.OrgID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blocks the token until it would have expired anyway
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := claims.RemainingTTL(s.now())
	if ttl == 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, ttl)
}

// HashIssuerKey produces the bcrypt hash stored in auth.issuer_key_hash
func HashIssuerKey(key string) (string, error) {
	if len(key) < 16 {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "issuer key must be at least 16 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
