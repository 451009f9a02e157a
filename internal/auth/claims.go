package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is set on every token minted by hvpsu.
const Issuer = "hvpsu"

// DefaultTTL applies when GenerateAccessToken is given a non-positive TTL.
const DefaultTTL = 60 * time.Minute

// CustomClaims extends JWT standard claims with the caller's role.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// GenerateAccessToken creates a signed HS256 token for subject with role.
// Tokens are validated by signature only; there is no revocation list.
func GenerateAccessToken(subject string, role Role, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	if !IsValidRole(role) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token's signature, expiry, issuer and required
// fields and returns its claims.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims, or nil.
func ClaimsFromContext(ctx context.Context) *CustomClaims {
	claims, _ := ctx.Value(claimsKey{}).(*CustomClaims)
	return claims
}
