package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// Identity is the authenticated caller attached to a request after the
// bearer token has been verified.
type Identity struct {
	UserID string
	Role   models.Role
}

// Claims is the JWT payload we issue and accept. Role travels inside the
// token so protected handlers never need a user lookup just to authorize.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Gate signs and verifies bearer tokens. It is the only component that
// touches the signing secret.
type Gate struct {
	secret []byte
	ttl    time.Duration
}

func NewGate(secret string, ttl time.Duration) *Gate {
	return &Gate{secret: []byte(secret), ttl: ttl}
}

func (g *Gate) Sign(userID string, role models.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// Verify parses and validates a token and returns the caller identity.
// Every failure mode maps to models.ErrUnauthorized so transport code can
// translate uniformly without inspecting jwt internals.
func (g *Gate) Verify(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: token invalid", models.ErrUnauthorized)
	}
	if claims.UserID == "" || !models.ValidRole(claims.Role) {
		return Identity{}, fmt.Errorf("%w: malformed claims", models.ErrUnauthorized)
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// BearerFromHeader extracts the token from an Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func BearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type identityKey struct{}

// WithIdentity stores the verified caller on the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom retrieves the caller stored by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
