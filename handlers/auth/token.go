package auth

import (
	"context"
	"errors"
	"fmt"
	"recipe-server/core"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// AppClaims represents the custom claims for the JWT. The subject is the user id.
type AppClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Manager issues and verifies HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	if secret == "" {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
	return &Manager{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

func (m *Manager) Issue(user core.User) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}

	now := m.now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: user.Username,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses a token string. Every failure is reported as core.ErrUnauthorized.
func (m *Manager) Verify(tokenString string) (*AppClaims, error) {
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is not configured", core.ErrUnauthorized)
	}

	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", core.ErrUnauthorized)
	}
	return claims, nil
}

type contextKey string

const claimsContextKey = contextKey("claims")

// NewContext returns a copy of ctx carrying the verified claims.
func NewContext(ctx context.Context, claims *AppClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// FromContext returns the claims stored by NewContext, if any.
func FromContext(ctx context.Context) (*AppClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AppClaims)
	return claims, ok && claims != nil
}
