package middleware

import (
	"context"
	"net/http"
	"recipe-server/handlers/auth"
	"strings"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.AppClaims, error)
}

// AuthJWT rejects requests without a valid bearer token and stores the verified claims in the
// request context.
func AuthJWT(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "Authorization header is required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				unauthorized(w, r, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				logrus.WithError(err).WithField("path", r.URL.Path).Debug("Rejected token")
				unauthorized(w, r, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), claims)))
		})
	}
}

// OwnerID returns the verified user id, or "" when the request is not filtered.
func OwnerID(ctx context.Context) string {
	if claims, ok := auth.FromContext(ctx); ok {
		return claims.Subject
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": msg})
}
