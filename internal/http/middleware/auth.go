package middleware

import (
	"context"
	"net/http"
	"strings"

	"kbadmin/internal/auth"
	"kbadmin/internal/logging"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Auth rejects requests without a valid bearer token and places the
// username and session id on the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), logging.UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, logging.SessionKey, claims.Session())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session id set by Auth.
func SessionFromContext(ctx context.Context) string {
	session, _ := ctx.Value(logging.SessionKey).(string)
	return session
}

// UsernameFromContext returns the username set by Auth.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(logging.UsernameKey).(string)
	return username
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
