package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/infra/security"
)

type TokenParser interface {
	Parse(raw string) (security.Claims, error)
}

type ctxKey struct{}

// WithClaims returns a context carrying the authenticated operator.
func WithClaims(ctx context.Context, c security.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFrom returns the operator set by Authenticate, if any.
func ClaimsFrom(ctx context.Context) (security.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(security.Claims)
	return c, ok
}

// Authenticate attaches claims for a valid bearer token. Requests without a
// valid token pass through anonymously; RequireAuth or the resolvers decide.
func Authenticate(tokens TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug("bearer token rejected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAuth answers 401 unless Authenticate found a valid token.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFrom(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer`)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"code":    "UNAUTHENTICATED",
				"message": "authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
