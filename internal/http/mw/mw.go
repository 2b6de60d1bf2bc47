// Package mw holds the HTTP middleware applied by cmd/price-tracker: bearer
// auth, the cron-secret boundary, and per-user interactive rate limiting.
package mw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/Rubayet19/price-tracker/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// Auth returns middleware that requires a valid bearer token and attaches
// its claims to the request context.
func Auth(verifier *auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("rejected request with invalid bearer token", "error", err)
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the verified claims attached by Auth.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// CronSecret returns middleware that requires the configured secret via
// either the X-Cron-Secret header or an Authorization: Bearer header. A
// blank configured secret rejects every request rather than allowing an
// unauthenticated cron surface.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if r.Header.Get("X-Cron-Secret") == secret || bearerToken(r) == secret {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		})
	}
}

// RateLimitByUser rate limits authenticated requests keyed by user id,
// falling back to the requesting IP when no auth claims are present.
// Must be applied after Auth to see claims.
func RateLimitByUser(requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := httprate.NewRateLimiter(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := ClaimsFromContext(r.Context()); claims != nil && claims.UserID != "" {
				return "user:" + claims.UserID, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
	return limiter.Handler
}
