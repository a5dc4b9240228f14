// Package middleware carries the HTTP auth layers: JWT bearer tokens
// for operator endpoints and per-FI API keys for FI-facing endpoints.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates operator bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*AdminClaims, error)
}

// APIKeyVerifier checks an FI-presented credential.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, id, apiKey string) error
}

type contextKeyActor struct{}
type contextKeyFIID struct{}

// GetActor returns the authenticated operator subject, if any.
func GetActor(ctx context.Context) string {
	actor, ok := ctx.Value(contextKeyActor{}).(string)
	if !ok {
		return ""
	}
	return actor
}

// GetFIID returns the FI authenticated by API key, if any.
func GetFIID(ctx context.Context) string {
	fiID, ok := ctx.Value(contextKeyFIID{}).(string)
	if !ok {
		return ""
	}
	return fiID
}

// RequireAdmin guards operator endpoints with a JWT bearer token.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing bearer token", "path", r.URL.Path)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"path", r.URL.Path,
					"error", err)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyActor{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFIKey guards FI-facing endpoints. The FI presents its id and
// one-time-issued API key in headers; the verified id lands in the
// request context.
func RequireFIKey(verifier APIKeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fiID := r.Header.Get("X-FI-ID")
			apiKey := r.Header.Get("X-API-Key")
			if fiID == "" || apiKey == "" {
				logger.WarnContext(ctx, "unauthorized access - missing fi credentials", "path", r.URL.Path)
				writeUnauthorized(w, "missing X-FI-ID or X-API-Key header")
				return
			}

			if err := verifier.VerifyAPIKey(ctx, fiID, apiKey); err != nil {
				logger.WarnContext(ctx, "unauthorized access - bad fi credentials",
					"path", r.URL.Path,
					"fi_id", fiID,
					"error", err)
				writeUnauthorized(w, "invalid fi credentials")
				return
			}

			ctx = context.WithValue(ctx, contextKeyFIID{}, fiID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
