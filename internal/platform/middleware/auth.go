package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mimir/internal/auth"
)

// TokenVerifier validates a bearer credential and authorizes the resulting
// principal. Implemented by internal/auth; an interface here keeps handler
// tests free of real JWT wiring.
type TokenVerifier interface {
	Enabled() bool
	Verify(token string) (*auth.Principal, error)
	VerifyAPIKey(key string) (*auth.Principal, error)
	Authorize(p *auth.Principal) error
}

type contextKeyPrincipal struct{}

// ContextKeyPrincipal is exported for use in handlers.
var ContextKeyPrincipal = contextKeyPrincipal{}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) *auth.Principal {
	p, ok := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	if !ok {
		return nil
	}
	return p
}

// RequireAuth verifies the bearer token and checks group membership or the
// certificate CN allowlist. When the verifier is disabled (no signing key
// configured) requests pass through, preserving the original deployment's
// local bypass.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			requestID := GetRequestID(ctx)

			token := bearerToken(r)
			if token == "" {
				if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
					principal, err := verifier.VerifyAPIKey(apiKey)
					if err != nil {
						logger.WarnContext(ctx, "unauthorized access - unknown api key",
							"request_id", requestID,
						)
						writeAuthError(w, http.StatusUnauthorized, "Invalid API key")
						return
					}
					ctx = context.WithValue(ctx, ContextKeyPrincipal, principal)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeAuthError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if err := verifier.Authorize(principal); err != nil {
				logger.WarnContext(ctx, "forbidden - principal not allowed",
					"subject", principal.Subject,
					"request_id", requestID,
				)
				writeAuthError(w, http.StatusForbidden, "Authenticated caller is not allowed access")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from the Authorization header. The
// legacy "sso-jwt" scheme is accepted alongside standard Bearer tokens.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if after, ok := strings.CutPrefix(header, "sso-jwt "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	code := "unauthorized"
	if status == http.StatusForbidden {
		code = "forbidden"
	}
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + description + `"}`))
}
