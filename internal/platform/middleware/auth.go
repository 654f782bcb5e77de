package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator validates a bearer token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the middleware needs from a validated token.
type JWTClaims struct {
	Username string
	Role     string
}

type contextKeyUsername struct{}
type contextKeyRole struct{}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(contextKeyUsername{}).(string)
	return username
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(contextKeyRole{}).(string)
	return role
}

// WithIdentity injects an authenticated identity into a context. Useful for
// service tests that skip the HTTP chain.
func WithIdentity(ctx context.Context, username, role string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUsername{}, username)
	return context.WithValue(ctx, contextKeyRole{}, role)
}

// DeniedRecorder notes a rejected request in the provenance ledger.
type DeniedRecorder interface {
	AccessDenied(ctx context.Context, actor, sourceAddress, agentString, detail string)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated identity in the context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireAuth(validator, logger, nil)
}

// RequireAuthRecorded is RequireAuth for routes that mutate tracked entities:
// every rejection additionally lands in the provenance ledger as an
// ACCESS_DENIED event.
func RequireAuthRecorded(validator JWTValidator, logger *slog.Logger, recorder DeniedRecorder) func(http.Handler) http.Handler {
	return requireAuth(validator, logger, recorder)
}

func requireAuth(validator JWTValidator, logger *slog.Logger, recorder DeniedRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				recordDenied(ctx, recorder, r, "missing token")
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				recordDenied(ctx, recorder, r, "invalid token")
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, claims.Username, claims.Role)))
		})
	}
}

// recordDenied reports the rejection with no actor: the request never proved
// an identity.
func recordDenied(ctx context.Context, recorder DeniedRecorder, r *http.Request, reason string) {
	if recorder == nil {
		return
	}
	recorder.AccessDenied(ctx, "",
		ClientIPFromRequest(r),
		r.Header.Get("User-Agent"),
		"Denied "+r.Method+" "+r.URL.Path+": "+reason,
	)
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
