package middleware

import (
	"net/http"
	"strings"

	"chapel/pkg/callerctx"
)

// CallerContext opens a fresh caller context for each request from the
// authenticated identity plus the request's network metadata. It must run
// after RequireAuth so the username is available; on unauthenticated routes
// it still records origin and agent with an anonymous actor.
func CallerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := callerctx.Begin(r.Context(), callerctx.Caller{
			Actor:         GetUsername(r.Context()),
			SourceAddress: ClientIPFromRequest(r),
			AgentString:   r.Header.Get("User-Agent"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP, looking through proxies
// and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may list client, proxy1, proxy2; the first entry is
	// the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" for IPv4 and "[::1]:port" for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
