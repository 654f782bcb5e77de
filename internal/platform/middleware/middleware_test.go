package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapel/pkg/callerctx"
)

func TestRequestID(t *testing.T) {
	t.Run("generates when absent", func(t *testing.T) {
		var captured string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
	})

	t.Run("reuses incoming header", func(t *testing.T) {
		var captured string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "req-42", captured)
	})
}

func TestCallerContext(t *testing.T) {
	t.Run("authenticated request", func(t *testing.T) {
		var caller callerctx.Caller
		var present bool
		h := CallerContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, present = callerctx.Current(r.Context())
		}))

		req := httptest.NewRequest(http.MethodPost, "/content", nil)
		req = req.WithContext(WithIdentity(req.Context(), "admin", "editor"))
		req.Header.Set("User-Agent", "Mozilla/5.0")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, present)
		assert.Equal(t, "admin", caller.Actor)
		assert.Equal(t, "203.0.113.9", caller.SourceAddress)
		assert.Equal(t, "Mozilla/5.0", caller.AgentString)
	})

	t.Run("anonymous request still carries origin", func(t *testing.T) {
		var caller callerctx.Caller
		var present bool
		h := CallerContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, present = callerctx.Current(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/content", nil)
		req.RemoteAddr = "192.0.2.7:58123"
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, present)
		assert.True(t, caller.Anonymous())
		assert.Equal(t, "192.0.2.7", caller.SourceAddress)
	})
}

func TestClientIPFromRequest(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(r *http.Request)
		expect string
	}{
		{
			name:   "x-forwarded-for single",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.4") },
			expect: "198.51.100.4",
		},
		{
			name:   "x-forwarded-for chain takes first",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1") },
			expect: "198.51.100.4",
		},
		{
			name:   "x-real-ip",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.9") },
			expect: "198.51.100.9",
		},
		{
			name:   "remote addr ipv6",
			setup:  func(r *http.Request) { r.RemoteAddr = "[::1]:9000" },
			expect: "::1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			assert.Equal(t, tc.expect, ClientIPFromRequest(req))
		})
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticValidator struct{ claims *JWTClaims }

func (v staticValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, nil
}

func TestRequireAuth(t *testing.T) {
	t.Run("missing header rejected", func(t *testing.T) {
		h := RequireAuth(staticValidator{&JWTClaims{Username: "admin"}}, testLogger())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes identity", func(t *testing.T) {
		var username string
		h := RequireAuth(staticValidator{&JWTClaims{Username: "admin", Role: "editor"}}, testLogger())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				username = GetUsername(r.Context())
			}),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin", username)
	})
}
