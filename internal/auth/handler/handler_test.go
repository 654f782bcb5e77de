package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"chapel/internal/assetlog"
	"chapel/internal/audit"
	"chapel/internal/auth"
	"chapel/internal/auth/lockout"
	authservice "chapel/internal/auth/service"
	"chapel/internal/auth/token"
	"chapel/internal/platform/metrics"
	"chapel/internal/provenance"
)

const testPassword = "correct horse battery staple"

func newAuthRouter(t *testing.T) (*chi.Mux, *provenance.InMemoryStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := provenance.NewInMemoryStore()
	observer := audit.NewObserver(
		events,
		assetlog.NewInMemoryStore(),
		audit.DefaultRegistry(),
		logger,
		metrics.New(prometheus.NewRegistry()),
		audit.Config{},
	)

	users := auth.NewInMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := users.Create(context.Background(), &auth.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         auth.RoleAdmin,
		Active:       true,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	tokens := token.NewService("test-signing-key", "chapel", time.Hour)
	svc := authservice.New(
		users,
		tokens,
		lockout.NewMemoryTracker(3, time.Minute),
		observer,
		logger,
		metrics.New(prometheus.NewRegistry()),
	)

	router := chi.NewRouter()
	New(svc, logger, token.NewMiddlewareAdapter(tokens), time.Hour).Register(router)
	return router, events
}

func postLogin(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesToken(t *testing.T) {
	router, events := newAuthRouter(t)

	rec := postLogin(t, router, "admin", testPassword)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Fatalf("expected bearer token in response, got %+v", resp)
	}

	logins, err := events.List(context.Background(), provenance.Filter{Kind: provenance.KindLogin})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(logins) != 1 || logins[0].SourceAddress != "203.0.113.9" {
		t.Fatalf("expected one LOGIN event from 203.0.113.9, got %+v", logins)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router, events := newAuthRouter(t)

	rec := postLogin(t, router, "admin", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}

	denied, err := events.List(context.Background(), provenance.Filter{Kind: provenance.KindAccessDenied})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(denied) != 1 {
		t.Fatalf("expected one ACCESS_DENIED event, got %d", len(denied))
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestLogoutRecordsEvent(t *testing.T) {
	router, events := newAuthRouter(t)

	loginRec := postLogin(t, router, "admin", testPassword)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(loginRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d", rec.Code)
	}

	logouts, err := events.List(context.Background(), provenance.Filter{Kind: provenance.KindLogout})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(logouts) != 1 || logouts[0].Actor != "admin" {
		t.Fatalf("expected one LOGOUT event by admin, got %+v", logouts)
	}
}
