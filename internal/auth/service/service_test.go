package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"chapel/internal/assetlog"
	"chapel/internal/audit"
	"chapel/internal/auth"
	"chapel/internal/auth/lockout"
	"chapel/internal/auth/token"
	"chapel/internal/platform/metrics"
	"chapel/internal/provenance"
	dErrors "chapel/pkg/domain-errors"
)

const testPassword = "correct horse battery staple"

type AuthServiceSuite struct {
	suite.Suite
	users    *auth.InMemoryStore
	events   *provenance.InMemoryStore
	lockouts *lockout.MemoryTracker
	tokens   *token.Service
	svc      *Service
}

func (s *AuthServiceSuite) SetupTest() {
	s.users = auth.NewInMemoryStore()
	s.events = provenance.NewInMemoryStore()
	s.lockouts = lockout.NewMemoryTracker(3, time.Minute)
	s.tokens = token.NewService("test-signing-key", "chapel", time.Hour)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	observer := audit.NewObserver(
		s.events,
		assetlog.NewInMemoryStore(),
		audit.DefaultRegistry(),
		logger,
		metrics.New(prometheus.NewRegistry()),
		audit.Config{},
	)
	s.svc = New(s.users, s.tokens, s.lockouts, observer, logger, metrics.New(prometheus.NewRegistry()))

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), &auth.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         auth.RoleAdmin,
		Active:       true,
	}))
}

func (s *AuthServiceSuite) login(password string) (string, error) {
	return s.svc.Login(context.Background(), Request{
		Username:      "admin",
		Password:      password,
		SourceAddress: "203.0.113.9",
		AgentString:   "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
	})
}

func (s *AuthServiceSuite) TestLoginSuccessRecordsEvent() {
	signed, err := s.login(testPassword)
	s.Require().NoError(err)

	claims, err := s.tokens.Validate(signed)
	s.Require().NoError(err)
	s.Equal("admin", claims.Username)
	s.Equal(auth.RoleAdmin, claims.Role)

	events, err := s.events.List(context.Background(), provenance.Filter{Kind: provenance.KindLogin})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("admin", events[0].Actor)
	s.Equal("203.0.113.9", events[0].SourceAddress)
	s.Empty(events[0].EntityKind)
	s.Zero(events[0].EntityID)
}

func (s *AuthServiceSuite) TestLoginFailureRecordsAccessDenied() {
	_, err := s.login("wrong password")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	events, listErr := s.events.List(context.Background(), provenance.Filter{Kind: provenance.KindAccessDenied})
	s.Require().NoError(listErr)
	s.Require().Len(events, 1)
	s.Equal("admin", events[0].Actor)
}

func (s *AuthServiceSuite) TestUnknownUserIndistinguishable() {
	_, err := s.svc.Login(context.Background(), Request{Username: "ghost", Password: "x"})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestInactiveUserRejected() {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), &auth.User{
		Username:     "former",
		PasswordHash: string(hash),
		Role:         auth.RoleEditor,
	}))

	_, err = s.svc.Login(context.Background(), Request{Username: "former", Password: testPassword})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestLockoutAfterRepeatedFailures() {
	for i := 0; i < 3; i++ {
		_, err := s.login("wrong password")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	}

	// Correct password no longer helps while locked.
	_, err := s.login(testPassword)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))

	denied, listErr := s.events.List(context.Background(), provenance.Filter{Kind: provenance.KindAccessDenied})
	s.Require().NoError(listErr)
	s.Len(denied, 4)
}

func (s *AuthServiceSuite) TestSuccessClearsLockoutCounter() {
	for i := 0; i < 2; i++ {
		_, err := s.login("wrong password")
		s.Require().Error(err)
	}
	_, err := s.login(testPassword)
	s.Require().NoError(err)

	locked, err := s.lockouts.Locked(context.Background(), "admin")
	s.Require().NoError(err)
	s.False(locked)
}

func (s *AuthServiceSuite) TestLogoutRecordsEvent() {
	s.svc.Logout(context.Background(), "admin", "203.0.113.9", "Mozilla/5.0")

	events, err := s.events.List(context.Background(), provenance.Filter{Kind: provenance.KindLogout})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("admin", events[0].Actor)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func TestDescribeAgent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: "unknown"},
		{
			name: "chrome on windows",
			raw:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: "Chrome 120.0.0.0 on Windows 10",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DescribeAgent(tc.raw); got != tc.want {
				t.Fatalf("DescribeAgent(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
