// Package service implements sign-in and sign-out for staff accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"chapel/internal/audit"
	"chapel/internal/auth"
	"chapel/internal/auth/lockout"
	"chapel/internal/auth/token"
	"chapel/internal/platform/metrics"
	dErrors "chapel/pkg/domain-errors"
	"chapel/pkg/platform/sentinel"
)

// Request carries the credentials and request metadata of one sign-in
// attempt. Origin and agent arrive explicitly because the caller context is
// not established until authentication succeeds.
type Request struct {
	Username      string
	Password      string
	SourceAddress string
	AgentString   string
}

type Service struct {
	users    auth.Store
	tokens   *token.Service
	lockouts lockout.Tracker
	observer *audit.Observer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(
	users auth.Store,
	tokens *token.Service,
	lockouts lockout.Tracker,
	observer *audit.Observer,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		lockouts: lockouts,
		observer: observer,
		logger:   logger,
		metrics:  m,
	}
}

// Login verifies credentials and issues an access token. Every outcome is
// recorded: a success as a LOGIN event, a rejection as ACCESS_DENIED.
func (s *Service) Login(ctx context.Context, req Request) (string, error) {
	locked, err := s.lockouts.Locked(ctx, req.Username)
	if err != nil {
		// Lockout state is advisory. Redis being down must not lock
		// everyone out of the admin.
		s.logger.ErrorContext(ctx, "lockout check failed", "error", err)
	}
	if locked {
		s.observer.AccessDenied(ctx, req.Username, req.SourceAddress, req.AgentString,
			"Login rejected (account locked): "+req.Username)
		return "", dErrors.New(dErrors.CodeForbidden, "account temporarily locked")
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return "", fmt.Errorf("look up user: %w", err)
	}

	if user == nil || !user.Active || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.recordFailure(ctx, req)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if err := s.lockouts.Clear(ctx, req.Username); err != nil {
		s.logger.ErrorContext(ctx, "lockout clear failed", "error", err)
	}

	signed, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.observer.Login(ctx, user.Username, req.SourceAddress, req.AgentString)
	s.logger.InfoContext(ctx, "login",
		"username", user.Username,
		"client", DescribeAgent(req.AgentString),
	)
	return signed, nil
}

// Logout records the sign-out of the authenticated caller.
func (s *Service) Logout(ctx context.Context, username, sourceAddress, agentString string) {
	s.observer.Logout(ctx, username, sourceAddress, agentString)
}

func (s *Service) recordFailure(ctx context.Context, req Request) {
	s.metrics.LoginFailures.Inc()

	count, err := s.lockouts.RecordFailure(ctx, req.Username)
	if err != nil {
		s.logger.ErrorContext(ctx, "lockout record failed", "error", err)
	}

	s.observer.AccessDenied(ctx, req.Username, req.SourceAddress, req.AgentString,
		"Login failed: "+req.Username)
	s.logger.WarnContext(ctx, "login failed",
		"username", req.Username,
		"failures", count,
		"source", req.SourceAddress,
	)
}

// DescribeAgent renders a raw User-Agent header as a short human-readable
// label for the operational log.
func DescribeAgent(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	label := name
	if version != "" {
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " on " + os
	}
	return label
}
