// Package handler exposes the sign-in and sign-out endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authservice "chapel/internal/auth/service"
	"chapel/internal/platform/middleware"
	dErrors "chapel/pkg/domain-errors"
	"chapel/pkg/platform/httputil"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Login(ctx context.Context, req authservice.Request) (string, error)
	Logout(ctx context.Context, username, sourceAddress, agentString string)
}

type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.JWTValidator
	tokenTTL     time.Duration
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, tokenTTL time.Duration) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
		tokenTTL:     tokenTTL,
	}
}

// Register adds the auth routes to the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(middleware.ContentTypeJSON)

		r.Post("/auth/login", h.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			r.Post("/auth/logout", h.handleLogout)
		})
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	signed, err := h.service.Login(ctx, authservice.Request{
		Username:      req.Username,
		Password:      req.Password,
		SourceAddress: middleware.ClientIPFromRequest(r),
		AgentString:   r.Header.Get("User-Agent"),
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "login failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.service.Logout(ctx,
		middleware.GetUsername(ctx),
		middleware.ClientIPFromRequest(r),
		r.Header.Get("User-Agent"),
	)
	w.WriteHeader(http.StatusNoContent)
}
