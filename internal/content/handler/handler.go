// Package handler exposes the content CRUD endpoints. Mutations require
// authentication; reads are public.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chapel/internal/content"
	"chapel/internal/platform/middleware"
	dErrors "chapel/pkg/domain-errors"
	"chapel/pkg/platform/httputil"
)

// Service defines the content operations the handler depends on.
type Service interface {
	Create(ctx context.Context, item *content.Item) (*content.Item, error)
	Update(ctx context.Context, item *content.Item) (*content.Item, error)
	Delete(ctx context.Context, kind string, id int64) error
	Get(ctx context.Context, kind string, id int64) (*content.Item, error)
	List(ctx context.Context, f content.Filter) ([]*content.Item, error)
}

type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.JWTValidator
	denied       middleware.DeniedRecorder
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, denied middleware.DeniedRecorder) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
		denied:       denied,
	}
}

// Register adds the content routes to the router. Registration happens in a
// group so the middleware chain stays local to these routes and several
// handlers can share one parent router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)

		r.Get("/content/{kind}", h.handleList)
		r.Get("/content/{kind}/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthRecorded(h.jwtValidator, h.logger, h.denied))
			r.Use(middleware.CallerContext)
			r.Post("/content/{kind}", h.handleCreate)
			r.Put("/content/{kind}/{id}", h.handleUpdate)
			r.Delete("/content/{kind}/{id}", h.handleDelete)
		})
	})
}

type itemRequest struct {
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Attrs map[string]string       `json:"attrs"`
	Files map[string]content.File `json:"files"`
}

type itemResponse struct {
	ID        int64                   `json:"id"`
	Kind      string                  `json:"kind"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body,omitempty"`
	Attrs     map[string]string       `json:"attrs,omitempty"`
	Files     map[string]content.File `json:"files,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func toResponse(item *content.Item) itemResponse {
	return itemResponse{
		ID:        item.ID,
		Kind:      item.Kind,
		Title:     item.Title,
		Body:      item.Body,
		Attrs:     item.Attrs,
		Files:     item.Files,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.service.Create(ctx, &content.Item{
		Kind:  chi.URLParam(r, "kind"),
		Title: req.Title,
		Body:  req.Body,
		Attrs: req.Attrs,
		Files: req.Files,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create content", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(item))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.service.Update(ctx, &content.Item{
		ID:    id,
		Kind:  chi.URLParam(r, "kind"),
		Title: req.Title,
		Body:  req.Body,
		Attrs: req.Attrs,
		Files: req.Files,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "update content", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(item))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, chi.URLParam(r, "kind"), id); err != nil {
		h.writeServiceError(ctx, w, "delete content", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	item, err := h.service.Get(ctx, chi.URLParam(r, "kind"), id)
	if err != nil {
		h.writeServiceError(ctx, w, "get content", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(item))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f := content.Filter{Kind: chi.URLParam(r, "kind")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid limit"))
			return
		}
		f.Limit = limit
	}

	items, err := h.service.List(ctx, f)
	if err != nil {
		h.writeServiceError(ctx, w, "list content", err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}
