// Package handler exposes the audit reporting endpoints. It depends on the
// ledgers' read-only interfaces, so reporting code cannot mutate either
// ledger.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chapel/internal/assetlog"
	"chapel/internal/platform/middleware"
	"chapel/internal/provenance"
	dErrors "chapel/pkg/domain-errors"
	"chapel/pkg/platform/httputil"
)

const defaultPageSize = 100

type Handler struct {
	logger       *slog.Logger
	events       provenance.Reader
	assets       assetlog.Reader
	jwtValidator middleware.JWTValidator
}

func New(events provenance.Reader, assets assetlog.Reader, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		events:       events,
		assets:       assets,
		jwtValidator: jwtValidator,
	}
}

// Register adds the reporting routes to the router. All of them require
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/admin/events", h.handleListEvents)
		r.Get("/admin/assets", h.handleListAssets)
	})
}

type eventResponse struct {
	ID            int64              `json:"id"`
	Actor         string             `json:"actor,omitempty"`
	Kind          string             `json:"kind"`
	EntityKind    string             `json:"entity_kind,omitempty"`
	EntityID      int64              `json:"entity_id,omitempty"`
	Summary       string             `json:"summary"`
	Delta         provenance.Changes `json:"delta,omitempty"`
	SourceAddress string             `json:"source_address,omitempty"`
	AgentString   string             `json:"agent_string,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := provenance.Filter{
		Actor:      query.Get("actor"),
		EntityKind: query.Get("entity_kind"),
		Limit:      defaultPageSize,
	}
	if raw := query.Get("kind"); raw != "" {
		kind := provenance.Kind(raw)
		if !kind.Valid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown event kind"))
			return
		}
		filter.Kind = kind
	}
	var err error
	if filter.Since, err = parseTime(query.Get("since")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.Until, err = parseTime(query.Get("until")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.Limit, err = parseLimit(query.Get("limit")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.events.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list events failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list events"))
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:            e.ID,
			Actor:         e.Actor,
			Kind:          string(e.Kind),
			EntityKind:    e.EntityKind,
			EntityID:      e.EntityID,
			Summary:       e.Summary,
			Delta:         e.Delta,
			SourceAddress: e.SourceAddress,
			AgentString:   e.AgentString,
			OccurredAt:    e.OccurredAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type assetResponse struct {
	ID         int64     `json:"id"`
	EntityKind string    `json:"entity_kind"`
	EntityID   int64     `json:"entity_id"`
	FieldName  string    `json:"field_name"`
	Location   string    `json:"location"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := assetlog.Filter{
		EntityKind: query.Get("entity_kind"),
		UploadedBy: query.Get("uploaded_by"),
		Limit:      defaultPageSize,
	}
	if raw := query.Get("entity_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity_id"))
			return
		}
		filter.EntityID = id
	}
	if raw := query.Get("min_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || size < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid min_size"))
			return
		}
		filter.MinSizeBytes = size
	}
	var err error
	if filter.Since, err = parseTime(query.Get("since")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.Limit, err = parseLimit(query.Get("limit")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.assets.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list asset records failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list asset records"))
		return
	}

	out := make([]assetResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, assetResponse{
			ID:         rec.ID,
			EntityKind: rec.Entity.Kind,
			EntityID:   rec.Entity.ID,
			FieldName:  rec.FieldName,
			Location:   rec.Location,
			SizeBytes:  rec.SizeBytes,
			UploadedBy: rec.UploadedBy,
			RecordedAt: rec.RecordedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "timestamps must be RFC 3339")
	}
	return t, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultPageSize, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid limit")
	}
	return limit, nil
}
