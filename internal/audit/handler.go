package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Handler exposes the audit trail over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Delete("/", h.purge)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filters := Filters{
		Action:     q.Get("action"),
		TargetType: q.Get("target_type"),
		Page:       atoiDefault(q.Get("page"), 1),
		PerPage:    atoiDefault(q.Get("per_page"), 20),
	}
	if raw := q.Get("actor_id"); raw != "" {
		filters.ActorID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}

	result, err := h.service.List(r.Context(), actor, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	cutoff, err := time.Parse(time.RFC3339, r.URL.Query().Get("before"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid", "before must be an RFC3339 timestamp")
		return
	}

	deleted, err := h.service.PurgeBefore(r.Context(), actor, cutoff)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("audit purge", slog.Int64("deleted", deleted), slog.Int64("actor", actor.ID))
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
