package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bahikhata/bahikhata/internal/platform/httpx"
)

const voucherEntity = "voucher"

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.timeline)
	r.Get("/vouchers/{id}/history", h.voucherHistory)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	h.respond(w, r, filters)
}

func (h *Handler) voucherHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid voucher id", "id must be a positive integer")
		return
	}
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	filters.Entity = voucherEntity
	filters.EntityID = strconv.FormatInt(id, 10)
	h.respond(w, r, filters)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, filters TimelineFilters) {
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("audit timeline failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(w http.ResponseWriter, r *http.Request) (TimelineFilters, bool) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	for key, dest := range map[string]*time.Time{"from": &filters.From, "to": &filters.To} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", key+" must be YYYY-MM-DD")
			return filters, false
		}
		*dest = t
	}
	for key, dest := range map[string]*int{"page": &filters.Page, "per_page": &filters.PageSize} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid paging", key+" must be an integer")
			return filters, false
		}
		*dest = n
	}
	if raw := q.Get("actor_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid actor", "actor_id must be an integer")
			return filters, false
		}
		filters.ActorID = n
	}
	return filters, true
}
