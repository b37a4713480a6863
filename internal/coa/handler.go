package coa

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/platform/httpx"
)

// Handler serves the chart of accounts over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers chart of accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/groups", h.listGroups)
	r.Get("/groups/{code}", h.getGroup)
	r.Get("/ledgers", h.listLedgers)
	r.Get("/ledgers/{id}", h.getLedger)
}

// LedgerView is the JSON shape of a ledger.
type LedgerView struct {
	ID             int64       `json:"id"`
	Name           string      `json:"ledger_name"`
	Code           string      `json:"ledger_code"`
	GroupID        int64       `json:"account_group_id"`
	GroupCode      string      `json:"group_code"`
	OpeningBalance string      `json:"opening_balance"`
	CurrentBalance string      `json:"current_balance"`
	Display        string      `json:"current_balance_display"`
	BalanceType    BalanceType `json:"balance_type"`
	IsActive       bool        `json:"is_active"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewLedgerView converts a ledger for output.
func NewLedgerView(l Ledger) LedgerView {
	return LedgerView{
		ID:             l.ID,
		Name:           l.Name,
		Code:           l.Code,
		GroupID:        l.GroupID,
		GroupCode:      l.GroupCode,
		OpeningBalance: money.String(l.OpeningBalance),
		CurrentBalance: money.String(l.CurrentBalance),
		Display:        money.FormatINR(l.CurrentBalance),
		BalanceType:    l.BalanceType,
		IsActive:       l.IsActive,
		UpdatedAt:      l.UpdatedAt,
	}
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if groups == nil {
		groups = []AccountGroup{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": groups})
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) listLedgers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := LedgerFilter{GroupCode: q.Get("group"), Query: q.Get("q")}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "active must be a boolean")
			return
		}
		filter.Active = &active
	}
	ledgers, err := h.service.ListLedgers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]LedgerView, 0, len(ledgers))
	for _, l := range ledgers {
		views = append(views, NewLedgerView(l))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": views})
}

func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ledger id")
		return
	}
	ledger, err := h.service.GetLedger(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewLedgerView(ledger))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Warn("coa request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
