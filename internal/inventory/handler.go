package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
	r.Get("/items/{id}/stock-card", h.stockCard)
}

type itemView struct {
	ID             int64  `json:"id"`
	Code           string `json:"item_code"`
	Name           string `json:"item_name"`
	Unit           string `json:"unit"`
	OpeningBalance string `json:"opening_balance"`
	QuantityOnHand string `json:"quantity_on_hand"`
	AvgCost        string `json:"avg_cost"`
	StockValue     string `json:"stock_value"`
	Display        string `json:"stock_value_display"`
	IsActive       bool   `json:"is_active"`
}

func newItemView(it Item) itemView {
	return itemView{
		ID:             it.ID,
		Code:           it.Code,
		Name:           it.Name,
		Unit:           it.Unit,
		OpeningBalance: it.OpeningBalance.StringFixed(money.QuantityScale),
		QuantityOnHand: it.QuantityOnHand.StringFixed(money.QuantityScale),
		AvgCost:        it.AvgCost.StringFixed(money.CostScale),
		StockValue:     money.String(it.Value()),
		Display:        money.FormatINR(it.Value()),
		IsActive:       it.IsActive,
	}
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ItemFilter{Query: q.Get("q")}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "active must be a boolean")
			return
		}
		filter.Active = &active
	}
	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]itemView, 0, len(items))
	for _, it := range items {
		views = append(views, newItemView(it))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": views})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newItemView(item))
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	filter := StockCardFilter{ItemID: id, Limit: 500}
	q := r.URL.Query()
	var err error
	if raw := q.Get("from"); raw != "" {
		if filter.From, err = time.Parse(time.DateOnly, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if filter.To, err = time.Parse(time.DateOnly, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
	}
	entries, err := h.service.GetStockCard(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []StockCardEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": id, "data": entries})
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Error("inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
