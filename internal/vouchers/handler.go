package vouchers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/platform/httpx"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// IdempotencyHeader lets clients retry draft creation safely.
const IdempotencyHeader = "Idempotency-Key"

// Handler serves voucher endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	// postLimit is the per-IP requests per minute allowed on post and cancel.
	postLimit int
}

// NewHandler constructs Handler. postLimit <= 0 disables the extra limit on
// post and cancel.
func NewHandler(logger *slog.Logger, service *Service, postLimit int) *Handler {
	return &Handler{logger: logger, service: service, validator: newValidator(), postLimit: postLimit}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vouchers", h.list)
	r.Post("/vouchers", h.create)
	r.Get("/vouchers/{id}", h.get)
	r.Put("/vouchers/{id}", h.update)
	r.Delete("/vouchers/{id}", h.delete)
	r.Post("/vouchers/{id}/validate", h.validate)

	var limited chi.Router = r
	if h.postLimit > 0 {
		limited = r.With(httprate.LimitByIP(h.postLimit, time.Minute))
	}
	limited.Post("/vouchers/{id}/post", h.post)
	limited.Post("/vouchers/{id}/cancel", h.cancel)
}

type entryView struct {
	LineNo   int    `json:"line_no"`
	LedgerID int64  `json:"ledger_id"`
	Debit    string `json:"debit"`
	Credit   string `json:"credit"`
}

type itemView struct {
	LineNo   int    `json:"line_no"`
	ItemID   int64  `json:"item_id"`
	Quantity string `json:"quantity"`
	Rate     string `json:"rate"`
	Amount   string `json:"amount"`
}

type ledgerEntryView struct {
	ID              int64     `json:"id"`
	LedgerID        int64     `json:"ledger_id"`
	Debit           string    `json:"debit"`
	Credit          string    `json:"credit"`
	Kind            EntryKind `json:"entry_kind"`
	ReversesEntryID *int64    `json:"reverses_entry_id,omitempty"`
	EntryDate       string    `json:"entry_date"`
}

type movementView struct {
	ItemID       int64     `json:"item_id"`
	Kind         EntryKind `json:"entry_kind"`
	Direction    string    `json:"direction"`
	Quantity     string    `json:"quantity"`
	Rate         string    `json:"rate"`
	Amount       string    `json:"amount"`
	QtyAfter     string    `json:"qty_after"`
	AvgCostAfter string    `json:"avg_cost_after"`
	Date         string    `json:"movement_date"`
}

type voucherView struct {
	ID             int64             `json:"id"`
	Number         string            `json:"voucher_number"`
	Type           Type              `json:"voucher_type"`
	Date           string            `json:"voucher_date"`
	Status         Status            `json:"status"`
	TotalAmount    string            `json:"total_amount"`
	Display        string            `json:"total_amount_display"`
	PartyLedgerID  *int64            `json:"party_ledger_id,omitempty"`
	Narration      string            `json:"narration,omitempty"`
	Reference      string            `json:"reference,omitempty"`
	PostedAt       *time.Time        `json:"posted_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	CancelDate     string            `json:"cancel_date,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	Entries        []entryView       `json:"entries,omitempty"`
	Items          []itemView        `json:"items,omitempty"`
	LedgerEntries  []ledgerEntryView `json:"ledger_entries,omitempty"`
	StockMovements []movementView    `json:"stock_movements,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
}

func newVoucherView(v Voucher) voucherView {
	view := voucherView{
		ID:            v.ID,
		Number:        v.Number,
		Type:          v.Type,
		Date:          v.Date.Format(dateLayout),
		Status:        v.Status,
		TotalAmount:   money.String(v.TotalAmount),
		Display:       money.FormatINR(v.TotalAmount),
		PartyLedgerID: v.PartyLedgerID,
		Narration:     v.Narration,
		Reference:     v.Reference,
		PostedAt:      v.PostedAt,
		CancelledAt:   v.CancelledAt,
		CancelReason:  v.CancelReason,
	}
	if v.CancelDate != nil {
		view.CancelDate = v.CancelDate.Format(dateLayout)
	}
	for _, e := range v.Entries {
		view.Entries = append(view.Entries, entryView{
			LineNo: e.LineNo, LedgerID: e.LedgerID, Debit: money.String(e.Debit), Credit: money.String(e.Credit),
		})
	}
	for _, it := range v.Items {
		view.Items = append(view.Items, itemView{
			LineNo:   it.LineNo,
			ItemID:   it.ItemID,
			Quantity: it.Quantity.StringFixed(money.QuantityScale),
			Rate:     money.String(it.Rate),
			Amount:   money.String(it.Amount()),
		})
	}
	for _, e := range v.LedgerEntries {
		view.LedgerEntries = append(view.LedgerEntries, ledgerEntryView{
			ID:              e.ID,
			LedgerID:        e.LedgerID,
			Debit:           money.String(e.Debit),
			Credit:          money.String(e.Credit),
			Kind:            e.Kind,
			ReversesEntryID: e.ReversesEntryID,
			EntryDate:       e.EntryDate.Format(dateLayout),
		})
	}
	for _, m := range v.StockMovements {
		view.StockMovements = append(view.StockMovements, movementView{
			ItemID:       m.ItemID,
			Kind:         m.Kind,
			Direction:    string(m.Direction),
			Quantity:     m.Quantity.StringFixed(money.QuantityScale),
			Rate:         m.Rate.StringFixed(money.CostScale),
			Amount:       money.String(m.Amount),
			QtyAfter:     m.After.Quantity.StringFixed(money.QuantityScale),
			AvgCostAfter: m.After.AvgCost.StringFixed(money.CostScale),
			Date:         m.Date.Format(dateLayout),
		})
	}
	return view
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: Status(q.Get("status")),
		Type:   Type(q.Get("type")),
		Query:  q.Get("q"),
		Sort:   q.Get("sort"),
	}
	verr := &ValidationError{}
	if raw := q.Get("party"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.add(0, "party", "must be a ledger id")
		}
		filter.PartyLedgerID = id
	}
	filter.From = queryDate(verr, q.Get("from"), "from")
	filter.To = queryDate(verr, q.Get("to"), "to")
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if err := verr.orNil(); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]voucherView, 0, len(result.Vouchers))
	for _, v := range result.Vouchers {
		views = append(views, newVoucherView(v))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": views, "pagination": result.Pagination})
}

func queryDate(verr *ValidationError, raw, field string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		verr.add(0, field, "must be a date in YYYY-MM-DD form")
	}
	return d
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := req.toInput(h.validator)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.ActorID = shared.ActorFromContext(r.Context())
	in.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	v, err := h.service.CreateDraft(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/vouchers/"+strconv.FormatInt(v.ID, 10))
	httpx.JSON(w, http.StatusCreated, newVoucherView(v))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newVoucherView(v))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := req.toInput(h.validator)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.ActorID = shared.ActorFromContext(r.Context())
	v, err := h.service.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newVoucherView(v))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDraft(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	totals, err := h.service.Validate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balanced":     true,
		"debit_total":  money.String(totals.Debit),
		"credit_total": money.String(totals.Credit),
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Post(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := newVoucherView(result.Voucher)
	view.Warnings = result.Warnings
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.voucherID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	in, err := req.toInput(h.validator, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.ActorID = shared.ActorFromContext(r.Context())
	result, err := h.service.Cancel(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := newVoucherView(result.Voucher)
	view.Warnings = result.Warnings
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) voucherID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Warn("voucher request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
