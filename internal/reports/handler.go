package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/platform/httpx"
)

// Handler serves report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledgers/{id}/balance", h.ledgerBalance)
	r.Get("/ledgers/{id}/statement", h.ledgerStatement)
	r.Get("/reports/summary", h.summary)
	r.Get("/reports/status-summary", h.statusSummary)
	r.Get("/reports/type-status-summary", h.typeStatusSummary)
	r.Get("/reports/trial-balance", h.trialBalance)
}

type amount struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

func newAmount(d decimal.Decimal) amount {
	return amount{Value: money.String(d), Display: money.FormatINR(d)}
}

type statusView struct {
	Type   string `json:"voucher_type,omitempty"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Amount amount `json:"amount"`
}

func statusViews(rows []StatusTotal) []statusView {
	out := make([]statusView, 0, len(rows))
	for _, r := range rows {
		out = append(out, statusView{Status: r.Status, Count: r.Count, Amount: newAmount(r.Amount)})
	}
	return out
}

func typeStatusViews(rows []TypeStatusTotal) []statusView {
	out := make([]statusView, 0, len(rows))
	for _, r := range rows {
		out = append(out, statusView{Type: r.Type, Status: r.Status, Count: r.Count, Amount: newAmount(r.Amount)})
	}
	return out
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"by_status":          statusViews(sum.ByStatus),
		"by_type_and_status": typeStatusViews(sum.ByTypeAndStatus),
	})
}

func (h *Handler) statusSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.SumByStatus(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": statusViews(rows)})
}

func (h *Handler) typeStatusSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.SumByTypeAndStatus(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": typeStatusViews(rows)})
}

func (h *Handler) ledgerBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := ledgerID(w, r)
	if !ok {
		return
	}
	asOf, ok := dateParam(w, r, "as_of")
	if !ok {
		return
	}
	bal, err := h.service.LedgerBalanceAsOf(r.Context(), id, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ledger_id":    bal.LedgerID,
		"ledger_name":  bal.LedgerName,
		"balance_type": bal.BalanceType,
		"as_of":        bal.AsOf.Format(dateKey),
		"opening":      newAmount(bal.Opening),
		"debit_total":  newAmount(bal.Debit),
		"credit_total": newAmount(bal.Credit),
		"balance":      newAmount(bal.Balance),
	})
}

type statementLineView struct {
	Date          string `json:"date"`
	VoucherID     int64  `json:"voucher_id"`
	VoucherNumber string `json:"voucher_number"`
	VoucherType   string `json:"voucher_type"`
	EntryKind     string `json:"entry_kind"`
	Narration     string `json:"narration,omitempty"`
	Debit         string `json:"debit"`
	Credit        string `json:"credit"`
	Balance       amount `json:"balance"`
}

func (h *Handler) ledgerStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := ledgerID(w, r)
	if !ok {
		return
	}
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}
	st, err := h.service.LedgerStatement(r.Context(), id, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines := make([]statementLineView, 0, len(st.Lines))
	for _, l := range st.Lines {
		lines = append(lines, statementLineView{
			Date:          l.Date.Format(dateKey),
			VoucherID:     l.VoucherID,
			VoucherNumber: l.VoucherNumber,
			VoucherType:   l.VoucherType,
			EntryKind:     l.EntryKind,
			Narration:     l.Narration,
			Debit:         money.String(l.Debit),
			Credit:        money.String(l.Credit),
			Balance:       newAmount(l.Balance),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ledger_id":   st.Ledger.ID,
		"ledger_name": st.Ledger.Name,
		"from":        st.From.Format(dateKey),
		"to":          st.To.Format(dateKey),
		"opening":     newAmount(st.Opening),
		"lines":       lines,
		"closing":     newAmount(st.Closing),
	})
}

type trialLineView struct {
	LedgerID   int64  `json:"ledger_id"`
	LedgerCode string `json:"ledger_code"`
	LedgerName string `json:"ledger_name"`
	GroupCode  string `json:"group_code"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := dateParam(w, r, "as_of")
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines := make([]trialLineView, 0, len(tb.Lines))
	for _, l := range tb.Lines {
		lines = append(lines, trialLineView{
			LedgerID:   l.LedgerID,
			LedgerCode: l.LedgerCode,
			LedgerName: l.LedgerName,
			GroupCode:  l.GroupCode,
			Debit:      money.String(l.Debit),
			Credit:     money.String(l.Credit),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"as_of":        tb.AsOf.Format(dateKey),
		"lines":        lines,
		"total_debit":  newAmount(tb.TotalDebit),
		"total_credit": newAmount(tb.TotalCredit),
		"difference":   money.String(tb.Difference()),
	})
}

func ledgerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ledger id")
		return 0, false
	}
	return id, true
}

func dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	d, err := time.Parse(dateKey, raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a date in YYYY-MM-DD form")
		return time.Time{}, false
	}
	return d, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Warn("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
