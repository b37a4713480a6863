package vouchers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/bahikhata/bahikhata/internal/shared"
)

func newTestRouter(t *testing.T, cfg ServiceConfig) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t, cfg)
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	NewHandler(nil, f.svc, 0).MountRoutes(r)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.ActorHeader, "9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

const journalBody = `{
	"voucher_type": "journal",
	"voucher_date": "2026-04-10",
	"narration": "capital introduced",
	"entries": [
		{"ledger_id": 1, "debit": "500.00"},
		{"ledger_id": 2, "credit": "500.00"}
	]
}`

func TestHandlerDraftPostCancel(t *testing.T) {
	h, f := newTestRouter(t, ServiceConfig{})

	rec, body := do(t, h, http.MethodPost, "/vouchers", journalBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/api/v1/vouchers/1", rec.Header().Get("Location"))
	require.Equal(t, "JV-000001", body["voucher_number"])
	require.Equal(t, "draft", body["status"])
	require.Equal(t, int64(9), f.audit.logs[0].ActorID)

	rec, body = do(t, h, http.MethodPost, "/vouchers/1/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "500.00", body["debit_total"])

	rec, body = do(t, h, http.MethodPost, "/vouchers/1/post", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "posted", body["status"])
	require.Equal(t, "500.00", body["total_amount"])
	require.Equal(t, "₹500.00", body["total_amount_display"])
	requireBalance(t, f.repo, cash, "1500.00")

	rec, body = do(t, h, http.MethodPost, "/vouchers/1/post", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Invalid State", body["title"])

	rec, body = do(t, h, http.MethodPost, "/vouchers/1/cancel", `{"reason": "entered twice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "cancelled", body["status"])
	require.Equal(t, "2026-04-10", body["cancel_date"])
	require.Len(t, body["ledger_entries"], 4)
	requireBalance(t, f.repo, cash, "1000.00")
}

func TestHandlerImbalancedPostReturnsTotals(t *testing.T) {
	h, _ := newTestRouter(t, ServiceConfig{})
	rec, _ := do(t, h, http.MethodPost, "/vouchers", `{
		"voucher_type": "journal", "voucher_date": "2026-04-10",
		"entries": [{"ledger_id": 1, "debit": "500"}, {"ledger_id": 2, "debit": "300"}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := do(t, h, http.MethodPost, "/vouchers/1/post", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Equal(t, "800.00", body["debit_total"])
	require.Equal(t, "0.00", body["credit_total"])
	require.Equal(t, "800.00", body["delta"])
}

func TestHandlerValidationErrors(t *testing.T) {
	h, _ := newTestRouter(t, ServiceConfig{})
	rec, body := do(t, h, http.MethodPost, "/vouchers", `{
		"voucher_type": "memo", "voucher_date": "10/04/2026",
		"entries": [{"ledger_id": 1, "debit": "abc"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs, ok := body["errors"].([]any)
	require.True(t, ok, rec.Body.String())
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.(map[string]any)["field"].(string)] = true
	}
	require.True(t, fields["voucher_type"])
	require.True(t, fields["voucher_date"])
	require.True(t, fields["debit"])

	rec, _ = do(t, h, http.MethodPost, "/vouchers", `{"voucher_type": "journal", "unexpected": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/vouchers/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerInsufficientStock(t *testing.T) {
	h, f := newTestRouter(t, ServiceConfig{})
	rec, _ := do(t, h, http.MethodPost, "/vouchers", `{
		"voucher_type": "sales_invoice", "voucher_date": "2026-04-10", "party_ledger_id": 5,
		"entries": [{"ledger_id": 5, "debit": "50.00"}, {"ledger_id": 3, "credit": "50.00"}],
		"items": [{"item_id": 2, "quantity": "5", "rate": "10.00"}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := do(t, h, http.MethodPost, "/vouchers/1/post", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "3.000", body["on_hand"])
	require.True(t, f.repo.itemPosition(gadget).Quantity.Equal(dec("3")))
}

func TestHandlerListAndDelete(t *testing.T) {
	h, _ := newTestRouter(t, ServiceConfig{})
	for i := 0; i < 3; i++ {
		rec, _ := do(t, h, http.MethodPost, "/vouchers", journalBody)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, body := do(t, h, http.MethodGet, "/vouchers?status=draft&per_page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["data"], 2)
	require.Equal(t, float64(3), body["pagination"].(map[string]any)["total"])

	rec, _ = do(t, h, http.MethodGet, "/vouchers?from=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/vouchers/2", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/vouchers/2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRetryableConflict(t *testing.T) {
	h, f := newTestRouter(t, ServiceConfig{})
	rec, _ := do(t, h, http.MethodPost, "/vouchers", journalBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	f.repo.conflicts = 1

	rec, body := do(t, h, http.MethodPost, "/vouchers/1/post", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Equal(t, true, body["retryable"])
}
