package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesRuntimeMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go runtime metrics, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/v1/vouchers/{id}/post")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/7/post", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `bahikhata_http_requests_total{code="418",route="/api/v1/vouchers/{id}/post"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `bahikhata_http_request_duration_seconds_bucket{route="/api/v1/vouchers/{id}/post"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestPostingMetricsByOutcome(t *testing.T) {
	metrics := NewMetrics()
	posting := NewPostingMetrics(metrics.Registerer())
	posting.ObservePosting("post", "ok", 20*time.Millisecond)
	posting.ObservePosting("post", "ok", 30*time.Millisecond)
	posting.ObservePosting("cancel", "invalid_state", time.Millisecond)

	body := scrape(t, metrics)
	for _, want := range []string{
		`bahikhata_voucher_operations_total{operation="post",outcome="ok"} 2`,
		`bahikhata_voucher_operations_total{operation="cancel",outcome="invalid_state"} 1`,
		`bahikhata_voucher_operation_duration_seconds_count{operation="post"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in: %s", want, body)
		}
	}

	var nilMetrics *PostingMetrics
	nilMetrics.ObservePosting("post", "ok", time.Second)
}
