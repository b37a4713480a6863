package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bahikhata/bahikhata/internal/observability"
	_ "github.com/bahikhata/bahikhata/testing"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:  NewLogger(&Config{LogLevel: "error"}),
		Config:  &Config{AppEnv: "development", RateLimitPerMinute: 100},
		Metrics: observability.NewMetrics(),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `bahikhata_http_requests_total{code="200",route="/healthz"} 1`))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTestModeFlag(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}
