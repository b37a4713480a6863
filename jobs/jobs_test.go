package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/bahikhata/bahikhata/internal/jobs"
	"github.com/bahikhata/bahikhata/internal/reports"
)

type fakeIntegrityStore struct {
	unbalanced []UnbalancedVoucher
	drift      []BalanceDrift
	err        error
	ledgerID   int64
}

func (f *fakeIntegrityStore) UnbalancedVouchers(context.Context) ([]UnbalancedVoucher, error) {
	return f.unbalanced, f.err
}

func (f *fakeIntegrityStore) BalanceDrift(_ context.Context, ledgerID int64) ([]BalanceDrift, error) {
	f.ledgerID = ledgerID
	return f.drift, nil
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestLedgerIntegrityCleanScan(t *testing.T) {
	store := &fakeIntegrityStore{}
	job := NewLedgerIntegrityJob(store, nil, testMetrics())

	task, err := NewLedgerIntegrityTask(7)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, int64(7), store.ledgerID)
}

func TestLedgerIntegrityReportsViolationsWithoutRetry(t *testing.T) {
	store := &fakeIntegrityStore{
		unbalanced: []UnbalancedVoucher{{VoucherID: 3, Number: "JV-000003", DebitTotal: decimal.RequireFromString("100"), CreditTotal: decimal.RequireFromString("90")}},
		drift:      []BalanceDrift{{LedgerID: 1, Name: "Cash", Cached: decimal.RequireFromString("1500"), Folded: decimal.RequireFromString("1400")}},
	}
	job := NewLedgerIntegrityJob(store, nil, testMetrics())

	report, err := job.Run(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, report.Clean())

	task, err := NewLedgerIntegrityTask(0)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorContains(t, err, "1 unbalanced vouchers, 1 drifting ledgers")
}

func TestLedgerIntegrityStoreFailureIsRetryable(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewLedgerIntegrityJob(&fakeIntegrityStore{err: boom}, nil, testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestLedgerIntegrityRejectsBadPayload(t *testing.T) {
	job := NewLedgerIntegrityJob(&fakeIntegrityStore{}, nil, testMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCleaner struct {
	olderThan time.Duration
	removed   int64
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.removed, nil
}

func TestIdempotencyCleanupRetention(t *testing.T) {
	cleaner := &fakeCleaner{removed: 4}
	job := &IdempotencyCleanupJob{Cleaner: cleaner, Retention: 48 * time.Hour, Metrics: testMetrics()}

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 48*time.Hour, cleaner.olderThan)

	task, err := NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Hour, cleaner.olderThan)
}

type fakeWarmer struct {
	asOf      time.Time
	summaries int
}

func (f *fakeWarmer) Summary(context.Context) (reports.Summary, error) {
	f.summaries++
	return reports.Summary{}, nil
}

func (f *fakeWarmer) TrialBalance(_ context.Context, asOf time.Time) (reports.TrialBalance, error) {
	f.asOf = asOf
	return reports.TrialBalance{AsOf: asOf}, nil
}

func TestReportWarmupAsOf(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewReportWarmupJob(warmer, nil, testMetrics())
	job.clock = func() time.Time { return time.Date(2026, 4, 10, 6, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskReportWarmup, nil)))
	require.Equal(t, 1, warmer.summaries)
	require.Equal(t, 10, warmer.asOf.Day())

	task, err := NewReportWarmupTask("2026-03-31")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), warmer.asOf)

	bad, err := NewReportWarmupTask("31/03/2026")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"archived":0,"paused":false}`, rr.Body.String())
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthReportsQueueState(t *testing.T) {
	h := &Handler{inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}}
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"pending":3`)
	require.Contains(t, rr.Body.String(), `"retry":1`)

	h = &Handler{inspector: fakeInspector{err: errors.New("redis down")}}
	rr = httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
