package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the counter series with the given labels.
func sample(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue series
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("ledger:integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("ledger:integrity").End(boom), boom)

	require.Equal(t, 1.0, sample(t, registry, "bahikhata_jobs_total", map[string]string{"job": "ledger:integrity", "status": "success"}))
	require.Equal(t, 1.0, sample(t, registry, "bahikhata_jobs_total", map[string]string{"job": "ledger:integrity", "status": "failure"}))
	require.Equal(t, 1.0, sample(t, registry, "bahikhata_jobs_failures_total", map[string]string{"job": "ledger:integrity"}))
}

func TestIntegrityViolationsIgnoreZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.AddIntegrityViolations("unbalanced_voucher", 0)
	metrics.AddIntegrityViolations("balance_drift", 2)
	metrics.AddCleanedKeys(5)

	require.Equal(t, 0.0, sample(t, registry, "bahikhata_ledger_integrity_violations_total", map[string]string{"check": "unbalanced_voucher"}))
	require.Equal(t, 2.0, sample(t, registry, "bahikhata_ledger_integrity_violations_total", map[string]string{"check": "balance_drift"}))
	require.Equal(t, 5.0, sample(t, registry, "bahikhata_idempotency_keys_cleaned_total", nil))

	var nilMetrics *Metrics
	nilMetrics.AddIntegrityViolations("balance_drift", 1)
	require.NoError(t, nilMetrics.Track("noop").End(nil))
}
