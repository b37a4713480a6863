package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PostingMetrics counts post and cancel attempts by outcome.
type PostingMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPostingMetrics registers the posting collectors on registerer.
func NewPostingMetrics(registerer prometheus.Registerer) *PostingMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bahikhata_voucher_operations_total",
		Help: "Voucher post and cancel attempts by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bahikhata_voucher_operation_duration_seconds",
		Help:    "Time spent posting or cancelling a voucher, retries included.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation"})
	registerer.MustRegister(attempts, duration)
	return &PostingMetrics{attempts: attempts, duration: duration}
}

// ObservePosting records one completed attempt.
func (p *PostingMetrics) ObservePosting(operation, outcome string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.attempts.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
