package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the price sync run.
type Metrics struct {
	Registry        *prometheus.Registry
	AttemptsTotal   prometheus.Counter
	RecoveriesTotal prometheus.Counter
	ProductsTotal   *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricesync_attempts_total",
			Help: "Total fetch+extract attempts across all products.",
		},
	)
	recoveries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricesync_recoveries_total",
			Help: "Total in-page recovery clicks performed.",
		},
	)
	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricesync_products_total",
			Help: "Products resolved, by final result.",
		},
		[]string{"result"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricesync_fetch_duration_seconds",
			Help:    "Rendered page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricesync_errors_total",
			Help: "Attempt errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(attempts, recoveries, products, fetchDuration, errorsTotal)

	return &Metrics{
		Registry:        registry,
		AttemptsTotal:   attempts,
		RecoveriesTotal: recoveries,
		ProductsTotal:   products,
		FetchDuration:   fetchDuration,
		ErrorsTotal:     errorsTotal,
	}
}

// IncAttempt increments the attempts counter.
func (m *Metrics) IncAttempt() {
	if m == nil {
		return
	}
	m.AttemptsTotal.Inc()
}

// IncRecovery increments the recovery clicks counter.
func (m *Metrics) IncRecovery() {
	if m == nil {
		return
	}
	m.RecoveriesTotal.Inc()
}

// IncProduct increments the products counter for a result label.
func (m *Metrics) IncProduct(result string) {
	if m == nil {
		return
	}
	m.ProductsTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records one rendered-page fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
