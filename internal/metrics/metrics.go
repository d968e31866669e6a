// Package metrics exposes Prometheus metrics for fetch outcomes, quota
// levels, and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// FetchesTotal counts quota fetches by provider and outcome
	FetchesTotal *prometheus.CounterVec
	// FetchDuration tracks quota fetch latency by provider
	FetchDuration *prometheus.HistogramVec
	// QuotaRemaining tracks the remaining fraction per entry and pool
	QuotaRemaining *prometheus.GaugeVec
	// AuthEntries tracks the number of discovered auth entries per provider
	AuthEntries *prometheus.GaugeVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Total number of quota fetches",
			},
			[]string{"provider", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Quota fetch latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider"},
		),
		QuotaRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quota_remaining_fraction",
				Help:      "Remaining quota fraction per entry and pool",
			},
			[]string{"provider", "entry", "pool"},
		),
		AuthEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "auth_entries",
				Help:      "Number of discovered auth entries",
			},
			[]string{"provider"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
	}

	registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.QuotaRemaining,
		m.AuthEntries,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
	)

	return m
}

// RecordFetch records one fetch outcome with its duration in seconds.
func (m *Metrics) RecordFetch(provider, outcome string, seconds float64) {
	m.FetchesTotal.WithLabelValues(provider, outcome).Inc()
	m.FetchDuration.WithLabelValues(provider).Observe(seconds)
}

// SetQuotaRemaining updates the remaining fraction gauge for one pool.
func (m *Metrics) SetQuotaRemaining(provider, entry, pool string, fraction float64) {
	m.QuotaRemaining.WithLabelValues(provider, entry, pool).Set(fraction)
}

// SetAuthEntries updates the discovered entry count for a provider.
func (m *Metrics) SetAuthEntries(provider string, count int) {
	m.AuthEntries.WithLabelValues(provider).Set(float64(count))
}

// RecordHTTPRequest records one API request.
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
