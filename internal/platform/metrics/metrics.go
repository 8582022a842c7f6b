// Package metrics holds the Prometheus collectors for statbridge. A single
// Metrics value satisfies the recorder interfaces of the cache, fetch,
// routing and codelist packages.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CacheRequests  *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	FetchDuration *prometheus.HistogramVec
	FetchRetries  *prometheus.CounterVec

	RoutingAttempts *prometheus.CounterVec

	CodelistResolutions *prometheus.CounterVec

	ConversionFailures *prometheus.CounterVec

	// HTTP surface
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_cache_requests_total",
			Help: "Cache lookups by cache name and result",
		}, []string{"cache", "result"}), // result: "hit", "miss"

		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_cache_evictions_total",
			Help: "Entries evicted from a cache because they expired",
		}, []string{"cache"}),

		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statbridge_upstream_fetch_duration_seconds",
			Help:    "Duration of single upstream HTTP requests by host and status",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host", "status"}),

		FetchRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_upstream_fetch_retries_total",
			Help: "Retries of upstream requests by host and whether the upstream rate limited",
		}, []string{"host", "rate_limited"}),

		RoutingAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_routing_attempts_total",
			Help: "Provider attempts made while routing a series request",
		}, []string{"provider", "status"}),

		CodelistResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_codelist_resolutions_total",
			Help: "Codelist resolutions by dataflow and whether the caller joined an in-flight lookup",
		}, []string{"flow", "shared"}),

		ConversionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statbridge_unit_conversion_failures_total",
			Help: "Series returned in their source unit because the requested conversion is undefined",
		}, []string{"from", "to"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statbridge_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(cache, "hit").Inc()
	}
}

func (m *Metrics) CacheMiss(cache string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(cache, "miss").Inc()
	}
}

func (m *Metrics) CacheEviction(cache string, n int) {
	if m != nil {
		m.CacheEvictions.WithLabelValues(cache).Add(float64(n))
	}
}

// ObserveFetch records one upstream round trip. status is 0 for transport
// failures.
func (m *Metrics) ObserveFetch(host string, status int, elapsed time.Duration) {
	if m != nil {
		m.FetchDuration.WithLabelValues(host, strconv.Itoa(status)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) FetchRetry(host string, rateLimited bool) {
	if m != nil {
		m.FetchRetries.WithLabelValues(host, strconv.FormatBool(rateLimited)).Inc()
	}
}

func (m *Metrics) RoutingAttempt(provider, status string) {
	if m != nil {
		m.RoutingAttempts.WithLabelValues(provider, status).Inc()
	}
}

func (m *Metrics) CodelistResolved(flowID string, shared bool) {
	if m != nil {
		m.CodelistResolutions.WithLabelValues(flowID, strconv.FormatBool(shared)).Inc()
	}
}

// ConversionFailed records a unit conversion that could not be performed.
func (m *Metrics) ConversionFailed(from, to string) {
	if m != nil {
		m.ConversionFailures.WithLabelValues(from, to).Inc()
	}
}

// ObserveRequest records the latency of a served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
