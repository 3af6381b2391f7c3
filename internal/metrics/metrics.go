// Package metrics provides Prometheus metrics for dictionary runs and the
// HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dictx"

// Collector holds every dictx metric. A nil *Collector records nothing.
type Collector struct {
	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunsInFlight prometheus.Gauge
	RunsRejected prometheus.Counter

	// Codec metrics
	ExportBytes         prometheus.Counter
	ImportedDefinitions *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimitHits   prometheus.Counter
}

// New registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry to avoid global state.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of export, import and reset runs",
			},
			[]string{"kind", "status", "code"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Run duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		RunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of runs currently holding a limiter slot",
			},
		),
		RunsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_rejected_total",
				Help:      "Runs that could not get a limiter slot in time",
			},
		),
		ExportBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_bytes_total",
				Help:      "Total bytes of exported documents",
			},
		),
		ImportedDefinitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imported_definitions_total",
				Help:      "Definitions merged by committed imports",
			},
			[]string{"kind"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// RunStarted marks a run as holding a slot.
func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	c.RunsInFlight.Inc()
}

// RunFinished records a run that held a slot.
func (c *Collector) RunFinished(kind, status, code string, d time.Duration) {
	if c == nil {
		return
	}
	c.RunsInFlight.Dec()
	c.RunsTotal.WithLabelValues(kind, status, code).Inc()
	c.RunDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RunRejected records a run that never got a slot.
func (c *Collector) RunRejected(kind, code string) {
	if c == nil {
		return
	}
	c.RunsRejected.Inc()
	c.RunsTotal.WithLabelValues(kind, "failed", code).Inc()
}

// Exported records the size of an exported document.
func (c *Collector) Exported(bytes int) {
	if c == nil {
		return
	}
	c.ExportBytes.Add(float64(bytes))
}

// Imported records definitions merged by a committed import, keyed by kind.
func (c *Collector) Imported(counts map[string]int) {
	if c == nil {
		return
	}
	for kind, n := range counts {
		if n > 0 {
			c.ImportedDefinitions.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// Request records one HTTP request. route is the matched route pattern so
// label cardinality stays bounded.
func (c *Collector) Request(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RateLimited records a request rejected by the rate limiter.
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.RateLimitHits.Inc()
}

// statusClass collapses a status code to 2xx, 3xx, 4xx or 5xx.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
