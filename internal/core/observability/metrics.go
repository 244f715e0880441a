// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var componentLabel atomic.Value

func init() {
	componentLabel.Store("library")
}

func SetComponent(s string) {
	if s == "" {
		s = "library"
	}
	componentLabel.Store(s)
}

func getComponent() string {
	if v := componentLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "library"
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status", "component"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status", "component"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "component"},
	)

	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skjalftalisa_fetch_total",
			Help: "Catalog queries by outcome.",
		},
		[]string{"outcome", "component"},
	)

	quakesReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skjalftalisa_quakes_returned_total",
			Help: "Rows returned by successful catalog queries.",
		},
		[]string{"component"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// Init additionally registers the collectors on reg, e.g. a private registry served by
// internal/metrics. It is safe to call more than once with the same registry.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		fetchTotal,
		quakesReturned,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := getComponent()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st, c).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st, c).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, getComponent()).Observe(durationSeconds)
}

// IncFetch counts one catalog query; outcome is ok, transport_error or schema_error.
func IncFetch(outcome string) {
	fetchTotal.WithLabelValues(outcome, getComponent()).Inc()
}

func AddQuakesReturned(n int) {
	if n <= 0 {
		return
	}
	quakesReturned.WithLabelValues(getComponent()).Add(float64(n))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
