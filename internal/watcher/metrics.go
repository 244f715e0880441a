package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	polls       *prometheus.CounterVec
	published   prometheus.Counter
	skipped     prometheus.Counter
	lastSuccess prometheus.Gauge
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_polls_total",
				Help: "Catalog polls by result.",
			},
			[]string{"result"},
		),
		published: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watcher_quakes_published_total",
				Help: "Quakes handed to the sink.",
			},
		),
		skipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watcher_quakes_duplicate_total",
				Help: "Quakes dropped because an earlier poll already published them.",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_last_success_timestamp_seconds",
				Help: "Unix time of the last successful poll.",
			},
		),
	}
	if r != nil {
		r.MustRegister(m.polls, m.published, m.skipped, m.lastSuccess)
	}
	return m
}
