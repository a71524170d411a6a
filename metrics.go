package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the gateway's prometheus collectors, exposed on
// /metrics.
type Metrics struct {
	Readings        prometheus.Counter
	CommandErrors   prometheus.Counter
	CommandDuration prometheus.Histogram
	Published       prometheus.Counter
}

// NewMetrics builds and registers the collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lcrgw_readings_total",
			Help: "Number of readings successfully fetched or streamed from the meter.",
		}),
		CommandErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lcrgw_command_errors_total",
			Help: "Number of meter commands that failed.",
		}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lcrgw_command_duration_seconds",
			Help:    "Round-trip time of meter commands, settle delay included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lcrgw_published_total",
			Help: "Number of readings published to MQTT.",
		}),
	}

	reg.MustRegister(m.Readings, m.CommandErrors, m.CommandDuration, m.Published)
	return m
}
