package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestDuration records the latency of every routed request.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyubey",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Bucketed histogram of HTTP request handling time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms~32s
		}, []string{"method", "route", "status"})

	// StoreQueryDuration records the latency of metadata store queries.
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyubey",
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Bucketed histogram of metadata store query time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"operation"})

	// LogReads counts task log reads by outcome.
	LogReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyubey",
			Subsystem: "logs",
			Name:      "reads_total",
			Help:      "Total number of task log reads by outcome.",
		}, []string{"outcome"})
)

// Log read outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Register registers all kyubey collectors with r.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{HTTPRequestDuration, StoreQueryDuration, LogReads} {
		if err := r.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveQuery returns a func that records the elapsed time of operation when called.
func ObserveQuery(operation string) func() {
	start := time.Now()
	return func() {
		StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
