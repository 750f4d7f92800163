// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Replace outcomes.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultForbidden   = "forbidden"
	ResultUnknownRef  = "unknown_reference"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

var (
	ReplaceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "replace_total",
		Help:      "Roster submissions by outcome.",
	}, []string{"result"})

	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "records_written_total",
		Help:      "Attendance rows inserted by committed roster submissions.",
	})

	ReplaceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "replace_duration_seconds",
		Help:      "Time spent in the replace transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	ReportsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "reports_total",
		Help:      "Read-side reports served by kind.",
	}, []string{"kind"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
