package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rosec_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	SheetsRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosec_sheets_rendered_total",
		Help: "Answer sheets rendered successfully.",
	})

	SheetValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosec_sheet_validation_failures_total",
		Help: "Sheet renders rejected by template validation.",
	}, []string{"field"})

	ScanRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosec_scan_requests_total",
		Help: "Requests proxied to the scanning device by outcome.",
	}, []string{"outcome"})

	ResultsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosec_results_normalized_total",
		Help: "Result records normalized by source collection and resolution rule.",
	}, []string{"source", "rule"})
)
