// Package metrics exposes Prometheus collectors for the dashboard.
//
//   - ecomdash_uploads_total{outcome}: dataset uploads (ok, rejected, parse_error)
//   - ecomdash_chart_renders_total{kind,outcome}: charts rendered (ok, error, skipped)
//   - ecomdash_predictions_total{outcome}: predictions (ok or an error kind)
//   - ecomdash_http_request_duration_seconds{method,route,status}
//   - ecomdash_sessions_active
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_uploads_total",
			Help: "Dataset uploads by outcome",
		},
		[]string{"outcome"},
	)

	ChartRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_chart_renders_total",
			Help: "Chart renders by chart kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecomdash_predictions_total",
			Help: "Rating predictions by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecomdash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecomdash_sessions_active",
			Help: "Browser sessions currently holding a dataset",
		},
	)
)
