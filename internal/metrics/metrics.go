// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "food_scans_total",
			Help: "Total number of food scans by outcome",
		},
		[]string{"outcome"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "food_scan_duration_seconds",
			Help:    "Duration of a food scan including the model call",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"source"},
	)

	GeminiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemini_requests_total",
			Help: "Total number of generateContent calls by result",
		},
		[]string{"status"},
	)
)
