package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctran_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctran_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	translationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctran_translation_runs_total",
			Help: "Total number of document translation runs",
		},
		[]string{"status"}, // complete, failed
	)

	translationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doctran_translation_duration_seconds",
			Help:    "Document translation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	translationPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doctran_translation_pages",
			Help:    "Pages per translated document",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	fallbackRegionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doctran_fallback_regions_total",
			Help: "Regions that kept their source text after translation failures",
		},
	)

	rateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doctran_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doctran_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doctran_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)
)
