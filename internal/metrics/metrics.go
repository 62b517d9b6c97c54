package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookfinder_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_searches_total",
		Help: "Searches by outcome (ok, empty, failed)",
	}, []string{"outcome"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_recommendation_cache_lookups_total",
		Help: "Recommendation cache lookups by result (hit, miss)",
	}, []string{"result"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookfinder_upstream_request_duration_seconds",
		Help:    "Duration of outbound API calls in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
	}, []string{"upstream", "outcome"})

	CoverSourceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_cover_resolutions_total",
		Help: "Cover images resolved, by the source that produced them",
	}, []string{"source"})

	PDFLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_pdf_lookups_total",
		Help: "PDF lookups by result (found, not_found, disabled, error)",
	}, []string{"result"})
)
