// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_analysis_runs_total",
			Help: "Total number of completed menu analyses",
		},
		[]string{"source", "scorer"},
	)

	AnalysisFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_analysis_failures_total",
			Help: "Total number of analyses that returned an error",
		},
		[]string{"error_code"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menu_analysis_duration_seconds",
			Help:    "Duration of a full analysis run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"source"},
	)

	ScrapeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_scrape_failures_total",
			Help: "Total number of failed upstream fetches by stage",
		},
		[]string{"stage"},
	)

	NutritionFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_nutrition_fetches_total",
			Help: "Nutrition page fetches by outcome",
		},
		[]string{"status"},
	)

	LLMFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_llm_fallbacks_total",
			Help: "Times the LLM scorer failed and local scoring was used",
		},
		[]string{"reason"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_cache_requests_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_http_requests_total",
			Help: "API requests by route and status",
		},
		[]string{"route", "status"},
	)

	ActiveAnalyses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menu_analyses_active",
			Help: "Number of analyses currently running",
		},
	)
)
