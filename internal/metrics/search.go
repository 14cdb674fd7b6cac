package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "search_rounds_total",
			Help:      "Total number of search rounds (main query plus facet fan-out)",
		},
		[]string{"index", "status"},
	)

	SearchRoundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facetdex",
			Name:      "search_round_duration_seconds",
			Help:      "Search round duration in seconds, fan-out and merge included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"index"},
	)

	SearchQueriesPerRound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facetdex",
			Name:      "search_queries_per_round",
			Help:      "Backend queries issued per search round",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "response_cache_total",
			Help:      "Backend response cache hits, misses and skips",
		},
		[]string{"result"}, // "hit" / "miss" / "skip"
	)

	FacetResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetdex",
			Name:      "facet_resolutions_total",
			Help:      "Facet value lists resolved from search results",
		},
		[]string{"kind", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRoundsTotal)
	prometheus.MustRegister(SearchRoundDuration)
	prometheus.MustRegister(SearchQueriesPerRound)
	prometheus.MustRegister(ResponseCacheTotal)
	prometheus.MustRegister(FacetResolutionsTotal)
	searchMetricsRegistered = true
}
