package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation this engine actually
// emits: build-time counters and query-time latency/candidate
// histograms. Construct one per process; promauto registers against the
// default registry.
type Metrics struct {
	BuildVectorsAdded        prometheus.Counter
	BuildClusterSplits       prometheus.Counter
	SearchLatency            prometheus.Histogram
	SearchCandidatesExamined prometheus.Histogram
	SearchResultsPadded      prometheus.Counter
	IndexMemoryBytes         prometheus.Gauge
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildVectorsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfhnswpq_build_vectors_added_total",
			Help: "Total number of base vectors appended to inverted lists",
		}),
		BuildClusterSplits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfhnswpq_build_cluster_splits_total",
			Help: "Total number of empty k-means clusters resolved by splitting the largest cluster",
		}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ivfhnswpq_search_latency_seconds",
			Help:    "Query latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		}),
		SearchCandidatesExamined: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ivfhnswpq_search_candidates_examined",
			Help:    "Number of candidate codes examined per query before max_codes truncation",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 20000, 50000},
		}),
		SearchResultsPadded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfhnswpq_search_results_padded_total",
			Help: "Total number of queries that returned fewer than k results",
		}),
		IndexMemoryBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ivfhnswpq_index_memory_bytes",
			Help: "Estimated resident memory of the index's inverted lists (ids and packed codes)",
		}),
	}
}
