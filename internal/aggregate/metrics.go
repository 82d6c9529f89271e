package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cicerone",
			Name:      "source_results_total",
			Help:      "Gatherer outcomes by source and status (success or failure tag)",
		},
		[]string{"source", "status"},
	)

	cacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cicerone",
			Name:      "source_cache_events_total",
			Help:      "Read-through source cache events",
		},
		[]string{"source", "event"}, // "hit", "miss", "store"
	)

	gatherDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cicerone",
			Name:      "gather_duration_seconds",
			Help:      "Wall-clock duration of the source fan-out and merge",
			Buckets:   prometheus.DefBuckets,
		},
	)

	contentQuality = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cicerone",
			Name:      "content_quality",
			Help:      "Distribution of merged overall quality scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
