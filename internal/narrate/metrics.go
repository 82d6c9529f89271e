package narrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cicerone",
			Name:      "narrate_requests_total",
			Help:      "Completed narration pipeline runs by route",
		},
		[]string{"route"},
	)

	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cicerone",
			Name:      "narrate_pipeline_duration_seconds",
			Help:      "End-to-end narration pipeline duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
		},
		[]string{"route"},
	)

	pipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cicerone",
			Name:      "narrate_failures_total",
			Help:      "Narration pipeline hard failures by stage",
		},
		[]string{"stage"},
	)

	mcpToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cicerone",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Total MCP tool invocations",
		},
		[]string{"tool"},
	)
)
