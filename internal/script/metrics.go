package script

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cicerone",
		Name:      "script_attempts_total",
		Help:      "Script generation attempts by outcome.",
	}, []string{"outcome"}) // "accepted", "retried", "gave_up", "errored"

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cicerone",
		Name:      "script_generation_duration_seconds",
		Help:      "Wall-clock time of a full generate call including retries.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
	})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cicerone",
		Name:      "script_validation_failures_total",
		Help:      "Validation check failures by check name.",
	}, []string{"check"})
)
