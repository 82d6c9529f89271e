// Package aggregate fans a query out to all source gatherers concurrently
// and merges whatever came back into a single Content value: a geographic
// hierarchy, an insertion-ordered fact list, and per-source plus overall
// quality scores. One failed source degrades quality; only all four
// failing is an error.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cicerone/internal/sources"
	"cicerone/pkg/logging"
)

// ErrAllSourcesFailed means no gatherer produced anything usable. Callers
// must treat this as a hard failure; there is no content to narrate from.
var ErrAllSourcesFailed = errors.New("all content sources failed")

// sourceWeights is the fixed contribution of each source to the overall
// quality score. Failed sources contribute zero to the numerator but stay
// in the denominator, so quality degrades as sources drop out.
var sourceWeights = map[string]float64{
	sources.SourceNarrative:  0.35,
	sources.SourceStructured: 0.30,
	sources.SourceHierarchy:  0.20,
	sources.SourceGeocode:    0.15,
}

// Fact is one statement about the queried subject, tagged with the source
// that produced it.
type Fact struct {
	Source   string `json:"source"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Metadata describes one aggregation run.
type Metadata struct {
	CollectedAt      time.Time     `json:"collected_at"`
	Elapsed          time.Duration `json:"elapsed_ns"`
	SourcesSucceeded int           `json:"sources_succeeded"`
	SourcesFailed    int           `json:"sources_failed"`
}

// Content is the merged view of one query across all sources. It is
// created once per query and read-only afterwards.
type Content struct {
	Query           string                    `json:"query"`
	Sources         map[string]sources.Result `json:"sources"`
	Hierarchy       Hierarchy                 `json:"hierarchy"`
	StructuredFacts []Fact                    `json:"structured_facts"`
	QualityScores   map[string]float64        `json:"quality_scores"`
	OverallQuality  float64                   `json:"overall_quality"`
	Metadata        Metadata                  `json:"metadata"`
}

// Aggregator owns the gatherer set and the merge rules.
type Aggregator struct {
	gatherers []sources.Gatherer
	logger    logging.Logger
}

func New(logger logging.Logger, gatherers ...sources.Gatherer) *Aggregator {
	return &Aggregator{
		gatherers: gatherers,
		logger:    logger,
	}
}

// Gather runs every gatherer concurrently, waits for all of them to
// settle, and merges the results. A usable Content comes back even when
// only one source succeeded; ErrAllSourcesFailed only when none did.
func (a *Aggregator) Gather(ctx context.Context, query string) (*Content, error) {
	start := time.Now()

	results := make([]sources.Result, len(a.gatherers))
	var wg sync.WaitGroup
	for i, g := range a.gatherers {
		wg.Add(1)
		go func(idx int, g sources.Gatherer) {
			defer wg.Done()
			results[idx] = g.Fetch(ctx, query)
		}(i, g)
	}
	wg.Wait()

	byID := make(map[string]sources.Result, len(results))
	scores := make(map[string]float64, len(results))
	var succeeded, failedCount int
	for _, result := range results {
		byID[result.SourceID] = result
		scores[result.SourceID] = result.Quality
		status := "success"
		if result.Succeeded {
			succeeded++
		} else {
			failedCount++
			status = result.Err
		}
		sourceResults.WithLabelValues(result.SourceID, status).Inc()
	}

	elapsed := time.Since(start)
	gatherDuration.Observe(elapsed.Seconds())

	if succeeded == 0 {
		a.logger.WithFields(logging.Fields{
			"query":       query,
			"elapsed":     elapsed.String(),
			"sources_all": len(results),
		}).Warn("All content sources failed")
		return nil, fmt.Errorf("gather %q: %w", query, ErrAllSourcesFailed)
	}

	content := &Content{
		Query:           query,
		Sources:         byID,
		Hierarchy:       buildHierarchy(byID[sources.SourceHierarchy].Levels, byID[sources.SourceGeocode].Levels),
		StructuredFacts: mergeFacts(byID[sources.SourceStructured], byID[sources.SourceNarrative]),
		QualityScores:   scores,
		OverallQuality:  overallQuality(byID),
		Metadata: Metadata{
			CollectedAt:      start,
			Elapsed:          elapsed,
			SourcesSucceeded: succeeded,
			SourcesFailed:    failedCount,
		},
	}
	contentQuality.Observe(content.OverallQuality)

	a.logger.WithFields(logging.Fields{
		"query":             query,
		"sources_succeeded": succeeded,
		"sources_failed":    failedCount,
		"overall_quality":   content.OverallQuality,
		"facts":             len(content.StructuredFacts),
		"elapsed":           elapsed.String(),
	}).Info("Content gathered")

	return content, nil
}

// mergeFacts puts structured property/value pairs first, then narrative
// sentences, keeping insertion order. Duplicates are dropped within a
// source but never across sources; repetition between sources is signal.
func mergeFacts(structured, narrative sources.Result) []Fact {
	var facts []Fact

	seen := map[string]bool{}
	for _, prop := range structured.Properties {
		key := prop.Label + "\x00" + prop.Value
		if seen[key] {
			continue
		}
		seen[key] = true
		facts = append(facts, Fact{Source: sources.SourceStructured, Property: prop.Label, Value: prop.Value})
	}

	seen = map[string]bool{}
	for _, sentence := range narrative.Facts {
		if seen[sentence] {
			continue
		}
		seen[sentence] = true
		facts = append(facts, Fact{Source: sources.SourceNarrative, Property: "fact", Value: sentence})
	}

	return facts
}

// overallQuality is the weighted average across all four sources. The
// denominator always includes every weight, so a missing or failed source
// drags the overall score down instead of vanishing from it.
func overallQuality(byID map[string]sources.Result) float64 {
	var numerator, denominator float64
	for sourceID, weight := range sourceWeights {
		denominator += weight
		if result, ok := byID[sourceID]; ok && result.Succeeded {
			numerator += weight * result.Quality
		}
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
