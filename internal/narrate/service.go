// Package narrate wires the full pipeline together: classify the query,
// gather location content or run deep research, then generate a
// validated narration script. It also owns the HTTP and MCP surfaces in
// front of the pipeline.
package narrate

import (
	"context"
	"errors"
	"strings"
	"time"

	"cicerone/internal/aggregate"
	"cicerone/internal/research"
	"cicerone/internal/router"
	"cicerone/internal/script"
	"cicerone/pkg/logging"
)

// Route labels for the two pipeline branches.
const (
	RouteContent  = "content"
	RouteResearch = "research"
)

// defaultDurationMinutes applies when a request does not name a target
// duration. At 150 words per minute this is a ~1500 word script.
const defaultDurationMinutes = 10

// ContentAggregator gathers multi-source content for a location query.
type ContentAggregator interface {
	Gather(ctx context.Context, query string) (*aggregate.Content, error)
}

// Researcher answers open questions with a structured research result.
type Researcher interface {
	Research(ctx context.Context, question string, depth int) (*research.Result, error)
}

// ScriptGenerator turns gathered material into a validated script.
type ScriptGenerator interface {
	Generate(ctx context.Context, m script.Material, opts script.Options) (*script.Result, error)
}

// Narration is the pipeline result envelope. Exactly one of Aggregated
// and Research is set, matching Route.
type Narration struct {
	Query      string                `json:"query"`
	Route      string                `json:"route"`
	Detection  router.Detection      `json:"detection"`
	Script     string                `json:"script"`
	Metrics    script.QualityMetrics `json:"metrics"`
	Attempts   int                   `json:"attempts"`
	Succeeded  bool                  `json:"succeeded"`
	Aggregated *aggregate.Content    `json:"aggregated,omitempty"`
	Research   *research.Result      `json:"research,omitempty"`
}

// Service runs the narration pipeline. Collaborators are injected so
// tests can stub any stage.
type Service struct {
	aggregator ContentAggregator
	researcher Researcher
	generator  ScriptGenerator
	logger     logging.Logger
}

func NewService(aggregator ContentAggregator, researcher Researcher, generator ScriptGenerator, logger logging.Logger) *Service {
	return &Service{
		aggregator: aggregator,
		researcher: researcher,
		generator:  generator,
		logger:     logger,
	}
}

// Narrate runs route, gather-or-research, and generate for one query.
// Quality problems surface inside the Narration (Succeeded=false with
// the best attempt kept); an error means the pipeline produced nothing.
func (s *Service) Narrate(ctx context.Context, query string, durationMinutes int, preferences map[string]string) (*Narration, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("narrate: query is required")
	}
	if durationMinutes <= 0 {
		durationMinutes = defaultDurationMinutes
	}

	start := time.Now()
	detection := router.Classify(query)
	route := RouteContent
	if detection.IsQuestion {
		route = RouteResearch
	}

	n := &Narration{Query: query, Route: route, Detection: detection}

	var material script.Material
	if detection.IsQuestion {
		if s.researcher == nil {
			return nil, errors.New("narrate: research backend not configured")
		}
		result, err := s.researcher.Research(ctx, query, 0)
		if err != nil {
			pipelineFailures.WithLabelValues("research").Inc()
			return nil, err
		}
		n.Research = result
		material.Research = result
	} else {
		if s.aggregator == nil {
			return nil, errors.New("narrate: content aggregator not configured")
		}
		content, err := s.aggregator.Gather(ctx, query)
		if err != nil {
			pipelineFailures.WithLabelValues("aggregate").Inc()
			return nil, err
		}
		n.Aggregated = content
		material.Content = content
	}

	if s.generator == nil {
		return nil, errors.New("narrate: script generator not configured")
	}
	generated, err := s.generator.Generate(ctx, material, script.Options{
		DurationMinutes: durationMinutes,
		Preferences:     preferences,
	})
	if err != nil {
		pipelineFailures.WithLabelValues("generate").Inc()
		return nil, err
	}

	n.Script = generated.Script
	n.Metrics = generated.Metrics
	n.Attempts = generated.Attempts
	n.Succeeded = generated.Succeeded

	elapsed := time.Since(start)
	pipelineRequests.WithLabelValues(route).Inc()
	pipelineDuration.WithLabelValues(route).Observe(elapsed.Seconds())

	s.logger.WithFields(logging.Fields{
		"query":      query,
		"route":      route,
		"attempts":   n.Attempts,
		"succeeded":  n.Succeeded,
		"word_count": n.Metrics.WordCount,
		"elapsed":    elapsed.String(),
	}).Info("Narration pipeline finished")

	return n, nil
}

// Research answers a standalone question without generating a script.
func (s *Service) Research(ctx context.Context, question string, depth int) (*research.Result, error) {
	if s.researcher == nil {
		return nil, errors.New("narrate: research backend not configured")
	}
	return s.researcher.Research(ctx, question, depth)
}

// Content gathers aggregated content without generating a script.
func (s *Service) Content(ctx context.Context, query string) (*aggregate.Content, error) {
	if s.aggregator == nil {
		return nil, errors.New("narrate: content aggregator not configured")
	}
	return s.aggregator.Gather(ctx, query)
}

// Classify reports the routing verdict for a query without running the
// pipeline.
func (s *Service) Classify(query string) router.Detection {
	return router.Classify(strings.TrimSpace(query))
}
