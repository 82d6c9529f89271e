// Package script turns aggregated content or a research result into a
// narration script through a generate-validate-retry state machine. At most
// two generation attempts are made; when neither validates, the better
// attempt is still returned so the caller never receives an empty script
// once any attempt produced text.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cicerone/internal/aggregate"
	"cicerone/internal/research"
	"cicerone/pkg/llm"
	"cicerone/pkg/logging"
)

const (
	maxAttempts            = 2
	wordsPerMinute         = 150
	defaultDurationMinutes = 10
	generationTemperature  = 0.7
	minOutputTokens        = 1024
	defaultTimeout         = 5 * time.Minute
)

// Material is what the script is written from: exactly one of Content or
// Research is set.
type Material struct {
	Content  *aggregate.Content
	Research *research.Result
}

// Options carries caller tuning that flows into the prompt. Preferences are
// free-form style hints (topic weights, surprise tolerance); they never
// alter validation.
type Options struct {
	DurationMinutes int
	Preferences     map[string]string
}

// Result is the pipeline's final artifact.
type Result struct {
	Script    string         `json:"script"`
	Metrics   QualityMetrics `json:"quality_metrics"`
	Attempts  int            `json:"attempts"`
	Succeeded bool           `json:"succeeded"`
}

// Config tunes the generator. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds each generation attempt, not the whole call.
	Timeout time.Duration
	// Temperature is sent to the backend on every attempt.
	Temperature float64
}

// Generator drives script generation against a generative backend.
type Generator struct {
	client      llm.Client
	logger      logging.Logger
	timeout     time.Duration
	temperature float64
}

func NewGenerator(client llm.Client, cfg Config, logger logging.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = generationTemperature
	}
	return &Generator{client: client, logger: logger, timeout: timeout, temperature: temperature}
}

// Generate runs the state machine: build prompt, generate, validate, retry
// once with an escalated prompt on validation failure. A transport error or
// timeout consumes an attempt like any other failure.
func (g *Generator) Generate(ctx context.Context, m Material, opts Options) (*Result, error) {
	if m.Content == nil && m.Research == nil {
		return nil, errors.New("script: no material to write from")
	}
	minutes := opts.DurationMinutes
	if minutes <= 0 {
		minutes = defaultDurationMinutes
	}
	targetWords := minutes * wordsPerMinute

	start := time.Now()
	defer func() {
		generationDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		best     Result
		haveBest bool
		lastErr  error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := buildPrompt(m, opts, targetWords, minutes, attempt > 1)
		text, err := g.generateOnce(ctx, prompt, targetWords)
		if err != nil {
			lastErr = err
			generationAttempts.WithLabelValues("errored").Inc()
			g.logger.WithError(err).WithFields(logging.Fields{
				"attempt": attempt,
				"subject": promptSubject(m),
			}).Warn("Script generation attempt failed")
			continue
		}

		metrics := Validate(text, targetWords)
		if metrics.PassesValidation {
			generationAttempts.WithLabelValues("accepted").Inc()
			g.logger.WithFields(logging.Fields{
				"attempt":    attempt,
				"word_count": metrics.WordCount,
				"density":    metrics.InformationDensity,
			}).Info("Script accepted")
			return &Result{Script: text, Metrics: metrics, Attempts: attempt, Succeeded: true}, nil
		}

		for _, check := range failedChecks(metrics) {
			validationFailures.WithLabelValues(check).Inc()
		}
		if !haveBest || betterAttempt(metrics, best.Metrics) {
			best = Result{Script: text, Metrics: metrics}
			haveBest = true
		}
		if attempt < maxAttempts {
			generationAttempts.WithLabelValues("retried").Inc()
			g.logger.WithFields(logging.Fields{
				"attempt":       attempt,
				"failed_checks": failedChecks(metrics),
			}).Warn("Script failed validation, retrying with escalated prompt")
		}
	}

	if !haveBest {
		return nil, fmt.Errorf("script: no attempt produced text: %w", lastErr)
	}

	generationAttempts.WithLabelValues("gave_up").Inc()
	g.logger.WithFields(logging.Fields{
		"word_count":    best.Metrics.WordCount,
		"density":       best.Metrics.InformationDensity,
		"failed_checks": failedChecks(best.Metrics),
	}).Warn("Script validation gave up, returning best attempt")

	best.Attempts = maxAttempts
	return &best, nil
}

// betterAttempt ranks validation reports: information density first, word
// count accuracy breaks ties.
func betterAttempt(a, b QualityMetrics) bool {
	if a.InformationDensity != b.InformationDensity {
		return a.InformationDensity > b.InformationDensity
	}
	return a.WordCountAccuracy > b.WordCountAccuracy
}

func (g *Generator) generateOnce(ctx context.Context, prompt string, targetWords int) (string, error) {
	maxTokens := targetWords * 2
	if maxTokens < minOutputTokens {
		maxTokens = minOutputTokens
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("backend returned an empty script")
	}
	return text, nil
}
