// Package research answers question-routed queries with a single
// long-running call to a search-capable generative backend, then parses the
// free-text answer into a structured result. There is no retry at this
// layer; a malformed response surfaces with whatever fields could be
// extracted.
package research

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cicerone/pkg/llm"
	"cicerone/pkg/logging"
)

const (
	MinDepth     = 1
	MaxDepth     = 6
	DefaultDepth = 3

	minKeyFindings = 3
	maxKeyFindings = 5

	researchTemperature = 0.2
	defaultMaxTokens    = 8192
	defaultTimeout      = 5 * time.Minute

	confidencePerCitation = 15
	confidenceCitationCap = 60
)

// depthInstructions is the fixed ladder selected by depth 1..6.
var depthInstructions = [MaxDepth]string{
	"Keep it brief: a concise overview a curious visitor could absorb in a minute.",
	"Cover the essentials with a little supporting detail.",
	"Give a solid general-interest treatment with context and examples.",
	"Go deeper: cover mechanisms, causes, and notable points of debate.",
	"Be comprehensive: trace the full arc, major interpretations, and the evidence behind them.",
	"Research with expert rigor: primary factors, competing academic views, and historiography where relevant.",
}

const researchPrompt = `You are a careful research assistant for a narration service. Answer the question below using current, verifiable information.

Question: %s

Depth: %s

Structure the answer in exactly four parts, in this order:

## Overview
One short paragraph summarizing the answer.

## Key Findings
3 to 5 bullet points. One finding per bullet.

## Detailed Explanation
The full reasoning, evidence, and relevant context.

## Conclusion
One closing paragraph.

Cite sources with URLs for every substantive claim.`

// Result is the structured outcome of one research call.
type Result struct {
	Question       string     `json:"question"`
	Overview       string     `json:"overview"`
	KeyFindings    []string   `json:"key_findings"`
	Explanation    string     `json:"detailed_explanation"`
	Conclusion     string     `json:"conclusion"`
	Sources        []Citation `json:"sources,omitempty"`
	Confidence     float64    `json:"confidence"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
}

// Config tunes the adapter. Zero values fall back to defaults.
type Config struct {
	// Model overrides the client's configured model so a search-capable
	// model can serve research while a cheaper one writes scripts.
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Adapter runs research questions against a generative backend.
type Adapter struct {
	client    llm.Client
	logger    logging.Logger
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewAdapter(client llm.Client, cfg Config, logger logging.Logger) *Adapter {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		client:    client,
		logger:    logger,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Research issues exactly one backend call and parses the answer. Backend
// errors return (nil, err); parse shortfalls do not error, they just leave
// fields empty.
func (a *Adapter) Research(ctx context.Context, question string, depth int) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("research: question is required")
	}
	depth = ClampDepth(depth)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model:         a.model,
		Messages:      []llm.Message{{Role: "user", Content: buildPrompt(question, depth)}},
		MaxTokens:     a.maxTokens,
		Temperature:   researchTemperature,
		EnableSearch:  true,
		SearchRecency: "year",
	})
	if err != nil {
		return nil, fmt.Errorf("research %q: %w", question, err)
	}

	result := parseResponse(question, resp.Text, resp.Citations)
	result.ElapsedSeconds = time.Since(start).Seconds()

	a.logger.WithFields(logging.Fields{
		"question":     question,
		"depth":        depth,
		"key_findings": len(result.KeyFindings),
		"sources":      len(result.Sources),
		"confidence":   result.Confidence,
		"elapsed":      time.Since(start).String(),
	}).Info("Research completed")

	return result, nil
}

// ClampDepth snaps a requested depth onto the 1..6 ladder; zero selects the
// default.
func ClampDepth(depth int) int {
	switch {
	case depth == 0:
		return DefaultDepth
	case depth < MinDepth:
		return MinDepth
	case depth > MaxDepth:
		return MaxDepth
	}
	return depth
}

func buildPrompt(question string, depth int) string {
	return fmt.Sprintf(researchPrompt, question, depthInstructions[depth-1])
}

type section int

const (
	secPreamble section = iota
	secOverview
	secFindings
	secDetailed
	secConclusion
)

// sectionMarkers map heading text to sections. Longer markers come before
// their prefixes so "key findings" is not swallowed by "findings".
var sectionMarkers = []struct {
	name string
	sec  section
}{
	{"key findings", secFindings},
	{"main findings", secFindings},
	{"key points", secFindings},
	{"findings", secFindings},
	{"detailed explanation", secDetailed},
	{"detailed analysis", secDetailed},
	{"explanation", secDetailed},
	{"analysis", secDetailed},
	{"details", secDetailed},
	{"overview", secOverview},
	{"summary", secOverview},
	{"conclusion", secConclusion},
	{"final thoughts", secConclusion},
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)`)

// parseResponse splits a free-text answer into the four-part shape. Every
// step degrades instead of failing: missing sections fall back to paragraph
// position, findings pad from the explanation, and an empty response yields
// an empty result with zero confidence.
func parseResponse(question, text string, provided []string) *Result {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	result := &Result{Question: question}
	result.Sources = extractCitations(text, provided)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return result
	}

	sections := splitSections(trimmed)
	result.Overview = joinBlock(sections[secOverview])
	result.Explanation = joinBlock(sections[secDetailed])
	result.Conclusion = joinBlock(sections[secConclusion])
	findings, residue := bulletItems(sections[secFindings])

	paras := paragraphs(trimmed)
	if result.Overview == "" && len(paras) > 0 {
		result.Overview = paras[0]
	}
	if result.Conclusion == "" && len(paras) >= 3 {
		result.Conclusion = paras[len(paras)-1]
	}
	if result.Explanation == "" {
		result.Explanation = joinBlock(residue)
	}
	if result.Explanation == "" {
		result.Explanation = middleParagraphs(paras)
	}
	if len(findings) == 0 {
		findings = firstBulletRun(trimmed)
	}
	result.KeyFindings = clampFindings(findings, result.Explanation)

	result.Confidence = deriveConfidence(len(result.Sources), len(trimmed))
	return result
}

// headingFor recognizes a section heading line; markdown markers,
// enumeration, bold wrappers, and a trailing colon are tolerated.
func headingFor(line string) (section, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 64 {
		return 0, false
	}
	lower := strings.ToLower(trimmed)
	lower = strings.TrimSpace(strings.TrimLeft(lower, "#>"))
	lower = strings.TrimSpace(strings.TrimLeft(lower, "0123456789.) "))
	lower = strings.Trim(lower, "*_")
	lower = strings.TrimSuffix(strings.TrimSpace(lower), ":")
	lower = strings.TrimSpace(strings.Trim(lower, "*_"))
	for _, m := range sectionMarkers {
		if strings.HasPrefix(lower, m.name) && len(lower) <= len(m.name)+12 {
			return m.sec, true
		}
	}
	return 0, false
}

func splitSections(text string) map[section][]string {
	sections := make(map[section][]string)
	current := secPreamble
	for _, line := range strings.Split(text, "\n") {
		if sec, ok := headingFor(line); ok {
			current = sec
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

func joinBlock(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// bulletItems separates a section into its bullet findings and the non-list
// residue lines around them.
func bulletItems(lines []string) (items, residue []string) {
	for _, line := range lines {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			items = append(items, cleanFinding(m[1]))
			continue
		}
		if strings.TrimSpace(line) != "" {
			residue = append(residue, line)
		}
	}
	return items, residue
}

// firstBulletRun scans the whole text for the first list of at least two
// bullets, for answers that ignored the requested headings.
func firstBulletRun(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			items = append(items, cleanFinding(m[1]))
			continue
		}
		if len(items) > 0 && strings.TrimSpace(line) == "" {
			continue
		}
		if len(items) >= 2 {
			break
		}
		items = items[:0]
	}
	if len(items) < 2 {
		return nil
	}
	return items
}

func cleanFinding(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")
	return strings.TrimSpace(s)
}

func paragraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paras = append(paras, block)
		}
	}
	return paras
}

func middleParagraphs(paras []string) string {
	switch {
	case len(paras) >= 3:
		return strings.Join(paras[1:len(paras)-1], "\n\n")
	case len(paras) == 2:
		return paras[1]
	case len(paras) == 1:
		return paras[0]
	}
	return ""
}

// clampFindings enforces the 3..5 finding count: excess is truncated,
// shortfall is padded with leading sentences from the explanation until the
// material runs out.
func clampFindings(findings []string, explanation string) []string {
	if len(findings) > maxKeyFindings {
		return findings[:maxKeyFindings]
	}
	if len(findings) >= minKeyFindings {
		return findings
	}
	for _, p := range paragraphs(explanation) {
		if len(findings) >= minKeyFindings {
			break
		}
		sentence := firstSentence(p)
		if sentence == "" || bulletRe.MatchString(sentence) || containsString(findings, sentence) {
			continue
		}
		findings = append(findings, sentence)
	}
	return findings
}

func firstSentence(p string) string {
	p = strings.TrimSpace(p)
	for i, r := range p {
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(p) || p[i+1] == ' ' || p[i+1] == '\n' {
				return p[:i+1]
			}
		}
	}
	return p
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// deriveConfidence scores the answer from citation count and length.
// Points are integers summed once so equal inputs give bit-equal scores.
func deriveConfidence(citationCount, textLen int) float64 {
	points := citationCount * confidencePerCitation
	if points > confidenceCitationCap {
		points = confidenceCitationCap
	}
	switch {
	case textLen >= 3000:
		points += 40
	case textLen >= 1500:
		points += 30
	case textLen >= 500:
		points += 20
	case textLen > 0:
		points += 10
	}
	if points > 100 {
		points = 100
	}
	return float64(points) / 100
}
