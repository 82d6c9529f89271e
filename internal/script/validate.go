package script

import (
	"math"
	"regexp"
	"strings"
)

const (
	minCompleteChars  = 500
	densityThreshold  = 0.60
	accuracyThreshold = 0.70
	edgeWindowChars   = 200
)

// QualityMetrics is the deterministic validation report computed on the raw
// script text. WordCount is an exact whitespace split, so callers splitting
// the script themselves get the same number.
type QualityMetrics struct {
	IsComplete          bool    `json:"is_complete"`
	HasTemplateArtifact bool    `json:"has_template_artifact"`
	InformationDensity  float64 `json:"information_density"`
	HasIntroduction     bool    `json:"has_introduction"`
	HasConclusion       bool    `json:"has_conclusion"`
	WordCount           int     `json:"word_count"`
	TargetWordCount     int     `json:"target_word_count"`
	WordCountAccuracy   float64 `json:"word_count_accuracy"`
	PassesValidation    bool    `json:"passes_validation"`
}

// Validate scores a script against the target word count. No LLM is
// involved; the same input always yields the same report.
func Validate(script string, targetWords int) QualityMetrics {
	wordCount := len(strings.Fields(script))
	m := QualityMetrics{
		IsComplete:          len(script) > minCompleteChars,
		HasTemplateArtifact: HasTemplateArtifact(script),
		InformationDensity:  InformationDensity(script),
		HasIntroduction:     hasSignal(head(script), introSignals),
		HasConclusion:       hasSignal(tail(script), conclusionSignals),
		WordCount:           wordCount,
		TargetWordCount:     targetWords,
		WordCountAccuracy:   WordCountAccuracy(wordCount, targetWords),
	}
	m.PassesValidation = m.IsComplete &&
		!m.HasTemplateArtifact &&
		m.InformationDensity >= densityThreshold &&
		m.HasIntroduction &&
		m.HasConclusion &&
		m.WordCountAccuracy >= accuracyThreshold
	return m
}

// failedChecks lists the names of checks a report failed, for metrics.
func failedChecks(m QualityMetrics) []string {
	var failed []string
	if !m.IsComplete {
		failed = append(failed, "is_complete")
	}
	if m.HasTemplateArtifact {
		failed = append(failed, "template_artifact")
	}
	if m.InformationDensity < densityThreshold {
		failed = append(failed, "information_density")
	}
	if !m.HasIntroduction {
		failed = append(failed, "has_introduction")
	}
	if !m.HasConclusion {
		failed = append(failed, "has_conclusion")
	}
	if m.WordCountAccuracy < accuracyThreshold {
		failed = append(failed, "word_count_accuracy")
	}
	return failed
}

// artifactPhrases are literal placeholder markers no finished narration may
// contain. Matched case-insensitively.
var artifactPhrases = []string{
	"let's continue",
	"let us continue",
	"to be continued",
	"more content here",
	"rest of the script",
	"continue from here",
	"insert details",
	"add more",
}

var (
	bracketPlaceholderRe = regexp.MustCompile(`\[[^\[\]]{0,80}\]`)
	ellipsisRunRe        = regexp.MustCompile(`\.{4,}|(?:\.{3}\s*){2,}|…\s*…`)
)

// HasTemplateArtifact reports whether the script contains placeholder
// leftovers: a denylisted phrase, a bracketed placeholder, or a run of
// ellipses.
func HasTemplateArtifact(script string) bool {
	lower := strings.ToLower(script)
	for _, phrase := range artifactPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return bracketPlaceholderRe.MatchString(script) || ellipsisRunRe.MatchString(script)
}

// fillerPhrases pad word count without carrying information. Each
// occurrence penalizes density by twice its word length. Single-word
// fillers live in fillerWords and are matched per token, not by substring,
// so "very" does not fire inside "every".
var fillerPhrases = []string{
	"as we all know",
	"needless to say",
	"it goes without saying",
	"at the end of the day",
	"when all is said and done",
	"it is important to note",
	"it is worth noting",
	"it should be noted",
	"first and foremost",
	"last but not least",
	"each and every",
	"in order to",
	"the fact that",
}

var fillerWords = map[string]struct{}{
	"basically": {}, "essentially": {}, "literally": {},
	"very": {}, "really": {}, "quite": {}, "simply": {}, "just": {},
}

// stopwordSet covers the function words counted at half weight. Kept small
// on purpose; this is a density heuristic, not a linguistic model.
var stopwordSet = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {},
	"for": {}, "with": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "it": {}, "its": {},
	"this": {}, "that": {}, "these": {}, "those": {},
}

// InformationDensity approximates the content-word ratio. Stopwords count
// half, filler phrases penalize double, numerals reward. Integer points are
// summed and divided once so equal inputs score bit-equal.
func InformationDensity(script string) float64 {
	words := strings.Fields(script)
	total := len(words)
	if total == 0 {
		return 0
	}

	points := 2 * total

	lower := strings.ToLower(script)
	for _, phrase := range fillerPhrases {
		if n := strings.Count(lower, phrase); n > 0 {
			points -= 4 * n * len(strings.Fields(phrase))
		}
	}

	for _, w := range words {
		trimmed := strings.ToLower(strings.Trim(w, `.,;:!?"'()`))
		if _, ok := stopwordSet[trimmed]; ok {
			points--
		}
		if _, ok := fillerWords[trimmed]; ok {
			points -= 4
		}
		if containsDigit(trimmed) {
			points += 2
		}
	}

	density := float64(points) / float64(2*total)
	return math.Min(1, math.Max(0, density))
}

// WordCountAccuracy is 1 minus the relative deviation from target, floored
// at zero.
func WordCountAccuracy(actual, target int) float64 {
	if target <= 0 {
		return 0
	}
	accuracy := 1 - math.Abs(float64(actual-target))/float64(target)
	return math.Max(0, accuracy)
}

// introSignals mark a hook or greeting near the top of the script.
var introSignals = []string{
	"welcome", "hello", "today", "imagine", "picture", "join me",
	"our story", "we begin", "let me take you", "step",
}

// conclusionSignals mark a wrap-up near the end.
var conclusionSignals = []string{
	"thank you", "in closing", "farewell", "remember", "until",
	"journey ends", "leave you", "in the end", "finally", "next time",
}

func hasSignal(window string, signals []string) bool {
	lower := strings.ToLower(window)
	for _, s := range signals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func head(s string) string {
	if len(s) <= edgeWindowChars {
		return s
	}
	return s[:edgeWindowChars]
}

func tail(s string) string {
	if len(s) <= edgeWindowChars {
		return s
	}
	return s[len(s)-edgeWindowChars:]
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
