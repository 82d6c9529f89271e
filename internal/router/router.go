// Package router classifies free-text queries as plain subjects (places,
// entities) or questions that need research synthesis. Classification is a
// pure string heuristic with no I/O; signals accumulate instead of
// short-circuiting so confidence reflects everything that matched.
package router

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// QuestionType describes what kind of answer a question is after.
type QuestionType string

const (
	TypeFactual     QuestionType = "factual"
	TypeCausal      QuestionType = "causal"
	TypeHistorical  QuestionType = "historical"
	TypeDescriptive QuestionType = "descriptive"
)

// Detection is the router's verdict on a single query. Subject and Type are
// only populated for questions; subject extraction is best effort and its
// failure never flips IsQuestion.
type Detection struct {
	IsQuestion bool         `json:"is_question"`
	Confidence float64      `json:"confidence"`
	Subject    string       `json:"subject,omitempty"`
	Type       QuestionType `json:"question_type,omitempty"`
}

// Confidence points per signal, summed then divided once so repeated
// classification of the same string is bit-identical.
const (
	pointsTrailingQuestionMark = 50
	pointsInterrogativeOpener  = 40
	pointsModeratePhrase       = 20
)

// interrogativeOpeners are strong signals when they appear within the first
// three tokens.
var interrogativeOpeners = map[string]struct{}{
	"what": {}, "why": {}, "how": {}, "when": {},
	"where": {}, "who": {}, "which": {},
}

// moderatePhrases each contribute one moderate signal when present anywhere
// in the query. Two moderates classify as a question on their own.
var moderatePhrases = []string{
	"explain",
	"describe",
	"tell me about",
	"history of",
	"story of",
	"significance of",
	"led to",
	"resulted in",
	"caused",
	"influenced",
}

// Classify routes a query. It never errors: an empty or unclassifiable
// string is simply not a question.
func Classify(query string) Detection {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Detection{}
	}
	lower := strings.ToLower(trimmed)
	tokens := strings.Fields(lower)

	points := 0
	strong := false

	if strings.HasSuffix(trimmed, "?") {
		strong = true
		points += pointsTrailingQuestionMark
	}
	opener := openerToken(tokens)
	if opener != "" {
		strong = true
		points += pointsInterrogativeOpener
	}
	moderates := 0
	for _, phrase := range moderatePhrases {
		if strings.Contains(lower, phrase) {
			moderates++
			points += pointsModeratePhrase
		}
	}

	d := Detection{
		IsQuestion: strong || moderates >= 2,
		Confidence: float64(min(points, 100)) / 100,
	}
	if d.IsQuestion {
		d.Subject = extractSubject(trimmed)
		d.Type = questionType(opener, lower)
	}
	return d
}

// openerToken returns the interrogative opener found in the first three
// tokens, or "". Tokens are cut at apostrophes so contractions ("what's")
// still match.
func openerToken(tokens []string) string {
	limit := len(tokens)
	if limit > 3 {
		limit = 3
	}
	for _, tok := range tokens[:limit] {
		tok, _, _ = strings.Cut(tok, "'")
		tok = strings.TrimFunc(tok, unicode.IsPunct)
		if _, ok := interrogativeOpeners[tok]; ok {
			return tok
		}
	}
	return ""
}

// subjectMarkers are tried in order; the first marker followed by a
// capitalized run wins.
var subjectMarkers = []string{" of ", " in "}

// extractSubject pulls an embedded subject out of a question: the first run
// of capitalized words after "of" or "in", stopping at punctuation. Returns
// "" when nothing matches.
func extractSubject(query string) string {
	lower := strings.ToLower(query)
	for _, marker := range subjectMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		tail := query[idx+len(marker):]
		if cut := strings.IndexAny(tail, ".,!?;:"); cut >= 0 {
			tail = tail[:cut]
		}
		if run := capitalizedRun(strings.Fields(tail)); run != "" {
			return run
		}
	}
	return ""
}

// capitalizedRun joins the first contiguous run of capitalized words.
func capitalizedRun(words []string) string {
	var run []string
	for _, w := range words {
		if isCapitalized(w) {
			run = append(run, w)
			continue
		}
		if len(run) > 0 {
			break
		}
	}
	return strings.Join(run, " ")
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

// questionType maps the strongest available signal to an answer shape.
// Openers take precedence; phrase cues break the remaining ties.
func questionType(opener, lower string) QuestionType {
	switch opener {
	case "why":
		return TypeCausal
	case "when":
		return TypeHistorical
	case "how":
		return TypeDescriptive
	case "what", "where", "who", "which":
		return TypeFactual
	}
	switch {
	case strings.Contains(lower, "history of") || strings.Contains(lower, "story of"):
		return TypeHistorical
	case strings.Contains(lower, "led to") || strings.Contains(lower, "resulted in") ||
		strings.Contains(lower, "caused") || strings.Contains(lower, "influenced"):
		return TypeCausal
	case strings.Contains(lower, "explain") || strings.Contains(lower, "describe") ||
		strings.Contains(lower, "tell me about") || strings.Contains(lower, "significance of"):
		return TypeDescriptive
	}
	return TypeFactual
}
