package script

import (
	"fmt"
	"sort"
	"strings"

	"cicerone/internal/aggregate"
	"cicerone/internal/research"
	"cicerone/internal/sources"
)

const systemPrompt = `You are a narration writer for audio tours. You write complete, broadcast-ready scripts meant to be read aloud exactly as written.

Rules
- Never emit placeholder text, bracketed notes, or stage directions.
- Never write "let's continue", "to be continued", or trail off with ellipses.
- Every script runs from its first word to its last with nothing left to fill in.`

const requirementsBlock = `
Requirements
- Deliver the complete script from start to finish in one piece.
- No placeholder phrases: no "let's continue", no "to be continued", no bracketed placeholders, no runs of ellipses.
- Open with a short hook (about 5% of the running time), develop the main body, and close with a conclusion (about 5%).
- Weave the facts into a flowing narrative; do not recite them as a list.
- Write for the ear: spoken rhythm, concrete details, vivid but accurate.
`

const retryEscalation = `
IMPORTANT: This is a retry. The previous attempt was incomplete or contained placeholder text. You MUST deliver a complete script from the first word to the last, with no placeholders, no bracketed notes, and no trailing ellipses.
`

const (
	maxPromptFacts      = 24
	maxExplanationWords = 800
)

// buildPrompt assembles the user message for one generation attempt.
// Deterministic for a given material and options, so a retry differs only
// by the escalation block.
func buildPrompt(m Material, opts Options, targetWords, minutes int, retry bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a spoken narration script about %s.\n", promptSubject(m))
	fmt.Fprintf(&b, "Length: about %d words, roughly %d minutes at a natural speaking pace.\n\n", targetWords, minutes)

	switch {
	case m.Content != nil:
		b.WriteString(contentSection(m.Content))
	case m.Research != nil:
		b.WriteString(researchSection(m.Research))
	}

	b.WriteString(requirementsBlock)
	b.WriteString(preferenceSection(opts.Preferences))

	if retry {
		b.WriteString(retryEscalation)
	}
	return b.String()
}

func promptSubject(m Material) string {
	if m.Content != nil {
		return m.Content.Query
	}
	return m.Research.Question
}

func contentSection(c *aggregate.Content) string {
	var b strings.Builder

	b.WriteString("Setting\n")
	if path := c.Hierarchy.Path(); path != "" {
		fmt.Fprintf(&b, "- Location: %s\n", path)
	}
	if narrative, ok := c.Sources[sources.SourceNarrative]; ok && narrative.Succeeded {
		if narrative.Summary != "" {
			fmt.Fprintf(&b, "- Background: %s\n", narrative.Summary)
		}
		if narrative.Description != "" {
			fmt.Fprintf(&b, "- Described as: %s\n", narrative.Description)
		}
	}
	if geocode, ok := c.Sources[sources.SourceGeocode]; ok && geocode.Succeeded && geocode.DisplayName != "" {
		fmt.Fprintf(&b, "- Full name: %s\n", geocode.DisplayName)
	}

	if len(c.StructuredFacts) > 0 {
		b.WriteString("\nFacts to weave in\n")
		facts := c.StructuredFacts
		if len(facts) > maxPromptFacts {
			facts = facts[:maxPromptFacts]
		}
		for _, f := range facts {
			if f.Property != "" && f.Property != "fact" {
				fmt.Fprintf(&b, "- %s: %s\n", f.Property, f.Value)
			} else {
				fmt.Fprintf(&b, "- %s\n", f.Value)
			}
		}
	}

	if hierarchy, ok := c.Sources[sources.SourceHierarchy]; ok && hierarchy.Succeeded && len(hierarchy.Nearby) > 0 {
		fmt.Fprintf(&b, "\nNearby: %s\n", strings.Join(hierarchy.Nearby, ", "))
	}
	return b.String()
}

func researchSection(r *research.Result) string {
	var b strings.Builder

	b.WriteString("Research notes\n")
	if r.Overview != "" {
		fmt.Fprintf(&b, "Overview: %s\n", r.Overview)
	}
	if len(r.KeyFindings) > 0 {
		b.WriteString("\nKey findings\n")
		for _, f := range r.KeyFindings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if r.Explanation != "" {
		fmt.Fprintf(&b, "\nDetail\n%s\n", truncateWords(r.Explanation, maxExplanationWords))
	}
	if r.Conclusion != "" {
		fmt.Fprintf(&b, "\nTakeaway: %s\n", r.Conclusion)
	}
	return b.String()
}

// preferenceSection renders user preferences as style hints, sorted by key
// so prompts stay deterministic.
func preferenceSection(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\nStyle hints\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, prefs[k])
	}
	return b.String()
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ")
}
