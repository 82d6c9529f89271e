package script

import (
	"strings"
	"testing"
)

// buildScript assembles a clean narration of roughly target words with an
// introduction hook and a closing signal.
func buildScript(target int) string {
	const (
		intro    = "Welcome to the old city. Today our walk begins at the river gate."
		sentence = " The wall stretches 1800 meters around the hill, and 12 towers survive from 1356."
		outro    = " Thank you for walking with me; remember this view as our journey ends."
	)
	outroWords := len(strings.Fields(outro))

	var b strings.Builder
	b.WriteString(intro)
	for len(strings.Fields(b.String()))+outroWords < target {
		b.WriteString(sentence)
	}
	b.WriteString(outro)
	return b.String()
}

func TestValidatePassingScript(t *testing.T) {
	t.Parallel()

	script := buildScript(300)
	m := Validate(script, 300)

	if !m.IsComplete {
		t.Fatal("script exceeds the length floor, IsComplete must be true")
	}
	if m.HasTemplateArtifact {
		t.Fatal("clean script flagged with template artifact")
	}
	if m.InformationDensity < densityThreshold {
		t.Fatalf("density = %f, below threshold", m.InformationDensity)
	}
	if !m.HasIntroduction || !m.HasConclusion {
		t.Fatalf("intro/conclusion signals missed: %+v", m)
	}
	if m.WordCountAccuracy < accuracyThreshold {
		t.Fatalf("accuracy = %f for %d words against 300", m.WordCountAccuracy, m.WordCount)
	}
	if !m.PassesValidation {
		t.Fatalf("expected pass, got %+v", m)
	}
	if m.WordCount != len(strings.Fields(script)) {
		t.Fatalf("word count %d disagrees with caller split %d", m.WordCount, len(strings.Fields(script)))
	}
}

func TestValidateTooShort(t *testing.T) {
	t.Parallel()

	m := Validate("Welcome. Thank you.", 300)
	if m.IsComplete {
		t.Fatal("short script must not be complete")
	}
	if m.PassesValidation {
		t.Fatal("short script must not validate")
	}
}

func TestHasTemplateArtifact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"continue phrase", "And here the story grows. Let's continue with the discussion", true},
		{"bracketed placeholder", "The fort dates to 1204. [more content here]", true},
		{"to be continued", "Our tale pauses at the gate, to be continued...", true},
		{"ellipsis run", "And then...... the lights went out.", true},
		{"citation bracket", "The walls fell in 1453 [1], ending the siege.", true},
		{"single ellipsis ok", "The bell tolls... and the square falls silent.", false},
		{"clean paragraph", "The cathedral took 182 years to build and its spire held the world height record until 1890.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasTemplateArtifact(tt.script); got != tt.want {
				t.Fatalf("HasTemplateArtifact(%q) = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}

func TestInformationDensity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   float64
	}{
		{"empty", "", 0},
		{"concrete with numeral", "The tower is 330 meters tall.", 1.0},
		{"pure function words", "The a an and or but of to in on", 0.5},
		{"filler saturated", "Basically it is very really quite simply just amazing basically.", 0},
		{"filler phrase penalized", "It is worth noting the tower stands at 330 meters.", 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := InformationDensity(tt.script); got != tt.want {
				t.Fatalf("InformationDensity(%q) = %f, want %f", tt.script, got, tt.want)
			}
		})
	}
}

func TestWordCountAccuracy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		actual int
		target int
		want   float64
	}{
		{1500, 1500, 1.0},
		{1125, 1500, 0.75},
		{750, 1500, 0.5},
		{3000, 1500, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := WordCountAccuracy(tt.actual, tt.target); got != tt.want {
			t.Fatalf("WordCountAccuracy(%d, %d) = %f, want %f", tt.actual, tt.target, got, tt.want)
		}
	}
}

func TestFailedChecks(t *testing.T) {
	t.Parallel()

	m := Validate("to be continued", 300)
	failed := failedChecks(m)
	if len(failed) == 0 {
		t.Fatal("expected failures for a placeholder stub")
	}
	wantSome := map[string]bool{"is_complete": true, "template_artifact": true}
	for _, f := range failed {
		delete(wantSome, f)
	}
	if len(wantSome) != 0 {
		t.Fatalf("missing expected failures %v in %v", wantSome, failed)
	}
}
