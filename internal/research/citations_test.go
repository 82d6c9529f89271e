package research

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tracking params stripped",
			in:   "https://example.com/article?utm_source=mail&utm_campaign=x&id=7",
			want: "https://example.com/article?id=7",
		},
		{
			name: "fragment and www removed",
			in:   "https://www.example.com/page#section-2",
			want: "https://example.com/page",
		},
		{
			name: "trailing slash trimmed",
			in:   "https://history.stanford.edu/overview/",
			want: "https://history.stanford.edu/overview",
		},
		{
			name: "trailing sentence punctuation dropped",
			in:   "https://en.wikipedia.org/wiki/Rome.",
			want: "https://en.wikipedia.org/wiki/Rome",
		},
		{
			name: "host lowercased path preserved",
			in:   "HTTPS://WWW.Britannica.com/event/ancient-Rome",
			want: "https://britannica.com/event/ancient-Rome",
		},
		{
			name: "scheme-less input rejected",
			in:   "example.com/page",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeURL(tt.in)
			if err != nil {
				t.Fatalf("normalizeURL(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScoreCredibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		want   float64
	}{
		{"nps.gov", 0.9},
		{"mit.edu", 0.85},
		{"wikipedia.org", 0.8},
		{"en.wikipedia.org", 0.8},
		{"bbc.co.uk", 0.7},
		{"medium.com", 0.4},
		{"bit.ly", 0.2},
		{"randomblog.io", defaultCredibility},
	}
	for _, tt := range tests {
		if got := scoreCredibility(tt.domain); got != tt.want {
			t.Fatalf("scoreCredibility(%q) = %f, want %f", tt.domain, got, tt.want)
		}
	}
}

func TestExtractCitationsDedupesAndOrders(t *testing.T) {
	t.Parallel()

	text := `The siege is covered by [Britannica](https://www.britannica.com/event/siege) in depth.
Wikipedia has details at https://en.wikipedia.org/wiki/Siege and a map at https://en.wikipedia.org/wiki/Siege_map.
One blogger disagrees: https://medium.com/@someone/hot-take.`
	provided := []string{
		"https://en.wikipedia.org/wiki/Siege",
		"https://www.nps.gov/articles/siege.htm",
	}

	citations := extractCitations(text, provided)
	if len(citations) != 5 {
		t.Fatalf("expected 5 citations after dedupe, got %+v", citations)
	}

	// Each domain's first citation outranks any repeat, regardless of score.
	if citations[0].Domain != "nps.gov" {
		t.Fatalf("expected nps.gov first, got %+v", citations[0])
	}
	if citations[len(citations)-2].Domain != "medium.com" {
		t.Fatalf("expected medium.com as last first-of-domain, got %+v", citations)
	}
	if citations[len(citations)-1].Domain != "en.wikipedia.org" {
		t.Fatalf("repeat-domain citation must rank last, got %+v", citations)
	}

	var britannica *Citation
	for i := range citations {
		if citations[i].Domain == "britannica.com" {
			britannica = &citations[i]
		}
	}
	if britannica == nil || britannica.Title != "Britannica" {
		t.Fatalf("markdown title lost: %+v", citations)
	}
}

func TestExtractCitationsEmptyText(t *testing.T) {
	t.Parallel()

	if got := extractCitations("no links here", nil); len(got) != 0 {
		t.Fatalf("expected no citations, got %+v", got)
	}
}

func TestDiversify(t *testing.T) {
	t.Parallel()

	in := []Citation{
		{URL: "a", Domain: "wikipedia.org", Credibility: 0.8},
		{URL: "b", Domain: "wikipedia.org", Credibility: 0.8},
		{URL: "c", Domain: "example.com", Credibility: 0.6},
	}
	got := diversify(in)
	if got[0].URL != "a" || got[1].URL != "c" || got[2].URL != "b" {
		t.Fatalf("unexpected diversity order: %+v", got)
	}
}
