package sources

import "testing"

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"São Paulo", "sao paulo"},
		{"Zürich", "zurich"},
		{"Tōkyō", "tokyo"},
		{"  Paris,   France  ", "paris, france"},
		{"WHY did\tthe\nempire fall?", "why did the empire fall?"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeQueryIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"São Paulo", "  Mixed   CASE  query ", "déjà vu"}
	for _, in := range inputs {
		once := NormalizeQuery(in)
		if twice := NormalizeQuery(once); twice != once {
			t.Fatalf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
