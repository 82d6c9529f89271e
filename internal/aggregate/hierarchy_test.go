package aggregate

import "testing"

func TestBuildHierarchy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		primary  map[string]string
		fallback map[string]string
		want     Hierarchy
	}{
		{
			name:    "primary wins over fallback",
			primary: map[string]string{"city": "Paris", "country": "France"},
			fallback: map[string]string{
				"city":    "Paname",
				"region":  "Ile-de-France",
				"country": "France",
			},
			want: Hierarchy{City: "Paris", Region: "Ile-de-France", Country: "France"},
		},
		{
			name:     "fallback fills everything",
			primary:  nil,
			fallback: map[string]string{"neighborhood": "Shimokitazawa", "city": "Tokyo", "country": "Japan"},
			want:     Hierarchy{Neighborhood: "Shimokitazawa", City: "Tokyo", Country: "Japan"},
		},
		{
			name:     "whitespace values are treated as empty",
			primary:  map[string]string{"city": "  "},
			fallback: map[string]string{"city": "Lyon"},
			want:     Hierarchy{City: "Lyon"},
		},
		{
			name: "both empty",
			want: Hierarchy{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := buildHierarchy(tt.primary, tt.fallback)
			if got != tt.want {
				t.Fatalf("buildHierarchy() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHierarchyIsEmpty(t *testing.T) {
	t.Parallel()

	if !(Hierarchy{}).IsEmpty() {
		t.Fatal("zero hierarchy should be empty")
	}
	if (Hierarchy{Country: "France"}).IsEmpty() {
		t.Fatal("hierarchy with a country is not empty")
	}
}

func TestHierarchyPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    Hierarchy
		want string
	}{
		{
			name: "full chain innermost first",
			h: Hierarchy{
				Neighborhood: "Montmartre",
				District:     "18th arrondissement",
				City:         "Paris",
				Region:       "Ile-de-France",
				Country:      "France",
			},
			want: "Montmartre, 18th arrondissement, Paris, Ile-de-France, France",
		},
		{
			name: "gaps skipped",
			h:    Hierarchy{City: "Tokyo", Country: "Japan"},
			want: "Tokyo, Japan",
		},
		{
			name: "adjacent duplicates collapse",
			h:    Hierarchy{District: "Paris", City: "Paris", Country: "France"},
			want: "Paris, France",
		},
		{
			name: "empty",
			h:    Hierarchy{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.h.Path(); got != tt.want {
				t.Fatalf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}
