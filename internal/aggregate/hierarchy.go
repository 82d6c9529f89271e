package aggregate

import (
	"strings"

	"cicerone/internal/sources"
)

// Hierarchy is the geographic nesting of the queried place, innermost
// level first. Levels a source could not resolve stay empty.
type Hierarchy struct {
	Neighborhood string `json:"neighborhood,omitempty"`
	District     string `json:"district,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	Country      string `json:"country,omitempty"`
}

// buildHierarchy takes the hierarchy source's levels and fills gaps from
// the geocoder. A level the primary source set is never overwritten.
func buildHierarchy(primary, fallback map[string]string) Hierarchy {
	pick := func(level string) string {
		if v := strings.TrimSpace(primary[level]); v != "" {
			return v
		}
		return strings.TrimSpace(fallback[level])
	}
	return Hierarchy{
		Neighborhood: pick(sources.LevelNeighborhood),
		District:     pick(sources.LevelDistrict),
		City:         pick(sources.LevelCity),
		Region:       pick(sources.LevelRegion),
		Country:      pick(sources.LevelCountry),
	}
}

// IsEmpty reports whether no level resolved at all.
func (h Hierarchy) IsEmpty() bool {
	return h == Hierarchy{}
}

// Path renders the set levels innermost-first, e.g.
// "Montmartre, Paris, Ile-de-France, France".
func (h Hierarchy) Path() string {
	var parts []string
	for _, level := range []string{h.Neighborhood, h.District, h.City, h.Region, h.Country} {
		if level != "" && (len(parts) == 0 || parts[len(parts)-1] != level) {
			parts = append(parts, level)
		}
	}
	return strings.Join(parts, ", ")
}
