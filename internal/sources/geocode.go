package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cicerone/pkg/clients"
	"cicerone/pkg/countries"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	geocodeTimeout      = 5 * time.Second
)

// GeocodeConfig configures the forward-geocoding gatherer.
type GeocodeConfig struct {
	// APIURL is the Nominatim-style API base. The upstream usage policy
	// requires a descriptive User-Agent on every request.
	APIURL    string
	UserAgent string
	Breaker   *clients.CircuitBreaker
}

// GeocodeSource forward-geocodes the query to coordinates plus minimal
// locality fields. It backstops the hierarchy source: its levels fill
// gaps, never overwrite.
type GeocodeSource struct {
	apiURL    string
	userAgent string
	breaker   *clients.CircuitBreaker
	client    *http.Client
}

func NewGeocodeSource(cfg GeocodeConfig) *GeocodeSource {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultNominatimURL
	}
	return &GeocodeSource{
		apiURL:    apiURL,
		userAgent: cfg.UserAgent,
		breaker:   cfg.Breaker,
		client:    newSourceClient(geocodeTimeout),
	}
}

func (g *GeocodeSource) ID() string { return SourceGeocode }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Suburb      string `json:"suburb"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		County      string `json:"county"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (g *GeocodeSource) Fetch(ctx context.Context, query string) Result {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return failed(SourceGeocode, start, "empty_query")
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	var places []nominatimPlace
	if err := fetchJSON(ctx, g.client, g.breaker, g.userAgent, g.apiURL+"/search?"+params.Encode(), &places); err != nil {
		return failed(SourceGeocode, start, failTag(err))
	}
	if len(places) == 0 {
		return failed(SourceGeocode, start, "not_found")
	}
	place := places[0]

	result := Result{
		SourceID:    SourceGeocode,
		Succeeded:   true,
		DisplayName: strings.TrimSpace(place.DisplayName),
		Levels:      geocodeLevels(place),
		Elapsed:     time.Since(start),
	}
	if lat, lon, ok := parseCoords(place.Lat, place.Lon); ok {
		result.Lat, result.Lon, result.HasCoords = lat, lon, true
	}
	result.Quality = geocodeQuality(result)
	return result
}

// geocodeLevels maps the address object to hierarchy levels. City-like
// fields are tried most-specific first; a bare country code renders
// through the ISO table.
func geocodeLevels(place nominatimPlace) map[string]string {
	addr := place.Address
	levels := map[string]string{}
	if addr.Suburb != "" {
		levels[LevelNeighborhood] = addr.Suburb
	}
	for _, city := range []string{addr.City, addr.Town, addr.Village} {
		if city != "" {
			levels[LevelCity] = city
			break
		}
	}
	if addr.State != "" {
		levels[LevelRegion] = addr.State
	} else if addr.County != "" {
		levels[LevelRegion] = addr.County
	}
	if addr.Country != "" {
		levels[LevelCountry] = addr.Country
	} else if name := countries.Name(addr.CountryCode); name != "" {
		levels[LevelCountry] = name
	}
	return levels
}

// geocodeQuality weights coordinates heaviest; the locality fields are
// secondary.
func geocodeQuality(r Result) float64 {
	var points int
	if r.HasCoords {
		points += 5
	}
	if r.DisplayName != "" {
		points += 2
	}
	for _, level := range []string{LevelCity, LevelRegion, LevelCountry} {
		if r.Levels[level] != "" {
			points++
		}
	}
	return float64(points) / 10
}
