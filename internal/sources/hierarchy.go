package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cicerone/pkg/clients"
)

const (
	defaultGeoNamesURL = "http://api.geonames.org"
	hierarchyTimeout   = 10 * time.Second
	nearbyRadiusKm     = 5
	maxNearbyPlaces    = 10
	rateLimitStatusMin = 18 // GeoNames daily/hourly/weekly credit limits
	rateLimitStatusMax = 20
)

// HierarchyConfig configures the geographic-hierarchy gatherer.
type HierarchyConfig struct {
	// APIURL is the GeoNames-style API base. Username is required by the
	// upstream on every call.
	APIURL    string
	Username  string
	UserAgent string
	Breaker   *clients.CircuitBreaker
}

// HierarchySource resolves the query to a gazetteer entry and walks its
// ancestor chain into named levels (country, region, district, city,
// neighborhood), plus a small nearby-places list.
type HierarchySource struct {
	apiURL    string
	username  string
	userAgent string
	breaker   *clients.CircuitBreaker
	client    *http.Client
}

func NewHierarchySource(cfg HierarchyConfig) *HierarchySource {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultGeoNamesURL
	}
	return &HierarchySource{
		apiURL:    apiURL,
		username:  cfg.Username,
		userAgent: cfg.UserAgent,
		breaker:   cfg.Breaker,
		client:    newSourceClient(hierarchyTimeout),
	}
}

func (g *HierarchySource) ID() string { return SourceHierarchy }

type geoNamesItem struct {
	GeonameID   int64  `json:"geonameId"`
	Name        string `json:"name"`
	Fcode       string `json:"fcode"`
	Lat         string `json:"lat"`
	Lng         string `json:"lng"`
	CountryName string `json:"countryName"`
	AdminName1  string `json:"adminName1"`
}

type geoNamesResponse struct {
	Geonames []geoNamesItem `json:"geonames"`
	Status   struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

// Fetch runs the search, hierarchy, and nearby calls under one shared
// deadline. Search failure fails the source; the two follow-up calls
// degrade it instead (levels fall back to the search hit's own fields).
func (g *HierarchySource) Fetch(ctx context.Context, query string) Result {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return failed(SourceHierarchy, start, "empty_query")
	}
	ctx, cancel := context.WithTimeout(ctx, hierarchyTimeout)
	defer cancel()

	searchResp, err := g.call(ctx, "/searchJSON", url.Values{"q": {query}, "maxRows": {"1"}})
	if err != nil {
		return failed(SourceHierarchy, start, failTag(err))
	}
	if tag := geoNamesStatusTag(searchResp); tag != "" {
		return failed(SourceHierarchy, start, tag)
	}
	if len(searchResp.Geonames) == 0 {
		return failed(SourceHierarchy, start, "not_found")
	}
	hit := searchResp.Geonames[0]

	levels := map[string]string{}
	chainResp, err := g.call(ctx, "/hierarchyJSON", url.Values{"geonameId": {strconv.FormatInt(hit.GeonameID, 10)}})
	if err == nil && geoNamesStatusTag(chainResp) == "" {
		levels = classifyAncestors(chainResp.Geonames)
	}
	if levels[LevelCountry] == "" && hit.CountryName != "" {
		levels[LevelCountry] = hit.CountryName
	}
	if levels[LevelRegion] == "" && hit.AdminName1 != "" {
		levels[LevelRegion] = hit.AdminName1
	}
	if levels[LevelCity] == "" && strings.HasPrefix(strings.ToUpper(hit.Fcode), "PPL") {
		levels[LevelCity] = hit.Name
	}

	result := Result{
		SourceID:  SourceHierarchy,
		Succeeded: true,
		Levels:    levels,
	}
	if lat, lon, ok := parseCoords(hit.Lat, hit.Lng); ok {
		result.Lat, result.Lon, result.HasCoords = lat, lon, true
		nearbyResp, nearbyErr := g.call(ctx, "/findNearbyJSON", url.Values{
			"lat":     {hit.Lat},
			"lng":     {hit.Lng},
			"radius":  {strconv.Itoa(nearbyRadiusKm)},
			"maxRows": {strconv.Itoa(maxNearbyPlaces)},
		})
		if nearbyErr == nil && geoNamesStatusTag(nearbyResp) == "" {
			result.Nearby = nearbyNames(nearbyResp.Geonames, hit.Name)
		}
	}
	result.Quality = hierarchyQuality(result)
	result.Elapsed = time.Since(start)
	return result
}

func (g *HierarchySource) call(ctx context.Context, path string, params url.Values) (*geoNamesResponse, error) {
	params.Set("username", g.username)
	var resp geoNamesResponse
	if err := fetchJSON(ctx, g.client, g.breaker, g.userAgent, g.apiURL+path+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// geoNamesStatusTag maps the in-band status object (errors arrive with
// HTTP 200) to a failure tag. Empty means no error.
func geoNamesStatusTag(resp *geoNamesResponse) string {
	if resp.Status.Message == "" {
		return ""
	}
	if resp.Status.Value >= rateLimitStatusMin && resp.Status.Value <= rateLimitStatusMax {
		return "rate_limited"
	}
	return "upstream_error"
}

// classifyAncestors walks the chain outermost-first. A second populated
// place under an existing city is a closer sub-place and lands in
// neighborhood; later sub-places replace earlier ones since the chain
// narrows as it goes.
func classifyAncestors(chain []geoNamesItem) map[string]string {
	levels := map[string]string{}
	for _, item := range chain {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		fcode := strings.ToUpper(item.Fcode)
		switch {
		case fcode == "PCLI" || fcode == "PCLF" || fcode == "PCLS":
			fillLevel(levels, LevelCountry, name)
		case fcode == "ADM1":
			fillLevel(levels, LevelRegion, name)
		case fcode == "ADM2":
			fillLevel(levels, LevelDistrict, name)
		case strings.HasPrefix(fcode, "PPL"):
			if levels[LevelCity] == "" {
				levels[LevelCity] = name
			} else if name != levels[LevelCity] {
				levels[LevelNeighborhood] = name
			}
		}
	}
	return levels
}

func fillLevel(levels map[string]string, level, name string) {
	if levels[level] == "" {
		levels[level] = name
	}
}

func nearbyNames(items []geoNamesItem, self string) []string {
	seen := map[string]bool{self: true}
	var names []string
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if len(names) == maxNearbyPlaces {
			break
		}
	}
	return names
}

func parseCoords(latStr, lonStr string) (float64, float64, bool) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// hierarchyQuality scores each of the four outer levels plus the nearby
// list equally; a full chain with neighbors reaches 1.0.
func hierarchyQuality(r Result) float64 {
	var points int
	for _, level := range []string{LevelCountry, LevelRegion, LevelDistrict, LevelCity} {
		if r.Levels[level] != "" {
			points++
		}
	}
	if len(r.Nearby) > 0 {
		points++
	}
	return float64(points) / 5
}
