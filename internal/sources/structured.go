package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cicerone/pkg/clients"
)

const (
	defaultWikidataURL = "https://www.wikidata.org/w/api.php"
	structuredTimeout  = 8 * time.Second
)

// structuredProperties is the fixed allow-list of place-relevant claims,
// in output order. Everything else an entity carries is ignored.
var structuredProperties = []struct {
	ID    string
	Label string
}{
	{"P1082", "population"},
	{"P571", "inception"},
	{"P625", "coordinates"},
	{"P131", "located in"},
	{"P17", "country"},
	{"P2046", "area"},
	{"P36", "capital"},
	{"P1448", "official name"},
	{"P421", "time zone"},
	{"P2044", "elevation"},
}

// highValueProperties are the claims that make a structured result
// genuinely useful for narration.
var highValueProperties = map[string]bool{
	"P1082": true, // population
	"P17":   true, // country
	"P625":  true, // coordinates
}

// StructuredConfig configures the structured-entity gatherer.
type StructuredConfig struct {
	// APIURL is the MediaWiki action API endpoint. Defaults to Wikidata.
	APIURL    string
	UserAgent string
	Breaker   *clients.CircuitBreaker
}

// StructuredSource resolves the query to a knowledge-base entity
// (Wikidata-style wbsearchentities) and pulls its claims
// (wbgetentities), filtered to the fixed property allow-list.
type StructuredSource struct {
	apiURL    string
	userAgent string
	breaker   *clients.CircuitBreaker
	client    *http.Client
}

func NewStructuredSource(cfg StructuredConfig) *StructuredSource {
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = defaultWikidataURL
	}
	return &StructuredSource{
		apiURL:    apiURL,
		userAgent: cfg.UserAgent,
		breaker:   cfg.Breaker,
		client:    newSourceClient(structuredTimeout),
	}
}

func (g *StructuredSource) ID() string { return SourceStructured }

type wikidataSearchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

type wikidataEntitiesResponse struct {
	Entities map[string]wikidataEntity `json:"entities"`
}

type wikidataEntity struct {
	Claims map[string][]wikidataClaim `json:"claims"`
}

type wikidataClaim struct {
	Mainsnak struct {
		Snaktype  string `json:"snaktype"`
		Datavalue struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

// Fetch runs both steps under one shared deadline.
func (g *StructuredSource) Fetch(ctx context.Context, query string) Result {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return failed(SourceStructured, start, "empty_query")
	}
	ctx, cancel := context.WithTimeout(ctx, structuredTimeout)
	defer cancel()

	searchParams := url.Values{}
	searchParams.Set("action", "wbsearchentities")
	searchParams.Set("search", query)
	searchParams.Set("language", "en")
	searchParams.Set("format", "json")
	searchParams.Set("limit", "1")

	var searchResp wikidataSearchResponse
	if err := fetchJSON(ctx, g.client, g.breaker, g.userAgent, g.apiURL+"?"+searchParams.Encode(), &searchResp); err != nil {
		return failed(SourceStructured, start, failTag(err))
	}
	if len(searchResp.Search) == 0 {
		return failed(SourceStructured, start, "not_found")
	}
	hit := searchResp.Search[0]

	entityParams := url.Values{}
	entityParams.Set("action", "wbgetentities")
	entityParams.Set("ids", hit.ID)
	entityParams.Set("props", "claims")
	entityParams.Set("languages", "en")
	entityParams.Set("format", "json")

	var entitiesResp wikidataEntitiesResponse
	if err := fetchJSON(ctx, g.client, g.breaker, g.userAgent, g.apiURL+"?"+entityParams.Encode(), &entitiesResp); err != nil {
		return failed(SourceStructured, start, failTag(err))
	}

	entity, ok := entitiesResp.Entities[hit.ID]
	if !ok {
		return failed(SourceStructured, start, "not_found")
	}

	properties := claimProperties(entity.Claims)
	if len(properties) == 0 {
		return failed(SourceStructured, start, "no_claims")
	}

	result := Result{
		SourceID:    SourceStructured,
		Succeeded:   true,
		Summary:     hit.Label,
		Description: hit.Description,
		Properties:  properties,
		Elapsed:     time.Since(start),
	}
	result.Quality = structuredQuality(properties)
	return result
}

// claimProperties renders allow-listed claims to strings, keeping the
// allow-list order. Only the first statement of each claim is used.
func claimProperties(claims map[string][]wikidataClaim) []Property {
	var properties []Property
	for _, prop := range structuredProperties {
		statements := claims[prop.ID]
		if len(statements) == 0 {
			continue
		}
		snak := statements[0].Mainsnak
		if snak.Snaktype != "value" && snak.Snaktype != "" {
			continue
		}
		value, ok := renderClaimValue(snak.Datavalue.Type, snak.Datavalue.Value)
		if !ok {
			continue
		}
		properties = append(properties, Property{ID: prop.ID, Label: prop.Label, Value: value})
	}
	return properties
}

// renderClaimValue converts a typed datavalue to a display string.
func renderClaimValue(valueType string, raw json.RawMessage) (string, bool) {
	switch valueType {
	case "quantity":
		var v struct {
			Amount string `json:"amount"`
		}
		if json.Unmarshal(raw, &v) != nil || v.Amount == "" {
			return "", false
		}
		return strings.TrimPrefix(v.Amount, "+"), true
	case "time":
		var v struct {
			Time string `json:"time"`
		}
		if json.Unmarshal(raw, &v) != nil || v.Time == "" {
			return "", false
		}
		return claimYear(v.Time), true
	case "globecoordinate":
		var v struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if json.Unmarshal(raw, &v) != nil {
			return "", false
		}
		return strconv.FormatFloat(v.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(v.Longitude, 'f', -1, 64), true
	case "wikibase-entityid":
		var v struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &v) != nil || v.ID == "" {
			return "", false
		}
		return v.ID, true
	case "monolingualtext":
		var v struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(raw, &v) != nil || v.Text == "" {
			return "", false
		}
		return v.Text, true
	case "string":
		var v string
		if json.Unmarshal(raw, &v) != nil || v == "" {
			return "", false
		}
		return v, true
	default:
		return "", false
	}
}

// claimYear extracts the year from a "+1992-01-01T00:00:00Z" style
// timestamp, keeping a leading minus for BCE dates.
func claimYear(t string) string {
	negative := strings.HasPrefix(t, "-")
	t = strings.TrimLeft(t, "+-")
	if idx := strings.IndexByte(t, '-'); idx > 0 {
		t = t[:idx]
	}
	t = strings.TrimLeft(t, "0")
	if t == "" {
		t = "0"
	}
	if negative {
		return "-" + t
	}
	return t
}

// structuredQuality scores by populated claim count; five or more claims
// including a high-value one reaches 1.0. Integer points keep the score
// exact.
func structuredQuality(properties []Property) float64 {
	points := len(properties) * 18
	if points > 90 {
		points = 90
	}
	for _, prop := range properties {
		if highValueProperties[prop.ID] {
			points += 10
			break
		}
	}
	return float64(points) / 100
}
