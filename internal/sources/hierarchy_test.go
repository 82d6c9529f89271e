package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const parisSearchHit = `{"geonames":[{"geonameId":2988507,"name":"Paris","fcode":"PPLC","lat":"48.85341","lng":"2.3488","countryName":"France","adminName1":"Ile-de-France"}]}`

func TestHierarchyFetch(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") != "tester" {
			errCh <- fmt.Errorf("missing username in %s", r.URL.RawQuery)
			return
		}
		switch r.URL.Path {
		case "/searchJSON":
			fmt.Fprint(w, parisSearchHit)
		case "/hierarchyJSON":
			if r.URL.Query().Get("geonameId") != "2988507" {
				errCh <- fmt.Errorf("unexpected geonameId %q", r.URL.Query().Get("geonameId"))
				return
			}
			fmt.Fprint(w, `{"geonames":[
				{"name":"Earth","fcode":"AREA"},
				{"name":"Europe","fcode":"CONT"},
				{"name":"France","fcode":"PCLI"},
				{"name":"Ile-de-France","fcode":"ADM1"},
				{"name":"Paris","fcode":"ADM2"},
				{"name":"Paris","fcode":"PPLC"}
			]}`)
		case "/findNearbyJSON":
			fmt.Fprint(w, `{"geonames":[{"name":"Paris","fcode":"PPLC"},{"name":"Saint-Mande","fcode":"PPL"},{"name":"Vincennes","fcode":"PPL"}]}`)
		default:
			errCh <- fmt.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	g := NewHierarchySource(HierarchyConfig{APIURL: server.URL, Username: "tester"})
	result := g.Fetch(context.Background(), "Paris")

	select {
	case err := <-errCh:
		t.Fatalf("handler error: %v", err)
	default:
	}
	if !result.Succeeded {
		t.Fatalf("expected success, got error tag %q", result.Err)
	}
	wantLevels := map[string]string{
		LevelCountry:  "France",
		LevelRegion:   "Ile-de-France",
		LevelDistrict: "Paris",
		LevelCity:     "Paris",
	}
	for level, want := range wantLevels {
		if result.Levels[level] != want {
			t.Fatalf("level %s = %q, want %q (levels %v)", level, result.Levels[level], want, result.Levels)
		}
	}
	if !result.HasCoords || result.Lat == 0 || result.Lon == 0 {
		t.Fatalf("expected coordinates from search hit, got %+v", result)
	}
	if len(result.Nearby) != 2 {
		t.Fatalf("expected 2 nearby places excluding the place itself, got %v", result.Nearby)
	}
	if result.Quality != 1.0 {
		t.Fatalf("full chain with neighbors should score 1.0, got %f", result.Quality)
	}
}

func TestHierarchyFetchNeighborhood(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/searchJSON":
			fmt.Fprint(w, `{"geonames":[{"geonameId":6545322,"name":"Montmartre","fcode":"PPLX","lat":"48.88671","lng":"2.34157","countryName":"France","adminName1":"Ile-de-France"}]}`)
		case "/hierarchyJSON":
			fmt.Fprint(w, `{"geonames":[
				{"name":"France","fcode":"PCLI"},
				{"name":"Ile-de-France","fcode":"ADM1"},
				{"name":"Paris","fcode":"ADM2"},
				{"name":"Paris","fcode":"PPLC"},
				{"name":"Montmartre","fcode":"PPLX"}
			]}`)
		case "/findNearbyJSON":
			fmt.Fprint(w, `{"geonames":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	g := NewHierarchySource(HierarchyConfig{APIURL: server.URL, Username: "tester"})
	result := g.Fetch(context.Background(), "Montmartre")

	if !result.Succeeded {
		t.Fatalf("expected success, got error tag %q", result.Err)
	}
	if result.Levels[LevelCity] != "Paris" {
		t.Fatalf("expected city Paris, got %q", result.Levels[LevelCity])
	}
	if result.Levels[LevelNeighborhood] != "Montmartre" {
		t.Fatalf("expected the closer populated place in neighborhood, got %v", result.Levels)
	}
}

func TestHierarchyFetchNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"geonames":[]}`)
	}))
	defer server.Close()

	g := NewHierarchySource(HierarchyConfig{APIURL: server.URL, Username: "tester"})
	result := g.Fetch(context.Background(), "zxqvbn")

	if result.Succeeded || result.Err != "not_found" {
		t.Fatalf("expected not_found failure, got %+v", result)
	}
}

func TestHierarchyFetchRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":{"message":"the hourly limit of 1000 credits has been exceeded","value":19}}`)
	}))
	defer server.Close()

	g := NewHierarchySource(HierarchyConfig{APIURL: server.URL, Username: "tester"})
	result := g.Fetch(context.Background(), "Paris")

	if result.Succeeded || result.Err != "rate_limited" {
		t.Fatalf("expected rate_limited failure, got %+v", result)
	}
}

func TestHierarchyFetchChainFailureDegrades(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/searchJSON":
			fmt.Fprint(w, parisSearchHit)
		case "/findNearbyJSON":
			fmt.Fprint(w, `{"geonames":[{"name":"Vincennes","fcode":"PPL"}]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g := NewHierarchySource(HierarchyConfig{APIURL: server.URL, Username: "tester"})
	result := g.Fetch(context.Background(), "Paris")

	if !result.Succeeded {
		t.Fatalf("expected degraded success from the search hit alone, got tag %q", result.Err)
	}
	if result.Levels[LevelCountry] != "France" || result.Levels[LevelRegion] != "Ile-de-France" || result.Levels[LevelCity] != "Paris" {
		t.Fatalf("expected levels from the search hit, got %v", result.Levels)
	}
	if result.Levels[LevelDistrict] != "" {
		t.Fatalf("district cannot come from the search hit, got %v", result.Levels)
	}
}

func TestClassifyAncestors(t *testing.T) {
	t.Parallel()

	chain := []geoNamesItem{
		{Name: "United States", Fcode: "PCLI"},
		{Name: "New York", Fcode: "ADM1"},
		{Name: "Kings County", Fcode: "ADM2"},
		{Name: "New York City", Fcode: "PPL"},
		{Name: "Brooklyn", Fcode: "PPLX"},
		{Name: "Williamsburg", Fcode: "PPLX"},
	}
	levels := classifyAncestors(chain)
	if levels[LevelCountry] != "United States" || levels[LevelRegion] != "New York" || levels[LevelDistrict] != "Kings County" {
		t.Fatalf("unexpected outer levels %v", levels)
	}
	if levels[LevelCity] != "New York City" {
		t.Fatalf("first populated place should be the city, got %v", levels)
	}
	if levels[LevelNeighborhood] != "Williamsburg" {
		t.Fatalf("innermost populated place should win neighborhood, got %v", levels)
	}
}
