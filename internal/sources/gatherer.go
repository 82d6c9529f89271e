// Package sources implements the single-source data-fetch adapters behind
// the content aggregator. Each gatherer talks to one upstream (narrative
// text, structured entities, geographic hierarchy, forward geocoding),
// owns its own timeout, and converts every failure into a Result with
// Succeeded=false and a short error tag. Gatherers never return Go errors
// and never panic; the aggregator decides what a failed source means.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"cicerone/pkg/clients"
)

// Source identifiers, used as result keys and metric labels.
const (
	SourceNarrative  = "narrative"
	SourceStructured = "structured"
	SourceHierarchy  = "hierarchy"
	SourceGeocode    = "geocode"
)

// Geographic hierarchy level names, innermost first.
const (
	LevelNeighborhood = "neighborhood"
	LevelDistrict     = "district"
	LevelCity         = "city"
	LevelRegion       = "region"
	LevelCountry      = "country"
)

// Property is one structured claim about the queried subject.
type Property struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Result is one source's view of a query. Only the fields a given source
// populates are set; consumers key off SourceID. A Result is immutable
// once returned.
type Result struct {
	SourceID  string        `json:"source_id"`
	Succeeded bool          `json:"succeeded"`
	Err       string        `json:"error,omitempty"`
	Quality   float64       `json:"quality"`
	Elapsed   time.Duration `json:"elapsed_ns"`

	Summary     string            `json:"summary,omitempty"`
	Description string            `json:"description,omitempty"`
	Facts       []string          `json:"facts,omitempty"`
	Properties  []Property        `json:"properties,omitempty"`
	Levels      map[string]string `json:"levels,omitempty"`
	Nearby      []string          `json:"nearby,omitempty"`
	Media       []string          `json:"media,omitempty"`

	DisplayName string  `json:"display_name,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	HasCoords   bool    `json:"has_coords,omitempty"`
}

// Gatherer fetches one source's view of a query. Fetch must not panic and
// must not block past its source's latency budget; all failures surface as
// Succeeded=false on the Result.
type Gatherer interface {
	ID() string
	Fetch(ctx context.Context, query string) Result
}

// errMalformed marks an upstream response that arrived but could not be
// decoded.
var errMalformed = errors.New("malformed response")

// statusError carries a non-2xx upstream status through the gatherer
// plumbing so failTag can classify it.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// failTag maps an internal error to the short tag recorded on a failed
// Result. Tags are stable; dashboards and tests key off them.
func failTag(err error) string {
	var status *statusError
	switch {
	case errors.As(err, &status):
		switch status.Code {
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "http_error"
		}
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "source_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errMalformed):
		return "parse_error"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "network"
}

// failed builds the Result for a gatherer call that produced nothing usable.
func failed(sourceID string, start time.Time, tag string) Result {
	return Result{
		SourceID: sourceID,
		Err:      tag,
		Elapsed:  time.Since(start),
	}
}

// doRequest runs one HTTP request with bounded retries, optionally through
// a circuit breaker. Retries stay inside the breaker so one Fetch counts as
// one breaker event no matter how many attempts it took. 5xx responses
// count as breaker failures so a hard-down upstream trips the breaker and
// later calls fail fast instead of eating the full timeout; 4xx responses
// pass through as ordinary responses.
func doRequest(client *http.Client, breaker *clients.CircuitBreaker, req *http.Request) (*http.Response, error) {
	retryCfg := clients.DefaultRetryConfig()
	if breaker == nil {
		return clients.DoWithRetry(req.Context(), client, req, retryCfg)
	}
	v, err := breaker.Execute(func() (any, error) {
		resp, respErr := clients.DoWithRetry(req.Context(), client, req, retryCfg)
		if respErr != nil {
			return nil, respErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			return nil, &statusError{Code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}

// fetchJSON GETs rawURL and decodes the JSON body into out.
func fetchJSON(ctx context.Context, client *http.Client, breaker *clients.CircuitBreaker, userAgent, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := doRequest(client, breaker, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &statusError{Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", errMalformed)
	}
	return nil
}

func newSourceClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: clients.DefaultTransport(),
	}
}
