package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// TransportAPI fetches live bus departures from transportapi.com.
type TransportAPI struct {
	appID   string
	appKey  string
	baseURL string
	loc     *time.Location
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewTransportAPI creates a client for the given app credentials. Clock
// estimates are anchored to the current day in loc, UTC if nil.
func NewTransportAPI(client *http.Client, appID, appKey string, loc *time.Location) *TransportAPI {
	if loc == nil {
		loc = time.UTC
	}
	return &TransportAPI{
		appID:   appID,
		appKey:  appKey,
		baseURL: "https://transportapi.com/v3/uk",
		loc:     loc,
		httpCfg: HTTPClientConfig{Client: client, Backoff: DefaultBackoff},
		circuit: newBreaker("transportapi"),
		now:     time.Now,
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func (p *TransportAPI) WithBaseURL(u string) *TransportAPI {
	p.baseURL = strings.TrimSuffix(u, "/")
	return p
}

// Fetch returns the upcoming departures for one stop. Estimates that are not
// HH:MM keep a zero timestamp; the normalizer drops them.
func (p *TransportAPI) Fetch(ctx context.Context, atco string) ([]records.DepartureRecord, error) {
	if p.appID == "" || p.appKey == "" {
		return nil, fmt.Errorf("transportapi credentials are not configured")
	}

	values := url.Values{}
	values.Set("app_id", p.appID)
	values.Set("app_key", p.appKey)
	values.Set("group", "route")
	values.Set("nextbuses", "yes")

	var payload struct {
		Departures map[string][]struct {
			Line                  string `json:"line"`
			Direction             string `json:"direction"`
			Operator              string `json:"operator"`
			DestinationName       string `json:"destination_name"`
			BestDepartureEstimate string `json:"best_departure_estimate"`
			Source                string `json:"source"`
		} `json:"departures"`
	}
	endpoint := fmt.Sprintf("%s/bus/stop/%s/live.json", p.baseURL, url.PathEscape(atco))
	if err := getJSON(ctx, p.httpCfg, p.circuit, endpoint, values, &payload); err != nil {
		return nil, err
	}

	// Map iteration order is random; walk the routes sorted.
	routes := make([]string, 0, len(payload.Departures))
	for r := range payload.Departures {
		routes = append(routes, r)
	}
	sort.Strings(routes)

	today := p.now().In(p.loc)
	var out []records.DepartureRecord
	for _, route := range routes {
		for _, d := range payload.Departures[route] {
			ts, err := records.ParseClock(d.BestDepartureEstimate, today)
			if err != nil {
				ts = time.Time{}
			}
			out = append(out, records.DepartureRecord{
				Timestamp:   ts,
				Estimate:    d.BestDepartureEstimate,
				Line:        d.Line,
				Direction:   d.Direction,
				Operator:    d.Operator,
				Destination: d.DestinationName,
				Source:      d.Source,
				ATCOCode:    atco,
			})
		}
	}
	return out, nil
}
