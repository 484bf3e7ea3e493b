package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// OpenWeather fetches current conditions from OpenWeatherMap.
type OpenWeather struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewOpenWeather creates a client that authenticates with apiKey.
func NewOpenWeather(client *http.Client, apiKey string) *OpenWeather {
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{Client: client, Backoff: DefaultBackoff},
		circuit: newBreaker("openweather"),
		now:     time.Now,
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func (p *OpenWeather) WithBaseURL(u string) *OpenWeather {
	p.baseURL = u
	return p
}

// Fetch returns the current weather at lat/lon in metric units. The sample is
// stamped with the fetch time, like the stored daily files.
func (p *OpenWeather) Fetch(ctx context.Context, lat, lon float64) (records.WeatherSample, error) {
	if p.apiKey == "" {
		return records.WeatherSample{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	var payload struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return records.WeatherSample{}, err
	}

	var desc string
	if len(payload.Weather) > 0 {
		desc = payload.Weather[0].Description
	}

	return records.WeatherSample{
		Timestamp:   p.now(),
		Temperature: records.Measure(payload.Main.Temp),
		Humidity:    records.Measure(payload.Main.Humidity),
		Pressure:    records.Measure(payload.Main.Pressure),
		WindSpeed:   records.Measure(payload.Wind.Speed),
		Description: desc,
		Latitude:    records.Measure(lat),
		Longitude:   records.Measure(lon),
	}, nil
}
