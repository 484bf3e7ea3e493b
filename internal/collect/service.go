// Package collect fetches the daily weather and departure snapshots and
// appends them to the per-day source files.
package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/store"
)

// WeatherSource returns the current weather at a coordinate.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (records.WeatherSample, error)
}

// DepartureSource returns the live departures of a stop.
type DepartureSource interface {
	Fetch(ctx context.Context, atco string) ([]records.DepartureRecord, error)
}

// Options configures a Service.
type Options struct {
	TransportDir string
	WeatherDir   string
	Extension    string
	Latitude     float64
	Longitude    float64
	ATCOCodes    []string
	Location     *time.Location
}

// Service orchestrates the fetch clients and writes source files.
type Service struct {
	weather   WeatherSource
	transport DepartureSource
	opts      Options
	logger    *zap.SugaredLogger
}

// NewService creates a new Service.
func NewService(weather WeatherSource, transport DepartureSource, opts Options, logger *zap.SugaredLogger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{weather: weather, transport: transport, opts: opts, logger: logger}
}

// Result describes what one collection wrote.
type Result struct {
	Day           string
	WeatherFile   string
	Samples       int
	TransportFile string
	Departures    int
}

// FetchWeather returns the current sample, or nothing if the fetch failed.
func (s *Service) FetchWeather(ctx context.Context) []records.WeatherSample {
	w, err := s.weather.Fetch(ctx, s.opts.Latitude, s.opts.Longitude)
	if err != nil {
		s.logger.Errorw("weather fetch failed", "lat", s.opts.Latitude, "lon", s.opts.Longitude, "error", err)
		return nil
	}
	return []records.WeatherSample{w}
}

// FetchDepartures queries every stop concurrently. Failed stops contribute
// nothing; results keep the configured stop order.
func (s *Service) FetchDepartures(ctx context.Context) []records.DepartureRecord {
	perStop := make([][]records.DepartureRecord, len(s.opts.ATCOCodes))

	var wg sync.WaitGroup
	for i, atco := range s.opts.ATCOCodes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			deps, err := s.transport.Fetch(ctx, atco)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.logger.Errorw("transport fetch failed", "atco_code", atco, "error", err)
				return
			}
			perStop[i] = deps
		}()
	}
	wg.Wait()

	var all []records.DepartureRecord
	for _, deps := range perStop {
		all = append(all, deps...)
	}
	return all
}

// Collect fetches both sources and appends the results to the files of the
// day containing now. A source that returned nothing leaves its file alone.
func (s *Service) Collect(ctx context.Context, now time.Time) (Result, error) {
	day := now.In(s.opts.Location).Format("2006-01-02")
	res := Result{Day: day}

	if samples := s.FetchWeather(ctx); len(samples) > 0 {
		path := filepath.Join(s.opts.WeatherDir, "weather_data_"+day+s.opts.Extension)
		rows := make([]records.RawWeather, len(samples))
		for i, w := range samples {
			w.Timestamp = w.Timestamp.In(s.opts.Location)
			rows[i] = records.RawWeatherOf(w)
		}
		if err := appendRows(path, rows, store.ReadWeather); err != nil {
			return res, err
		}
		res.WeatherFile, res.Samples = path, len(samples)
	}

	if deps := s.FetchDepartures(ctx); len(deps) > 0 {
		path := filepath.Join(s.opts.TransportDir, "transport_data_"+day+s.opts.Extension)
		rows := make([]records.RawDeparture, len(deps))
		for i, d := range deps {
			rows[i] = records.RawDepartureOf(d)
		}
		if err := appendRows(path, rows, store.ReadDepartures); err != nil {
			return res, err
		}
		res.TransportFile, res.Departures = path, len(deps)
	}

	s.logger.Infow("collection finished", "day", day, "weather_samples", res.Samples, "departures", res.Departures)
	return res, nil
}

func appendRows[T any](path string, rows []T, read func(string) ([]T, error)) error {
	existing, err := read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return store.WriteRows(path, append(existing, rows...))
}
