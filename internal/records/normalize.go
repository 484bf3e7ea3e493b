package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrParse marks a field that could not be coerced.
var ErrParse = errors.New("parse error")

var errRaggedRow = errors.New("wrong number of fields")

// ParseError describes one rejected row.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// maxKeptErrors caps how many row errors a Stats value retains.
const maxKeptErrors = 10

// Stats counts what normalization did to one source file.
type Stats struct {
	Read    int
	Kept    int
	Dropped int
	// Errors holds the first few row errors, for logging.
	Errors []error
}

func (s *Stats) drop(err error) {
	s.Dropped++
	if len(s.Errors) < maxKeptErrors {
		s.Errors = append(s.Errors, err)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseTimestamp accepts RFC3339 and the naive layouts pandas writes. Naive
// values are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.In(loc), nil
	}
	for _, layout := range timestampLayouts[1:] {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

// ParseDay parses a YYYY-MM-DD day token as midnight in loc.
func ParseDay(token string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", token, loc)
}

// ParseClock combines an HH:MM (or HH:MM:SS) estimate with day.
func ParseClock(s string, day time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	var clock time.Time
	var err error
	for _, layout := range []string{"15:04", "15:04:05"} {
		if clock, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q", s)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location()), nil
}

// Normalizer coerces raw rows into canonical timestamped records.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer that reads naive timestamps in loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Location is the timezone naive timestamps are read in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Departures coerces transport rows. A parseable datetime column wins;
// otherwise best_departure_estimate is combined with day. Rows that fit
// neither are dropped.
func (n *Normalizer) Departures(raw []RawDeparture, day time.Time) ([]DepartureRecord, Stats) {
	stats := Stats{Read: len(raw)}
	out := make([]DepartureRecord, 0, len(raw))

	for i, r := range raw {
		if r.Ragged {
			stats.drop(&ParseError{Row: i + 1, Field: "row", Err: errRaggedRow})
			continue
		}
		ts, err := n.departureTime(r, day)
		if err != nil {
			stats.drop(&ParseError{Row: i + 1, Field: "best_departure_estimate", Value: r.BestDepartureEstimate, Err: err})
			continue
		}
		out = append(out, DepartureRecord{
			Timestamp:   ts,
			Estimate:    r.BestDepartureEstimate,
			Line:        r.Line,
			Direction:   r.Direction,
			Operator:    r.Operator,
			Destination: r.Destination,
			Source:      r.Source,
			ATCOCode:    r.ATCOCode,
		})
	}

	stats.Kept = len(out)
	return out, stats
}

func (n *Normalizer) departureTime(r RawDeparture, day time.Time) (time.Time, error) {
	if r.Datetime != "" {
		if ts, err := ParseTimestamp(r.Datetime, n.loc); err == nil {
			return ts, nil
		}
	}
	if day.IsZero() {
		return time.Time{}, errors.New("no collection date to anchor estimate")
	}
	return ParseClock(r.BestDepartureEstimate, day.In(n.loc))
}

// Weather coerces weather rows. Empty numeric cells are kept as missing;
// malformed ones drop the row.
func (n *Normalizer) Weather(raw []RawWeather) ([]WeatherSample, Stats) {
	stats := Stats{Read: len(raw)}
	out := make([]WeatherSample, 0, len(raw))

rows:
	for i, r := range raw {
		if r.Ragged {
			stats.drop(&ParseError{Row: i + 1, Field: "row", Err: errRaggedRow})
			continue
		}
		ts, err := ParseTimestamp(r.Datetime, n.loc)
		if err != nil {
			stats.drop(&ParseError{Row: i + 1, Field: "datetime", Value: r.Datetime, Err: err})
			continue
		}

		s := WeatherSample{Timestamp: ts, Description: r.Description}
		fields := []struct {
			name  string
			value string
			dst   *Measure
		}{
			{"temperature", r.Temperature, &s.Temperature},
			{"humidity", r.Humidity, &s.Humidity},
			{"pressure", r.Pressure, &s.Pressure},
			{"wind_speed", r.WindSpeed, &s.WindSpeed},
			{"latitude", r.Latitude, &s.Latitude},
			{"longitude", r.Longitude, &s.Longitude},
		}
		for _, f := range fields {
			v, err := ParseMeasure(f.value)
			if err != nil {
				stats.drop(&ParseError{Row: i + 1, Field: f.name, Value: f.value, Err: err})
				continue rows
			}
			*f.dst = v
		}
		out = append(out, s)
	}

	stats.Kept = len(out)
	return out, stats
}
