package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how timestamps are written to artifacts.
const TimestampLayout = "2006-01-02 15:04:05"

// Measure is a float column where NaN is written as an empty cell.
type Measure float64

func (m Measure) MarshalCSV() (string, error) {
	if m.IsMissing() {
		return "", nil
	}
	return strconv.FormatFloat(float64(m), 'f', -1, 64), nil
}

func (m *Measure) UnmarshalCSV(s string) error {
	v, err := ParseMeasure(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalJSON writes missing values as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if m.IsMissing() || math.IsInf(float64(m), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// ParseMeasure treats empty and nan cells as missing.
func ParseMeasure(s string) (Measure, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return Missing(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing(), err
	}
	return Measure(f), nil
}

// Timestamp is a wall-clock time column.
type Timestamp time.Time

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) MarshalCSV() (string, error) {
	if t.Time().IsZero() {
		return "", nil
	}
	return t.Time().Format(TimestampLayout), nil
}

// UnmarshalCSV reads the wall clock back in UTC; only the wall clock is
// meaningful in a written artifact.
func (t *Timestamp) UnmarshalCSV(s string) error {
	if strings.TrimSpace(s) == "" {
		*t = Timestamp{}
		return nil
	}
	ts, err := ParseTimestamp(s, time.UTC)
	if err != nil {
		return err
	}
	*t = Timestamp(ts)
	return nil
}

// RawDeparture is a transport row as captured, before coercion.
type RawDeparture struct {
	ATCOCode              string `csv:"atco_code"`
	Line                  string `csv:"line"`
	Direction             string `csv:"direction"`
	Operator              string `csv:"operator"`
	Destination           string `csv:"destination"`
	BestDepartureEstimate string `csv:"best_departure_estimate"`
	Source                string `csv:"source"`
	Datetime              string `csv:"datetime"`

	// Ragged marks a source row with the wrong number of fields.
	Ragged bool `csv:"-"`
}

// RawWeather is a weather row as captured, before coercion.
type RawWeather struct {
	Datetime    string `csv:"datetime"`
	Temperature string `csv:"temperature"`
	Humidity    string `csv:"humidity"`
	Pressure    string `csv:"pressure"`
	WindSpeed   string `csv:"wind_speed"`
	Description string `csv:"weather_description"`
	Latitude    string `csv:"latitude"`
	Longitude   string `csv:"longitude"`

	// Ragged marks a source row with the wrong number of fields.
	Ragged bool `csv:"-"`
}

// DepartureFromMap builds a raw departure from a header-keyed row.
func DepartureFromMap(m map[string]string) RawDeparture {
	return RawDeparture{
		ATCOCode:              m["atco_code"],
		Line:                  m["line"],
		Direction:             m["direction"],
		Operator:              m["operator"],
		Destination:           firstOf(m, "destination", "destination_name"),
		BestDepartureEstimate: m["best_departure_estimate"],
		Source:                m["source"],
		Datetime:              m["datetime"],
	}
}

// WeatherFromMap builds a raw weather row from a header-keyed row. A missing
// datetime column falls back to time.
func WeatherFromMap(m map[string]string) RawWeather {
	return RawWeather{
		Datetime:    firstOf(m, "datetime", "time"),
		Temperature: m["temperature"],
		Humidity:    m["humidity"],
		Pressure:    m["pressure"],
		WindSpeed:   m["wind_speed"],
		Description: firstOf(m, "weather_description", "description"),
		Latitude:    m["latitude"],
		Longitude:   m["longitude"],
	}
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// MergedRow is the column layout of a merged artifact.
type MergedRow struct {
	Datetime              Timestamp `csv:"datetime"`
	ATCOCode              string    `csv:"atco_code"`
	Line                  string    `csv:"line"`
	Direction             string    `csv:"direction"`
	Operator              string    `csv:"operator"`
	Destination           string    `csv:"destination"`
	BestDepartureEstimate string    `csv:"best_departure_estimate"`
	Source                string    `csv:"source"`
	Temperature           Measure   `csv:"temperature"`
	Humidity              Measure   `csv:"humidity"`
	Pressure              Measure   `csv:"pressure"`
	WindSpeed             Measure   `csv:"wind_speed"`
	WeatherDescription    string    `csv:"weather_description"`
	Latitude              Measure   `csv:"latitude"`
	Longitude             Measure   `csv:"longitude"`
	WeatherDatetime       Timestamp `csv:"weather_datetime"`
}

// Row flattens a merged record into artifact columns.
func (r MergedRecord) Row() MergedRow {
	d, w := r.Departure, r.Weather
	return MergedRow{
		Datetime:              Timestamp(d.Timestamp),
		ATCOCode:              d.ATCOCode,
		Line:                  d.Line,
		Direction:             d.Direction,
		Operator:              d.Operator,
		Destination:           d.Destination,
		BestDepartureEstimate: d.Estimate,
		Source:                d.Source,
		Temperature:           w.Temperature,
		Humidity:              w.Humidity,
		Pressure:              w.Pressure,
		WindSpeed:             w.WindSpeed,
		WeatherDescription:    w.Description,
		Latitude:              w.Latitude,
		Longitude:             w.Longitude,
		WeatherDatetime:       Timestamp(w.Timestamp),
	}
}

// Record is the inverse of MergedRecord.Row.
func (r MergedRow) Record() MergedRecord {
	return MergedRecord{
		Departure: DepartureRecord{
			Timestamp:   r.Datetime.Time(),
			Estimate:    r.BestDepartureEstimate,
			Line:        r.Line,
			Direction:   r.Direction,
			Operator:    r.Operator,
			Destination: r.Destination,
			Source:      r.Source,
			ATCOCode:    r.ATCOCode,
		},
		Weather: WeatherSample{
			Timestamp:   r.WeatherDatetime.Time(),
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Pressure:    r.Pressure,
			WindSpeed:   r.WindSpeed,
			Description: r.WeatherDescription,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
		},
	}
}

// RawWeatherOf renders a sample the way the collector stores it.
func RawWeatherOf(w WeatherSample) RawWeather {
	cell := func(m Measure) string {
		s, _ := m.MarshalCSV()
		return s
	}
	ts, _ := Timestamp(w.Timestamp).MarshalCSV()
	return RawWeather{
		Datetime:    ts,
		Temperature: cell(w.Temperature),
		Humidity:    cell(w.Humidity),
		Pressure:    cell(w.Pressure),
		WindSpeed:   cell(w.WindSpeed),
		Description: w.Description,
		Latitude:    cell(w.Latitude),
		Longitude:   cell(w.Longitude),
	}
}

// RawDepartureOf renders a departure the way the collector stores it.
func RawDepartureOf(d DepartureRecord) RawDeparture {
	ts, _ := Timestamp(d.Timestamp).MarshalCSV()
	return RawDeparture{
		ATCOCode:              d.ATCOCode,
		Line:                  d.Line,
		Direction:             d.Direction,
		Operator:              d.Operator,
		Destination:           d.Destination,
		BestDepartureEstimate: d.Estimate,
		Source:                d.Source,
		Datetime:              ts,
	}
}
