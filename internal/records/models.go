package records

import (
	"math"
	"time"
)

// WeatherSample is one weather observation. Missing numeric values are NaN.
type WeatherSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature Measure   `json:"temperature"`
	Humidity    Measure   `json:"humidity"`
	Pressure    Measure   `json:"pressure"`
	WindSpeed   Measure   `json:"windSpeed"`
	Description string    `json:"description"`
	Latitude    Measure   `json:"latitude"`
	Longitude   Measure   `json:"longitude"`
}

// DepartureRecord is one live departure estimate for a stop.
type DepartureRecord struct {
	Timestamp time.Time `json:"timestamp"`
	// Estimate keeps the raw best_departure_estimate value.
	Estimate    string `json:"bestDepartureEstimate"`
	Line        string `json:"line"`
	Direction   string `json:"direction"`
	Operator    string `json:"operator"`
	Destination string `json:"destination"`
	Source      string `json:"source"`
	ATCOCode    string `json:"atcoCode"`
}

// MergedRecord pairs a departure with its nearest weather sample.
type MergedRecord struct {
	Departure DepartureRecord `json:"departure"`
	Weather   WeatherSample   `json:"weather"`
}

// DailySummary is the per-day rollup of one merged artifact.
type DailySummary struct {
	File            string  `csv:"file" json:"file"`
	BusiestHour     int     `csv:"busiest_hour" json:"busiestHour"`
	TotalDepartures int     `csv:"total_departures" json:"totalDepartures"`
	AvgTemperature  Measure `csv:"avg_temperature" json:"avgTemperature"`
	AvgWindSpeed    Measure `csv:"avg_wind_speed" json:"avgWindSpeed"`
}

// Missing is the NaN sentinel used for absent measurements.
func Missing() Measure {
	return Measure(math.NaN())
}

// IsMissing reports whether the measurement is absent.
func (m Measure) IsMissing() bool {
	return math.IsNaN(float64(m))
}
