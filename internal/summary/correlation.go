package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// Bucket is the traffic volume and mean weather of one hour of one day.
type Bucket struct {
	Day         string  `json:"day"`
	Hour        int     `json:"hour"`
	Departures  int     `json:"departures"`
	Temperature float64 `json:"-"`
	Humidity    float64 `json:"-"`
}

// Buckets groups rows by calendar day and hour, ordered chronologically.
func Buckets(rows []records.MergedRecord) []Bucket {
	type key struct {
		day  string
		hour int
	}
	type acc struct {
		n     int
		temps []float64
		hums  []float64
	}

	groups := make(map[key]*acc)
	for _, r := range rows {
		ts := r.Departure.Timestamp
		k := key{ts.Format("2006-01-02"), ts.Hour()}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.n++
		a.temps = append(a.temps, float64(r.Weather.Temperature))
		a.hums = append(a.hums, float64(r.Weather.Humidity))
	}

	out := make([]Bucket, 0, len(groups))
	for k, a := range groups {
		out = append(out, Bucket{
			Day:         k.day,
			Hour:        k.hour,
			Departures:  a.n,
			Temperature: Mean(a.temps),
			Humidity:    Mean(a.hums),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// Correlation holds Pearson coefficients between weather and hourly traffic.
type Correlation struct {
	TemperatureTraffic records.Measure `json:"temperatureVsTraffic"`
	HumidityTraffic    records.Measure `json:"humidityVsTraffic"`
	Samples            int             `json:"samples"`
}

// Correlations correlates bucket temperature and humidity with bucket
// departure counts. Coefficients are missing with fewer than two samples.
func Correlations(rows []records.MergedRecord) Correlation {
	var temps, hums, counts []float64
	for _, b := range Buckets(rows) {
		if math.IsNaN(b.Temperature) || math.IsNaN(b.Humidity) {
			continue
		}
		temps = append(temps, b.Temperature)
		hums = append(hums, b.Humidity)
		counts = append(counts, float64(b.Departures))
	}

	c := Correlation{
		TemperatureTraffic: records.Missing(),
		HumidityTraffic:    records.Missing(),
		Samples:            len(counts),
	}
	if len(counts) < 2 {
		return c
	}
	c.TemperatureTraffic = records.Measure(stat.Correlation(temps, counts, nil))
	c.HumidityTraffic = records.Measure(stat.Correlation(hums, counts, nil))
	return c
}
