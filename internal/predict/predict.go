// Package predict fits and serves a linear model of hourly departures
// against temperature and humidity.
package predict

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/summary"
)

// minSamples is the number of observations needed for three coefficients.
const minSamples = 3

var (
	ErrInsufficientData = errors.New("not enough observations to fit a model")
	ErrNoModel          = errors.New("no prediction model loaded")
)

// Observation is one hourly bucket used for fitting.
type Observation struct {
	Temperature float64
	Humidity    float64
	Departures  float64
}

// Observations turns merged rows into hourly observations, skipping buckets
// with missing weather.
func Observations(rows []records.MergedRecord) []Observation {
	var out []Observation
	for _, b := range summary.Buckets(rows) {
		if math.IsNaN(b.Temperature) || math.IsNaN(b.Humidity) {
			continue
		}
		out = append(out, Observation{Temperature: b.Temperature, Humidity: b.Humidity, Departures: float64(b.Departures)})
	}
	return out
}

// Model is departures = b0 + b1*temperature + b2*humidity.
type Model struct {
	Coefficients [3]float64      `json:"coefficients"`
	RSquared     records.Measure `json:"rSquared"`
	Samples      int             `json:"samples"`
}

// Fit solves the least squares problem with a QR decomposition.
func Fit(obs []Observation) (*Model, error) {
	n := len(obs)
	if n < minSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, n, minSamples)
	}

	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i, o := range obs {
		X.Set(i, 0, 1)
		X.Set(i, 1, o.Temperature)
		X.Set(i, 2, o.Humidity)
		y[i] = o.Departures
	}

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(3, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(n, y)); err != nil {
		return nil, fmt.Errorf("solving regression: %w", err)
	}

	m := &Model{Samples: n}
	for i := range m.Coefficients {
		m.Coefficients[i] = coeffs.AtVec(i)
	}

	fitted := make([]float64, n)
	for i, o := range obs {
		fitted[i] = m.Predict(o.Temperature, o.Humidity)
	}
	m.RSquared = records.Measure(stat.RSquaredFrom(fitted, y, nil))
	return m, nil
}

// Predict evaluates the model.
func (m *Model) Predict(temperature, humidity float64) float64 {
	c := m.Coefficients
	return c[0] + c[1]*temperature + c[2]*humidity
}

// Service holds the current model. The model is replaced wholesale and never
// mutated, so readers share it without locking.
type Service struct {
	current atomic.Pointer[Model]
}

// NewService returns a Service with no model.
func NewService() *Service {
	return &Service{}
}

// Train fits a model from merged rows and makes it current. On failure the
// previous model stays in place.
func (s *Service) Train(rows []records.MergedRecord) (*Model, error) {
	m, err := Fit(Observations(rows))
	if err != nil {
		return nil, err
	}
	s.current.Store(m)
	return m, nil
}

// Model returns the current model.
func (s *Service) Model() (*Model, error) {
	m := s.current.Load()
	if m == nil {
		return nil, ErrNoModel
	}
	return m, nil
}
