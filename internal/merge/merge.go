// Package merge joins departures to weather samples by nearest timestamp.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// ErrEmptySource means one side of a pair has no usable rows.
var ErrEmptySource = errors.New("empty source")

// EmptySourceError names the side that had no rows.
type EmptySourceError struct {
	Source string
}

func (e *EmptySourceError) Error() string {
	return fmt.Sprintf("%v: no usable %s rows", ErrEmptySource, e.Source)
}

func (e *EmptySourceError) Is(target error) bool { return target == ErrEmptySource }

// Nearest joins every departure to the weather sample closest to it in time.
// When two samples are equally close the earlier one wins, and among samples
// sharing a timestamp the first in input order wins. The output is in
// ascending departure time; inputs are not modified.
func Nearest(departures []records.DepartureRecord, weather []records.WeatherSample) ([]records.MergedRecord, error) {
	if len(weather) == 0 {
		return nil, &EmptySourceError{Source: "weather"}
	}
	if len(departures) == 0 {
		return nil, &EmptySourceError{Source: "transport"}
	}

	deps := make([]records.DepartureRecord, len(departures))
	copy(deps, departures)
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].Timestamp.Before(deps[j].Timestamp) })

	ws := make([]records.WeatherSample, len(weather))
	copy(ws, weather)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Timestamp.Before(ws[j].Timestamp) })

	// runStart[i] is the first index holding ws[i]'s timestamp.
	runStart := make([]int, len(ws))
	for i := range ws {
		if i > 0 && ws[i].Timestamp.Equal(ws[i-1].Timestamp) {
			runStart[i] = runStart[i-1]
		} else {
			runStart[i] = i
		}
	}

	out := make([]records.MergedRecord, len(deps))
	// next is the first sample strictly after the current departure.
	next := 0
	for i, d := range deps {
		for next < len(ws) && !ws[next].Timestamp.After(d.Timestamp) {
			next++
		}
		out[i] = records.MergedRecord{Departure: d, Weather: ws[pick(ws, runStart, next, d.Timestamp)]}
	}
	return out, nil
}

func pick(ws []records.WeatherSample, runStart []int, next int, t time.Time) int {
	switch {
	case next == 0:
		return 0
	case next == len(ws):
		return runStart[next-1]
	}
	before := runStart[next-1]
	if t.Sub(ws[before].Timestamp) <= ws[next].Timestamp.Sub(t) {
		return before
	}
	return next
}
