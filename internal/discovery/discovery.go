// Package discovery finds the per-day transport and weather files and pairs
// them up for merging.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i474232898/transit-weather-analysis/internal/log"
)

// Mode selects how files from the two directories are paired.
type Mode string

const (
	// ByDate pairs files whose day tokens are equal.
	ByDate Mode = "date"
	// ByPosition pairs the i-th transport file with the i-th weather file.
	ByPosition Mode = "position"
)

var (
	ErrCountMismatch = errors.New("transport and weather file counts differ")
	ErrDayMismatch   = errors.New("transport and weather day tokens differ")
)

// CountMismatchError aborts a batch before any merge runs.
type CountMismatchError struct {
	Transport int
	Weather   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%v: %d transport files, %d weather files", ErrCountMismatch, e.Transport, e.Weather)
}

func (e *CountMismatchError) Is(target error) bool { return target == ErrCountMismatch }

// DayMismatchError reports a day token that cannot be paired.
type DayMismatchError struct {
	Day    string
	Detail string
}

func (e *DayMismatchError) Error() string {
	return fmt.Sprintf("%v: day %s %s", ErrDayMismatch, e.Day, e.Detail)
}

func (e *DayMismatchError) Is(target error) bool { return target == ErrDayMismatch }

// FilePair is one day's transport and weather source files.
type FilePair struct {
	TransportPath string
	WeatherPath   string
	Day           string
}

// Options configures a Discoverer.
type Options struct {
	TransportDir string
	WeatherDir   string
	Extension    string
	Mode         Mode
}

// Discoverer lists and pairs source files.
type Discoverer struct {
	opts Options
}

// New creates a Discoverer. An empty Mode means ByDate.
func New(opts Options) *Discoverer {
	if opts.Mode == "" {
		opts.Mode = ByDate
	}
	return &Discoverer{opts: opts}
}

// Discover lists both directories and pairs their files. Any pairing error
// is fatal for the whole batch.
func (d *Discoverer) Discover() ([]FilePair, error) {
	transport, err := ListFiles(d.opts.TransportDir, d.opts.Extension)
	if err != nil {
		return nil, err
	}
	weather, err := ListFiles(d.opts.WeatherDir, d.opts.Extension)
	if err != nil {
		return nil, err
	}

	if len(transport) != len(weather) {
		return nil, &CountMismatchError{Transport: len(transport), Weather: len(weather)}
	}

	if d.opts.Mode == ByPosition {
		return pairByPosition(transport, weather), nil
	}
	return pairByDate(transport, weather)
}

// ListFiles returns the files in dir with the given extension, sorted
// lexicographically. With name_YYYY-MM-DD.ext names that is chronological.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// DayToken is the part of the file name after the last underscore, without
// the extension.
func DayToken(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func pairByPosition(transport, weather []string) []FilePair {
	pairs := make([]FilePair, len(transport))
	for i := range transport {
		day := DayToken(transport[i])
		if wd := DayToken(weather[i]); wd != day {
			log.Warnw("positional pair has different day tokens",
				"transport_file", transport[i], "weather_file", weather[i], "weather_day", wd)
		}
		pairs[i] = FilePair{TransportPath: transport[i], WeatherPath: weather[i], Day: day}
	}
	return pairs
}

func pairByDate(transport, weather []string) ([]FilePair, error) {
	weatherByDay := make(map[string]string, len(weather))
	for _, w := range weather {
		day := DayToken(w)
		if prev, ok := weatherByDay[day]; ok {
			return nil, &DayMismatchError{Day: day, Detail: fmt.Sprintf("has two weather files (%s, %s)", prev, w)}
		}
		weatherByDay[day] = w
	}

	seen := make(map[string]bool, len(transport))
	pairs := make([]FilePair, 0, len(transport))
	for _, t := range transport {
		day := DayToken(t)
		if seen[day] {
			return nil, &DayMismatchError{Day: day, Detail: "has two transport files"}
		}
		seen[day] = true

		w, ok := weatherByDay[day]
		if !ok {
			return nil, &DayMismatchError{Day: day, Detail: "is missing from the weather directory"}
		}
		pairs = append(pairs, FilePair{TransportPath: t, WeatherPath: w, Day: day})
	}
	return pairs, nil
}
