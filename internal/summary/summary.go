// Package summary computes per-day rollups and traffic statistics from
// merged artifacts.
package summary

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/transit-weather-analysis/internal/merge"
	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/store"
)

// FileName is the base name of the combined summary artifact.
const FileName = "summary_analysis"

// Summarize computes the DailySummary of one merged artifact. file is kept
// as the summary's reference.
func Summarize(file string, rows []records.MergedRecord) (records.DailySummary, error) {
	if len(rows) == 0 {
		return records.DailySummary{}, &merge.EmptySourceError{Source: "merged"}
	}

	temps := make([]float64, 0, len(rows))
	winds := make([]float64, 0, len(rows))
	for _, r := range rows {
		temps = append(temps, float64(r.Weather.Temperature))
		winds = append(winds, float64(r.Weather.WindSpeed))
	}

	return records.DailySummary{
		File:            file,
		BusiestHour:     BusiestHour(rows),
		TotalDepartures: len(rows),
		AvgTemperature:  records.Measure(Mean(temps)),
		AvgWindSpeed:    records.Measure(Mean(winds)),
	}, nil
}

// BusiestHour is the hour of day with the most rows; ties go to the
// smallest hour. It returns -1 for no rows.
func BusiestHour(rows []records.MergedRecord) int {
	counts := HourlyCounts(rows)
	best := -1
	for h, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = h
		}
	}
	return best
}

// HourlyCounts counts rows per hour of day.
func HourlyCounts(rows []records.MergedRecord) [24]int {
	var counts [24]int
	for _, r := range rows {
		counts[r.Departure.Timestamp.Hour()]++
	}
	return counts
}

// Mean is the arithmetic mean of the non-NaN values, or NaN if there are none.
func Mean(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return stat.Mean(present, nil)
}

// Aggregator summarizes every merged artifact in a directory.
type Aggregator struct {
	merged     store.MergedDir
	summaryDir string
	logger     *zap.SugaredLogger
}

// NewAggregator creates an Aggregator reading from mergedDir and writing the
// combined artifact into summaryDir.
func NewAggregator(mergedDir, summaryDir, ext string, logger *zap.SugaredLogger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Aggregator{
		merged:     store.MergedDir{Dir: mergedDir, Ext: ext},
		summaryDir: summaryDir,
		logger:     logger,
	}
}

// Output is the path of the combined summary artifact.
func (a *Aggregator) Output() string {
	return filepath.Join(a.summaryDir, FileName+a.merged.Ext)
}

// Run summarizes each artifact independently and writes one combined file.
// Artifacts that cannot be read or are empty are skipped and logged.
func (a *Aggregator) Run(ctx context.Context) ([]records.DailySummary, error) {
	files, err := a.merged.Files()
	if err != nil {
		return nil, err
	}

	summaries := make([]records.DailySummary, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := store.ReadMerged(f)
		if err != nil {
			a.logger.Warnw("skipping unreadable merged artifact", "file", f, "error", err)
			continue
		}
		sum, err := Summarize(filepath.Base(f), rows)
		if err != nil {
			a.logger.Warnw("skipping merged artifact", "file", f, "error", err)
			continue
		}
		summaries = append(summaries, sum)
	}

	if len(summaries) == 0 && len(files) > 0 {
		return nil, errors.New("no merged artifact could be summarized")
	}

	if err := store.WriteSummaries(a.Output(), summaries); err != nil {
		return nil, err
	}
	a.logger.Infow("summary analysis written", "file", a.Output(), "days", len(summaries))
	return summaries, nil
}

// LineCount is the number of departures of one line.
type LineCount struct {
	Line       string `json:"line"`
	Departures int    `json:"departures"`
}

// TopLines returns the n lines with the most departures, ties by line name.
// n <= 0 returns all lines.
func TopLines(rows []records.MergedRecord, n int) []LineCount {
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Departure.Line == "" {
			continue
		}
		counts[r.Departure.Line]++
	}

	out := make([]LineCount, 0, len(counts))
	for line, c := range counts {
		out = append(out, LineCount{Line: line, Departures: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Departures != out[j].Departures {
			return out[i].Departures > out[j].Departures
		}
		return out[i].Line < out[j].Line
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LineHours is one row of the line by hour departure matrix.
type LineHours struct {
	Line  string  `json:"line"`
	Hours [24]int `json:"hours"`
}

// LineHourMatrix counts departures per line and hour, ordered by line.
func LineHourMatrix(rows []records.MergedRecord) []LineHours {
	byLine := make(map[string]*LineHours)
	for _, r := range rows {
		lh, ok := byLine[r.Departure.Line]
		if !ok {
			lh = &LineHours{Line: r.Departure.Line}
			byLine[r.Departure.Line] = lh
		}
		lh.Hours[r.Departure.Timestamp.Hour()]++
	}

	out := make([]LineHours, 0, len(byLine))
	for _, lh := range byLine {
		out = append(out, *lh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
