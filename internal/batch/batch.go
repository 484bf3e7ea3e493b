// Package batch drives discovery, normalization and merging across every
// paired day and writes one merged artifact per day.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/transit-weather-analysis/internal/discovery"
	"github.com/i474232898/transit-weather-analysis/internal/merge"
	"github.com/i474232898/transit-weather-analysis/internal/metrics"
	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/store"
)

// Skip reasons.
const (
	ReasonParse    = "parse_error"
	ReasonEmpty    = "empty_source"
	ReasonIO       = "io_error"
	ReasonCanceled = "canceled"
	ReasonOther    = "error"
)

// Discoverer produces the day pairs to merge.
type Discoverer interface {
	Discover() ([]discovery.FilePair, error)
}

// Options configures an Orchestrator.
type Options struct {
	OutputDir string
	Extension string
	// Workers bounds concurrent pairs; values below 1 mean sequential.
	Workers int
}

// Orchestrator runs the batch merge.
type Orchestrator struct {
	discoverer Discoverer
	normalizer *records.Normalizer
	opts       Options
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
}

// New creates an Orchestrator. m may be nil.
func New(d Discoverer, n *records.Normalizer, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{discoverer: d, normalizer: n, opts: opts, metrics: m, logger: logger}
}

// Skip records a pair that produced no artifact.
type Skip struct {
	Day           string `json:"day"`
	TransportFile string `json:"transportFile"`
	WeatherFile   string `json:"weatherFile"`
	Reason        string `json:"reason"`
	Err           error  `json:"-"`
}

// Result is the outcome of one pair.
type Result struct {
	Pair             discovery.FilePair
	Output           string
	Rows             int
	DroppedTransport int
	DroppedWeather   int
	Err              error
}

// Report summarizes a run.
type Report struct {
	RunID     string    `json:"runId"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Outputs   []string  `json:"outputs"`
	Skipped   []Skip    `json:"skipped"`
}

// OK reports whether any pair produced an artifact.
func (r *Report) OK() bool {
	return r.Succeeded > 0
}

// Run merges every discovered pair. A discovery failure aborts the run
// before anything is written and is returned; per-pair failures are recorded
// in the report and the run continues.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now().UTC()}
	log := o.logger.With("run_id", report.RunID)

	pairs, err := o.discoverer.Discover()
	if err != nil {
		log.Errorw("file discovery failed, aborting batch", "error", err)
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	log.Infow("starting batch merge", "pairs", len(pairs), "workers", o.opts.Workers)

	results := make([]Result, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = o.ProcessPair(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.Attempted++
		if res.Err == nil {
			report.Succeeded++
			report.Outputs = append(report.Outputs, res.Output)
			o.metrics.Pair(metrics.OutcomeSuccess, "")
			o.metrics.Merged(res.Rows)
			log.Infow("pair merged", "day", res.Pair.Day, "output", res.Output, "rows", res.Rows,
				"dropped_transport", res.DroppedTransport, "dropped_weather", res.DroppedWeather)
			continue
		}

		skip := Skip{
			Day:           res.Pair.Day,
			TransportFile: res.Pair.TransportPath,
			WeatherFile:   res.Pair.WeatherPath,
			Reason:        Classify(res.Err),
			Err:           res.Err,
		}
		report.Skipped = append(report.Skipped, skip)
		o.metrics.Pair(metrics.OutcomeSkipped, skip.Reason)
		log.Warnw("pair skipped", "day", skip.Day, "reason", skip.Reason,
			"transport_file", skip.TransportFile, "weather_file", skip.WeatherFile, "error", res.Err)
	}

	report.Finished = time.Now().UTC()
	o.metrics.Run(report.Finished.Sub(report.Started).Seconds(), report.OK())
	log.Infow("batch merge finished", "attempted", report.Attempted, "succeeded", report.Succeeded,
		"skipped", len(report.Skipped))
	return report, nil
}

// ProcessPair reads, normalizes and merges one pair and writes its artifact.
func (o *Orchestrator) ProcessPair(ctx context.Context, p discovery.FilePair) Result {
	res := Result{Pair: p}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	rawDeps, err := store.ReadDepartures(p.TransportPath)
	if err != nil {
		res.Err = fmt.Errorf("reading transport file: %w", err)
		return res
	}
	rawWeather, err := store.ReadWeather(p.WeatherPath)
	if err != nil {
		res.Err = fmt.Errorf("reading weather file: %w", err)
		return res
	}

	// An unparseable token only matters for rows without a datetime column.
	day, _ := records.ParseDay(p.Day, o.normalizer.Location())

	deps, depStats := o.normalizer.Departures(rawDeps, day)
	weather, weatherStats := o.normalizer.Weather(rawWeather)
	res.DroppedTransport, res.DroppedWeather = depStats.Dropped, weatherStats.Dropped
	o.metrics.Dropped("transport", depStats.Dropped)
	o.metrics.Dropped("weather", weatherStats.Dropped)
	o.logDrops(p, "transport", depStats)
	o.logDrops(p, "weather", weatherStats)

	merged, err := merge.Nearest(deps, weather)
	if err != nil {
		res.Err = err
		return res
	}

	out := filepath.Join(o.opts.OutputDir, store.MergedName(p.Day, o.opts.Extension))
	if err := store.WriteMerged(out, merged); err != nil {
		res.Err = fmt.Errorf("writing merged artifact: %w", err)
		return res
	}

	res.Output = out
	res.Rows = len(merged)
	return res
}

func (o *Orchestrator) logDrops(p discovery.FilePair, source string, s records.Stats) {
	if s.Dropped == 0 {
		return
	}
	o.logger.Warnw("dropped unparseable rows", "day", p.Day, "source", source,
		"dropped", s.Dropped, "read", s.Read, "first_error", s.Errors[0])
}

// Classify maps a pair error to a skip reason.
func Classify(err error) string {
	switch {
	case errors.Is(err, merge.ErrEmptySource):
		return ReasonEmpty
	case errors.Is(err, records.ErrParse):
		return ReasonParse
	case errors.Is(err, store.ErrIO):
		return ReasonIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonOther
	}
}
