// Package app wires the configured components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/transit-weather-analysis/internal/batch"
	"github.com/i474232898/transit-weather-analysis/internal/collect"
	"github.com/i474232898/transit-weather-analysis/internal/collect/providers"
	"github.com/i474232898/transit-weather-analysis/internal/config"
	"github.com/i474232898/transit-weather-analysis/internal/discovery"
	"github.com/i474232898/transit-weather-analysis/internal/metrics"
	"github.com/i474232898/transit-weather-analysis/internal/predict"
	"github.com/i474232898/transit-weather-analysis/internal/records"
	"github.com/i474232898/transit-weather-analysis/internal/store"
	"github.com/i474232898/transit-weather-analysis/internal/summary"
)

// App holds every long-lived component.
type App struct {
	Config       *config.AppConfig
	Metrics      *metrics.Metrics
	Orchestrator *batch.Orchestrator
	Aggregator   *summary.Aggregator
	Collector    *collect.Service
	Summaries    *store.SummaryStore
	Merged       store.MergedDir
	Predictor    *predict.Service

	logger *zap.SugaredLogger
}

// New builds the components from cfg.
func New(cfg *config.AppConfig, logger *zap.SugaredLogger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := metrics.New()

	disc := discovery.New(discovery.Options{
		TransportDir: cfg.TransportDir,
		WeatherDir:   cfg.WeatherDir,
		Extension:    cfg.FileExtension,
		Mode:         discovery.Mode(cfg.Pairing),
	})
	orch := batch.New(disc, records.NewNormalizer(loc), batch.Options{
		OutputDir: cfg.OutputDir,
		Extension: cfg.FileExtension,
		Workers:   cfg.Workers,
	}, m, logger)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	collector := collect.NewService(
		providers.NewOpenWeather(httpClient, cfg.OpenWeatherAPIKey),
		providers.NewTransportAPI(httpClient, cfg.TransportAppID, cfg.TransportAppKey, loc),
		collect.Options{
			TransportDir: cfg.TransportDir,
			WeatherDir:   cfg.WeatherDir,
			Extension:    cfg.FileExtension,
			Latitude:     cfg.Latitude,
			Longitude:    cfg.Longitude,
			ATCOCodes:    cfg.ATCOCodes,
			Location:     loc,
		}, logger)

	return &App{
		Config:       cfg,
		Metrics:      m,
		Orchestrator: orch,
		Aggregator:   summary.NewAggregator(cfg.OutputDir, cfg.SummaryDir, cfg.FileExtension, logger),
		Collector:    collector,
		Summaries:    store.NewSummaryStore(),
		Merged:       store.MergedDir{Dir: cfg.OutputDir, Ext: cfg.FileExtension},
		Predictor:    predict.NewService(),
		logger:       logger,
	}, nil
}

// Merge runs the batch merge.
func (a *App) Merge(ctx context.Context) (*batch.Report, error) {
	return a.Orchestrator.Run(ctx)
}

// Summarize recomputes the summary artifact and refreshes the in-memory store.
func (a *App) Summarize(ctx context.Context) ([]records.DailySummary, error) {
	sums, err := a.Aggregator.Run(ctx)
	if err != nil {
		return nil, err
	}
	a.Summaries.Replace(sums)
	return sums, nil
}

// Collect fetches and stores today's snapshots.
func (a *App) Collect(ctx context.Context) error {
	_, err := a.Collector.Collect(ctx, time.Now())
	return err
}

// Load fills the summary store from the existing summary artifact and fits
// the prediction model from existing merged artifacts. Missing data is not
// an error; the API reports it per endpoint.
func (a *App) Load() {
	sums, err := store.ReadSummaries(a.Aggregator.Output())
	switch {
	case err == nil:
		a.Summaries.Replace(sums)
	case errors.Is(err, os.ErrNotExist):
		a.logger.Infow("no summary artifact yet", "file", a.Aggregator.Output())
	default:
		a.logger.Warnw("could not load summary artifact", "file", a.Aggregator.Output(), "error", err)
	}
	a.train()
}

func (a *App) train() {
	rows, err := a.Merged.All()
	if err != nil {
		a.logger.Warnw("could not load merged artifacts for model", "error", err)
		return
	}
	model, err := a.Predictor.Train(rows)
	if err != nil {
		a.logger.Warnw("prediction model not fitted", "error", err)
		return
	}
	a.logger.Infow("prediction model fitted", "samples", model.Samples, "r_squared", model.RSquared)
}

// Daily is the scheduled batch: merge, summarize, refit.
func (a *App) Daily(ctx context.Context) error {
	report, err := a.Merge(ctx)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("batch %s merged no pairs (%d skipped)", report.RunID, len(report.Skipped))
	}
	if _, err := a.Summarize(ctx); err != nil {
		return err
	}
	a.train()
	return nil
}
