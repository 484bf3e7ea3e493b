package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/i474232898/transit-weather-analysis/internal/config"
)

func testConfig(t *testing.T) *config.AppConfig {
	root := t.TempDir()
	cfg := config.Default()
	cfg.TransportDir = filepath.Join(root, "transport")
	cfg.WeatherDir = filepath.Join(root, "weather")
	cfg.OutputDir = filepath.Join(root, "merged")
	cfg.SummaryDir = filepath.Join(root, "analysis")
	cfg.Timezone = "UTC"
	for _, d := range []string{cfg.TransportDir, cfg.WeatherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return cfg
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestDaily(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.TransportDir, "transport_data_2024-06-01.csv"),
		"line,best_departure_estimate\n25,08:00\n25,08:20\n86,09:05\n25,10:10\n86,10:15\n86,10:40\n")
	write(t, filepath.Join(cfg.WeatherDir, "weather_data_2024-06-01.csv"),
		"datetime,temperature,humidity,wind_speed\n"+
			"2024-06-01 08:00:00,12,80,2\n"+
			"2024-06-01 09:00:00,15,70,3\n"+
			"2024-06-01 10:00:00,16,72,4\n")

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Daily(context.Background()); err != nil {
		t.Fatalf("Daily: %v", err)
	}

	sum, err := a.Summaries.Get("2024-06-01")
	if err != nil {
		t.Fatalf("summary not loaded: %v", err)
	}
	if sum.TotalDepartures != 6 || sum.BusiestHour != 10 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(cfg.SummaryDir, "summary_analysis.csv")); err != nil {
		t.Fatalf("summary artifact missing: %v", err)
	}
	if m, err := a.Predictor.Model(); err != nil || m.Samples != 3 {
		t.Fatalf("expected a model fitted on 3 hours, got %v, %v", m, err)
	}

	// A fresh process picks the artifacts back up.
	b, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Load()
	if len(b.Summaries.List()) != 1 {
		t.Fatalf("expected reloaded summary")
	}
	if _, err := b.Predictor.Model(); err != nil {
		t.Fatalf("expected reloaded model: %v", err)
	}
}

func TestDailyFailsWhenNothingMerges(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.TransportDir, "transport_data_2024-06-01.csv"), "line,best_departure_estimate\n25,08:00\n")
	write(t, filepath.Join(cfg.WeatherDir, "weather_data_2024-06-01.csv"), "datetime,temperature\n")

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Daily(context.Background()); err == nil {
		t.Fatalf("expected an error when no pair merged")
	}
	if len(a.Summaries.List()) != 0 {
		t.Fatalf("summaries should not be refreshed")
	}
}

func TestLoadWithoutArtifacts(t *testing.T) {
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Load()
	if len(a.Summaries.List()) != 0 {
		t.Fatalf("expected empty store")
	}
	if _, err := a.Predictor.Model(); err == nil {
		t.Fatalf("expected no model")
	}
}
