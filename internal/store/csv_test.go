package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

func sampleMerged() []records.MergedRecord {
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return []records.MergedRecord{
		{
			Departure: records.DepartureRecord{Timestamp: base, Estimate: "08:00", Line: "25", Direction: "outbound", ATCOCode: "0100BRP90310"},
			Weather: records.WeatherSample{
				Timestamp: base.Add(-2 * time.Minute), Temperature: 17.5, Humidity: 70, Pressure: 1013,
				WindSpeed: 3.6, Description: "light rain", Latitude: 51.5, Longitude: -0.12,
			},
		},
		{
			Departure: records.DepartureRecord{Timestamp: base.Add(30 * time.Minute), Estimate: "08:30", Line: "86", ATCOCode: "0100BRP90312"},
			Weather: records.WeatherSample{
				Timestamp: base.Add(28 * time.Minute), Temperature: records.Missing(), Humidity: 68, Pressure: records.Missing(),
				WindSpeed: 4, Latitude: records.Missing(), Longitude: records.Missing(),
			},
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestMergedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", MergedName("2024-06-01", ".csv"))
	in := sampleMerged()

	if err := WriteMerged(path, in); err != nil {
		t.Fatalf("WriteMerged: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	header := strings.SplitN(string(raw), "\n", 2)[0]
	want := "datetime,atco_code,line,direction,operator,destination,best_departure_estimate,source," +
		"temperature,humidity,pressure,wind_speed,weather_description,latitude,longitude,weather_datetime"
	if header != want {
		t.Fatalf("unexpected header:\n got %s\nwant %s", header, want)
	}
	if !strings.Contains(string(raw), "2024-06-01 08:30:00,0100BRP90312,86,,,,08:30,,,68,,4,,,,2024-06-01 08:28:00") {
		t.Fatalf("missing values not written as empty cells:\n%s", raw)
	}

	out, err := ReadMerged(path)
	if err != nil {
		t.Fatalf("ReadMerged: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		if !out[i].Departure.Timestamp.Equal(in[i].Departure.Timestamp) || out[i].Departure.Line != in[i].Departure.Line {
			t.Errorf("row %d departure changed: %+v", i, out[i].Departure)
		}
	}
	if !out[1].Weather.Temperature.IsMissing() || out[1].Weather.Humidity != 68 {
		t.Errorf("row 1 weather changed: %+v", out[1].Weather)
	}
}

func TestWriteRowsIsIdempotentAndAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MergedName("2024-06-01", ".csv"))

	if err := WriteMerged(path, sampleMerged()); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, _ := os.ReadFile(path)
	if err := WriteMerged(path, sampleMerged()); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Fatalf("rewriting the same records changed the artifact")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the artifact in %s, found %d entries", dir, len(entries))
	}
}

func TestWriteRowsUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	writeFile(t, blocker, "x")

	err := WriteMerged(filepath.Join(blocker, "merged_data_2024-06-01.csv"), sampleMerged())
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadDepartures(filepath.Join(dir, "missing.csv"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrIO wrapping ErrNotExist, got %v", err)
	}

	badQuote := filepath.Join(dir, "bad_quote.csv")
	writeFile(t, badQuote, "line,best_departure_estimate\n25,\"08\"00\n")
	_, err = ReadDepartures(badQuote)
	if !errors.Is(err, records.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestReadTableFlagsRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_data_2024-06-01.csv")
	writeFile(t, path, "datetime,temperature,humidity\n"+
		"2024-06-01 08:00:00,17,70\n"+
		"2024-06-01 09:00:00,18\n"+
		"2024-06-01 10:00:00,19,65,extra\n"+
		"2024-06-01 11:00:00,20,60\n")

	rows, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for i, want := range []bool{false, true, true, false} {
		if rows[i].Ragged != want {
			t.Errorf("row %d: ragged = %v, want %v", i, rows[i].Ragged, want)
		}
	}
	if rows[1].Cells["temperature"] != "18" {
		t.Errorf("short row lost its cells: %v", rows[1].Cells)
	}
	if _, ok := rows[1].Cells["humidity"]; ok {
		t.Errorf("short row should not have a humidity cell: %v", rows[1].Cells)
	}

	ws, err := ReadWeather(path)
	if err != nil {
		t.Fatalf("ReadWeather: %v", err)
	}
	if !ws[1].Ragged || ws[3].Ragged {
		t.Fatalf("ragged flag not carried to raw rows: %+v", ws)
	}
}

func TestReadSourcesWithAliases(t *testing.T) {
	dir := t.TempDir()

	transport := filepath.Join(dir, "transport_data_2024-06-01.csv")
	writeFile(t, transport, "atco_code,line,destination_name,best_departure_estimate\n0100BRP90310,25,Ilford,08:10\n")
	deps, err := ReadDepartures(transport)
	if err != nil {
		t.Fatalf("ReadDepartures: %v", err)
	}
	if len(deps) != 1 || deps[0].Destination != "Ilford" || deps[0].Datetime != "" {
		t.Fatalf("unexpected departures: %+v", deps)
	}

	weather := filepath.Join(dir, "weather_data_2024-06-01.csv")
	writeFile(t, weather, "time,temperature,description\n2024-06-01 08:00:00,19,cloudy\n")
	ws, err := ReadWeather(weather)
	if err != nil {
		t.Fatalf("ReadWeather: %v", err)
	}
	if len(ws) != 1 || ws[0].Datetime != "2024-06-01 08:00:00" || ws[0].Description != "cloudy" {
		t.Fatalf("unexpected weather: %+v", ws)
	}

	headerOnly := filepath.Join(dir, "weather_data_2024-06-02.csv")
	writeFile(t, headerOnly, "datetime,temperature\n")
	ws, err = ReadWeather(headerOnly)
	if err != nil || len(ws) != 0 {
		t.Fatalf("expected no rows and no error, got %d rows, %v", len(ws), err)
	}
}

func TestSummariesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary_analysis.csv")
	in := []records.DailySummary{
		{File: "merged_data_2024-06-01.csv", BusiestHour: 8, TotalDepartures: 40, AvgTemperature: 18.25, AvgWindSpeed: 3},
		{File: "merged_data_2024-06-02.csv", BusiestHour: 17, TotalDepartures: 12, AvgTemperature: records.Missing(), AvgWindSpeed: 2.5},
	}
	if err := WriteSummaries(path, in); err != nil {
		t.Fatalf("WriteSummaries: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(raw), "file,busiest_hour,total_departures,avg_temperature,avg_wind_speed\n") {
		t.Fatalf("unexpected header:\n%s", raw)
	}

	out, err := ReadSummaries(path)
	if err != nil {
		t.Fatalf("ReadSummaries: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1].File != in[1].File || !out[1].AvgTemperature.IsMissing() {
		t.Fatalf("unexpected summaries: %+v", out)
	}
}
