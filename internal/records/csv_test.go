package records

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMeasure(t *testing.T) {
	tests := []struct {
		in      string
		missing bool
		want    Measure
		wantErr bool
	}{
		{"21.5", false, 21.5, false},
		{" 3 ", false, 3, false},
		{"", true, 0, false},
		{"NaN", true, 0, false},
		{"nan", true, 0, false},
		{"hot", true, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMeasure(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMeasure(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got.IsMissing() != tt.missing {
			t.Errorf("ParseMeasure(%q): missing = %v, want %v", tt.in, got.IsMissing(), tt.missing)
		}
		if !tt.missing && got != tt.want {
			t.Errorf("ParseMeasure(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMeasureEncoding(t *testing.T) {
	cell, err := Missing().MarshalCSV()
	if err != nil || cell != "" {
		t.Fatalf("missing CSV cell = %q, %v", cell, err)
	}
	cell, _ = Measure(1012.25).MarshalCSV()
	if cell != "1012.25" {
		t.Fatalf("CSV cell = %q", cell)
	}

	b, err := json.Marshal(struct {
		A Measure `json:"a"`
		B Measure `json:"b"`
	}{Missing(), 2.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"a":null,"b":2.5}` {
		t.Fatalf("unexpected JSON: %s", b)
	}
}

func TestColumnAliases(t *testing.T) {
	d := DepartureFromMap(map[string]string{"destination_name": "Ilford", "line": "25"})
	if d.Destination != "Ilford" || d.Line != "25" {
		t.Fatalf("unexpected departure: %+v", d)
	}

	w := WeatherFromMap(map[string]string{"time": "2024-06-01 08:00:00", "description": "rain"})
	if w.Datetime != "2024-06-01 08:00:00" || w.Description != "rain" {
		t.Fatalf("unexpected weather: %+v", w)
	}

	w = WeatherFromMap(map[string]string{"datetime": "2024-06-01 09:00:00", "time": "ignored"})
	if w.Datetime != "2024-06-01 09:00:00" {
		t.Fatalf("datetime column should win over time: %+v", w)
	}
}

func TestMergedRowRoundTrip(t *testing.T) {
	dep := time.Date(2024, 6, 1, 8, 10, 0, 0, time.UTC)
	rec := MergedRecord{
		Departure: DepartureRecord{Timestamp: dep, Estimate: "08:10", Line: "25", ATCOCode: "0100BRP90310"},
		Weather: WeatherSample{
			Timestamp:   dep.Add(-5 * time.Minute),
			Temperature: 18,
			Humidity:    Missing(),
			Pressure:    1010,
			WindSpeed:   4,
			Latitude:    Missing(),
			Longitude:   Missing(),
		},
	}

	got := rec.Row().Record()
	if !got.Departure.Timestamp.Equal(dep) || !got.Weather.Timestamp.Equal(dep.Add(-5*time.Minute)) {
		t.Fatalf("timestamps changed: %+v", got)
	}
	if got.Departure.Line != "25" || got.Weather.Temperature != 18 || !got.Weather.Humidity.IsMissing() {
		t.Fatalf("fields changed: %+v", got)
	}
}
