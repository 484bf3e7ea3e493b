package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

func TestSummaryStore(t *testing.T) {
	s := NewSummaryStore()
	if _, err := s.Get("2024-06-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	s.Replace([]records.DailySummary{
		{File: "merged_data_2024-06-03.csv", TotalDepartures: 3},
		{File: "merged_data_2024-06-01.csv", TotalDepartures: 1},
		{File: "merged_data_2024-06-02.csv", TotalDepartures: 2},
	})

	sum, err := s.Get("2024-06-02")
	if err != nil || sum.TotalDepartures != 2 {
		t.Fatalf("Get: %+v, %v", sum, err)
	}

	list := s.List()
	if len(list) != 3 || list[0].TotalDepartures != 1 || list[2].TotalDepartures != 3 {
		t.Fatalf("List not ordered by day: %+v", list)
	}

	got, err := s.Range("2024-06-02", "2024-06-03")
	if err != nil || len(got) != 2 {
		t.Fatalf("Range: %+v, %v", got, err)
	}
	if _, err := s.Range("2024-07-01", "2024-07-31"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty range, got %v", err)
	}

	s.Replace(nil)
	if len(s.List()) != 0 {
		t.Fatalf("Replace did not clear the store")
	}
}

func TestMergedDir(t *testing.T) {
	dir := t.TempDir()
	m := MergedDir{Dir: dir, Ext: ".csv"}

	for _, day := range []string{"2024-06-02", "2024-06-01"} {
		if err := WriteMerged(filepath.Join(dir, MergedName(day, ".csv")), sampleMerged()); err != nil {
			t.Fatalf("WriteMerged: %v", err)
		}
	}
	writeFile(t, filepath.Join(dir, "summary_analysis.csv"), "file\n")
	writeFile(t, filepath.Join(dir, "merged_data_2024-06-03.txt"), "datetime\n")

	files, err := m.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "merged_data_2024-06-01.csv" {
		t.Fatalf("unexpected files: %v", files)
	}

	rows, err := m.Day("2024-06-01")
	if err != nil || len(rows) != 2 {
		t.Fatalf("Day: %d rows, %v", len(rows), err)
	}
	if _, err := m.Day("2024-06-09"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := m.All()
	if err != nil || len(all) != 4 {
		t.Fatalf("All: %d rows, %v", len(all), err)
	}
}
