package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// ErrIO marks a file that could not be opened, read or written.
var ErrIO = errors.New("artifact io error")

// Row is one data row of a source table keyed by header. Ragged means the
// row had a different number of fields than the header; its cells are
// whatever was present.
type Row struct {
	Cells  map[string]string
	Ragged bool
}

// ReadTable reads a CSV file into header-keyed rows. A file without a
// header yields no rows. Rows of the wrong width are returned flagged
// rather than failing the file; broken quoting still fails it.
func ReadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var header []string
	var rows []Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, decodeError(path, err)
		}
		if header == nil {
			header = record
			continue
		}

		row := Row{Cells: make(map[string]string, len(header)), Ragged: len(record) != len(header)}
		for i, v := range record {
			if i < len(header) {
				row.Cells[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadDepartures reads a transport source file.
func ReadDepartures(path string) ([]records.RawDeparture, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]records.RawDeparture, 0, len(table))
	for _, row := range table {
		d := records.DepartureFromMap(row.Cells)
		d.Ragged = row.Ragged
		out = append(out, d)
	}
	return out, nil
}

// ReadWeather reads a weather source file.
func ReadWeather(path string) ([]records.RawWeather, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]records.RawWeather, 0, len(table))
	for _, row := range table {
		w := records.WeatherFromMap(row.Cells)
		w.Ragged = row.Ragged
		out = append(out, w)
	}
	return out, nil
}

// ReadMerged reads a merged artifact back into records.
func ReadMerged(path string) ([]records.MergedRecord, error) {
	rows, err := readRows[records.MergedRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]records.MergedRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

// WriteMerged writes a merged artifact in record order.
func WriteMerged(path string, merged []records.MergedRecord) error {
	rows := make([]records.MergedRow, len(merged))
	for i, r := range merged {
		rows[i] = r.Row()
	}
	return WriteRows(path, rows)
}

// ReadSummaries reads a summary artifact.
func ReadSummaries(path string) ([]records.DailySummary, error) {
	return readRows[records.DailySummary](path)
}

// WriteSummaries writes the combined summary artifact.
func WriteSummaries(path string, summaries []records.DailySummary) error {
	return WriteRows(path, summaries)
}

func readRows[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	var rows []T
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, decodeError(path, err)
	}
	return rows, nil
}

// WriteRows encodes rows to path through a temporary file in the same
// directory, so a failed write never leaves a partial artifact behind.
func WriteRows[T any](path string, rows []T) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = gocsv.Marshal(&rows, tmp); err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrIO, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// decodeError classifies a failure after the file was opened: filesystem
// errors stay io errors, everything else is malformed content.
func decodeError(path string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w: %v", path, ErrIO, err)
	}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return fmt.Errorf("%s line %d: %w: %v", path, csvErr.Line, records.ErrParse, csvErr.Err)
	}
	return fmt.Errorf("%s: %w: %v", path, records.ErrParse, err)
}
