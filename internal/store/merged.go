package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i474232898/transit-weather-analysis/internal/records"
)

// MergedPrefix starts every merged artifact file name.
const MergedPrefix = "merged_data_"

// MergedName is the artifact file name for a day token.
func MergedName(day, ext string) string {
	return MergedPrefix + day + ext
}

// MergedDir reads merged artifacts from an output directory.
type MergedDir struct {
	Dir string
	Ext string
}

// Files lists the merged artifacts in lexicographic order.
func (m MergedDir) Files() ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, MergedPrefix) || !strings.EqualFold(filepath.Ext(name), m.Ext) {
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Day loads the merged records of one day.
func (m MergedDir) Day(day string) ([]records.MergedRecord, error) {
	rows, err := ReadMerged(filepath.Join(m.Dir, MergedName(day, m.Ext)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rows, nil
}

// All loads every merged artifact, concatenated in file order.
func (m MergedDir) All() ([]records.MergedRecord, error) {
	files, err := m.Files()
	if err != nil {
		return nil, err
	}
	var all []records.MergedRecord
	for _, f := range files {
		rows, err := ReadMerged(f)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}
