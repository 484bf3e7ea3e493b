package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/transit-weather-analysis/internal/discovery"
	"github.com/i474232898/transit-weather-analysis/internal/records"
)

var (
	// ErrNotFound is returned when no artifact or summary exists for a day.
	ErrNotFound = errors.New("no data for day")
)

// SummaryStore is a concurrency-safe in-memory index of daily summaries,
// keyed by day token.
type SummaryStore struct {
	mu sync.RWMutex

	// key: day token, value: summary
	data map[string]records.DailySummary
}

// NewSummaryStore creates an empty SummaryStore.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]records.DailySummary),
	}
}

// Replace swaps the whole contents for a freshly computed set.
func (s *SummaryStore) Replace(summaries []records.DailySummary) {
	next := make(map[string]records.DailySummary, len(summaries))
	for _, sum := range summaries {
		next[discovery.DayToken(sum.File)] = sum
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = next
}

// Get returns the summary for one day.
func (s *SummaryStore) Get(day string) (records.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.data[day]
	if !ok {
		return records.DailySummary{}, ErrNotFound
	}
	return sum, nil
}

// List returns all summaries ordered by day.
func (s *SummaryStore) List() []records.DailySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]string, 0, len(s.data))
	for day := range s.data {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]records.DailySummary, 0, len(days))
	for _, day := range days {
		out = append(out, s.data[day])
	}
	return out
}

// Range returns summaries for days between from and to (inclusive).
func (s *SummaryStore) Range(from, to string) ([]records.DailySummary, error) {
	var result []records.DailySummary
	for _, sum := range s.List() {
		day := discovery.DayToken(sum.File)
		if day >= from && day <= to {
			result = append(result, sum)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
