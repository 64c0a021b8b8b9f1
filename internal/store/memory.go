package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

var (
	// ErrNotFound is returned when no report is available for a coordinate.
	ErrNotFound = errors.New("no surface temperature report for location")
)

// MemoryStore is a concurrency-safe in-memory report history. It implements
// weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: coordinate key, value: reports ordered by CreatedAt
	data map[string][]weather.Report

	maxHistory int           // max reports per coordinate, <= 0 is unlimited
	maxAge     time.Duration // max report age, <= 0 is unlimited
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]weather.Report),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Publish appends a report for its coordinate and enforces retention.
func (s *MemoryStore) Publish(_ context.Context, report weather.Report) error {
	key := report.Coordinate.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], report)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for i < len(history) && history[i].CreatedAt.Before(cutoff) {
			i++
		}
		history = history[i:]
	}

	if len(history) == 0 {
		delete(s.data, key)
		return nil
	}
	s.data[key] = history
	return nil
}

// Latest returns the most recent report for a coordinate.
func (s *MemoryStore) Latest(coord geo.Coordinate) (weather.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[coord.Key()]
	if len(history) == 0 {
		return weather.Report{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// Range returns all reports for a coordinate created between from and to (inclusive).
func (s *MemoryStore) Range(coord geo.Coordinate, from, to time.Time) ([]weather.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Report
	for _, r := range s.data[coord.Key()] {
		if !r.CreatedAt.Before(from) && !r.CreatedAt.After(to) {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Coordinates returns every coordinate with at least one stored report.
func (s *MemoryStore) Coordinates() []geo.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coords := make([]geo.Coordinate, 0, len(s.data))
	for _, h := range s.data {
		coords = append(coords, h[len(h)-1].Coordinate)
	}
	return coords
}
