package store

import (
	"context"
	"sync"
	"time"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// MemoryStore keeps append-only tables in process. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[models.Table][]models.Row
	now    func() time.Time
}

// NewMemoryStore returns an empty store; now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{tables: make(map[models.Table][]models.Row), now: now}
}

// Fetch returns observations recorded within since of now.
func (s *MemoryStore) Fetch(_ context.Context, table models.Table, since time.Duration) ([]models.Observation, error) {
	if err := checkFetchTable(table); err != nil {
		return nil, err
	}
	observations, err := observationsFromRows(table, s.snapshot(table))
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-since)
	out := make([]models.Observation, 0, len(observations))
	for _, obs := range observations {
		if !obs.Timestamp.Before(cutoff) {
			out = append(out, obs)
		}
	}
	return out, nil
}

// FetchCorrelations returns roi_correlations rows written within since of now.
func (s *MemoryStore) FetchCorrelations(_ context.Context, since time.Duration) ([]models.CorrelationRow, error) {
	rows, err := correlationsFromRows(s.snapshot(models.TableROICorrelations))
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-since)
	out := make([]models.CorrelationRow, 0, len(rows))
	for _, row := range rows {
		ts, err := row.Time()
		if err != nil || ts.Before(cutoff) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Append adds every row or none.
func (s *MemoryStore) Append(_ context.Context, table models.Table, rows []models.Row) error {
	if err := checkAppendTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	copied := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		clone := make(models.Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		copied = append(copied, clone)
	}

	s.mu.Lock()
	s.tables[table] = append(s.tables[table], copied...)
	s.mu.Unlock()
	return nil
}

// Rows returns a copy of the raw rows of a table.
func (s *MemoryStore) Rows(table models.Table) []models.Row {
	return s.snapshot(table)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) snapshot(table models.Table) []models.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Row(nil), s.tables[table]...)
}
