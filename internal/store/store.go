// Package store holds the warehouse drivers behind the correlation pipeline.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// MetricStore reads observations for a trailing window and appends batches of rows.
type MetricStore interface {
	Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error)
	Append(ctx context.Context, table models.Table, rows []models.Row) error
}

// CorrelationHistory reads persisted roi_correlations rows for a trailing window.
type CorrelationHistory interface {
	FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error)
}

// Store is implemented by every driver in this package.
type Store interface {
	MetricStore
	CorrelationHistory
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*HTTPStore)(nil)
	_ Store = (*CachedStore)(nil)
)

func checkFetchTable(table models.Table) error {
	if !table.ObservationTable() {
		return utils.NewTableError("fetch", string(table), "not an observation table", nil)
	}
	return nil
}

func checkAppendTable(table models.Table) error {
	if !table.Valid() {
		return utils.NewTableError("append", string(table), "unknown table", nil)
	}
	return nil
}

func observationsFromRows(table models.Table, rows []models.Row) ([]models.Observation, error) {
	out := make([]models.Observation, 0, len(rows))
	for i, row := range rows {
		obs, err := models.ObservationFromRow(table, row)
		if err != nil {
			return nil, utils.NewTableError("fetch", string(table), fmt.Sprintf("decode row %d", i), err)
		}
		out = append(out, obs)
	}
	return out, nil
}

func correlationsFromRows(rows []models.Row) ([]models.CorrelationRow, error) {
	out := make([]models.CorrelationRow, 0, len(rows))
	for i, row := range rows {
		rec, err := models.CorrelationRowFromRow(row)
		if err != nil {
			return nil, utils.NewTableError("fetch", string(models.TableROICorrelations), fmt.Sprintf("decode row %d", i), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
