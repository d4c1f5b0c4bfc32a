package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// tableColumns lists the column order used for reads and inserts.
var tableColumns = map[models.Table][]string{
	models.TableBusinessMetrics:       {"timestamp", "metric_name", "metric_value"},
	models.TableInfrastructureMetrics: {"timestamp", "service_name", "cost_usd"},
	models.TableROICorrelations: {
		"timestamp", "ai_system_id", "infrastructure_cost", "business_value",
		"roi_score", "confidence_level", "correlation_metadata",
	},
}

// PostgresStore reads and appends warehouse tables in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres opens a connection pool for dsn and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string, maxOpen int) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, nil), nil
}

// NewPostgresStore wraps an existing pool; now defaults to time.Now.
func NewPostgresStore(db *sql.DB, now func() time.Time) *PostgresStore {
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: db, now: now}
}

// Fetch selects observations with a timestamp inside the trailing window.
func (s *PostgresStore) Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error) {
	if err := checkFetchTable(table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectSQL(table), s.now().Add(-since).UTC())
	if err != nil {
		return nil, utils.NewTableError("fetch", string(table), "query failed", err)
	}
	defer rows.Close()

	out := make([]models.Observation, 0)
	for rows.Next() {
		var (
			ts    sql.NullTime
			name  sql.NullString
			value sql.NullFloat64
		)
		if err := rows.Scan(&ts, &name, &value); err != nil {
			return nil, utils.NewTableError("fetch", string(table), "scan failed", err)
		}
		// NULL columns come back as a zero timestamp, blank name or NaN value, which the
		// pipeline drops and counts instead of failing the run.
		obs := models.Observation{MetricName: name.String, Value: math.NaN()}
		if ts.Valid {
			obs.Timestamp = ts.Time.UTC()
		}
		if value.Valid {
			obs.Value = value.Float64
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewTableError("fetch", string(table), "iterate failed", err)
	}
	return out, nil
}

// FetchCorrelations selects roi_correlations rows inside the trailing window.
func (s *PostgresStore) FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error) {
	table := models.TableROICorrelations
	rows, err := s.db.QueryContext(ctx, selectSQL(table), s.now().Add(-since).UTC())
	if err != nil {
		return nil, utils.NewTableError("fetch", string(table), "query failed", err)
	}
	defer rows.Close()

	out := make([]models.CorrelationRow, 0)
	for rows.Next() {
		var (
			rec        models.CorrelationRow
			ts         time.Time
			confidence sql.NullFloat64
			metadata   sql.NullString
		)
		if err := rows.Scan(&ts, &rec.AISystemID, &rec.InfrastructureCost, &rec.BusinessValue, &rec.ROIScore, &confidence, &metadata); err != nil {
			return nil, utils.NewTableError("fetch", string(table), "scan failed", err)
		}
		rec.Timestamp = ts.UTC().Format(time.RFC3339Nano)
		rec.ConfidenceLevel = confidence.Float64
		rec.CorrelationMetadata = metadata.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewTableError("fetch", string(table), "iterate failed", err)
	}
	return out, nil
}

// Append inserts the batch in a single transaction.
func (s *PostgresStore) Append(ctx context.Context, table models.Table, rows []models.Row) error {
	if err := checkAppendTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	columns := tableColumns[table]
	query := insertSQL(table)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.NewTableError("append", string(table), "begin failed", err)
	}
	for i, row := range rows {
		args := make([]any, len(columns))
		for j, col := range columns {
			args[j] = row[col]
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return utils.NewTableError("append", string(table), fmt.Sprintf("insert row %d", i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return utils.NewTableError("append", string(table), "commit failed", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func selectSQL(table models.Table) string {
	columns := quoteAll(tableColumns[table])
	ts := pq.QuoteIdentifier("timestamp")
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s >= $1 ORDER BY %s",
		strings.Join(columns, ", "), pq.QuoteIdentifier(string(table)), ts, ts)
}

func insertSQL(table models.Table) string {
	columns := tableColumns[table]
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(string(table)), strings.Join(quoteAll(columns), ", "), strings.Join(placeholders, ", "))
}

func quoteAll(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = pq.QuoteIdentifier(c)
	}
	return out
}
