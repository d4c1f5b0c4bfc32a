package models

import (
	"fmt"
	"time"
)

// Table names a warehouse table the pipeline reads from or appends to.
type Table string

const (
	TableBusinessMetrics       Table = "business_metrics"
	TableInfrastructureMetrics Table = "infrastructure_metrics"
	TableROICorrelations       Table = "roi_correlations"
)

// Valid reports whether t is one of the known warehouse tables.
func (t Table) Valid() bool {
	switch t {
	case TableBusinessMetrics, TableInfrastructureMetrics, TableROICorrelations:
		return true
	default:
		return false
	}
}

// ObservationTable reports whether t holds Observation-shaped rows.
func (t Table) ObservationTable() bool {
	return t == TableBusinessMetrics || t == TableInfrastructureMetrics
}

// Row is a flat key-value record as written to the warehouse.
type Row map[string]any

// Observation is a single timestamped measurement from a business or infrastructure source.
type Observation struct {
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Row renders the observation in the column layout of the given table.
// Infrastructure rows carry the metric name as service_name and the value as cost_usd.
func (o Observation) Row(table Table) Row {
	ts := o.Timestamp.UTC().Format(time.RFC3339Nano)
	if table == TableInfrastructureMetrics {
		return Row{"timestamp": ts, "service_name": o.MetricName, "cost_usd": o.Value}
	}
	return Row{"timestamp": ts, "metric_name": o.MetricName, "metric_value": o.Value}
}

// ObservationFromRow is the inverse of Observation.Row.
func ObservationFromRow(table Table, row Row) (Observation, error) {
	nameKey, valueKey := "metric_name", "metric_value"
	if table == TableInfrastructureMetrics {
		nameKey, valueKey = "service_name", "cost_usd"
	}

	name, _ := row[nameKey].(string)
	value, err := rowFloat(row, valueKey)
	if err != nil {
		return Observation{}, err
	}
	ts, err := rowTime(row, "timestamp")
	if err != nil {
		return Observation{}, err
	}
	return Observation{MetricName: name, Value: value, Timestamp: ts}, nil
}

func rowFloat(row Row, key string) (float64, error) {
	switch v := row[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("column %s missing", key)
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", key, v)
	}
}

func rowTime(row Row, key string) (time.Time, error) {
	switch v := row[key].(type) {
	case time.Time:
		return v, nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("column %s: %w", key, err)
		}
		return ts, nil
	case nil:
		return time.Time{}, fmt.Errorf("column %s missing", key)
	default:
		return time.Time{}, fmt.Errorf("column %s: unexpected type %T", key, v)
	}
}
