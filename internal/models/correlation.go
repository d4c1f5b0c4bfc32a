package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JoinedSample pairs a business observation with an infrastructure cost observation sharing a timestamp.
type JoinedSample struct {
	MetricName  string
	CostUSD     float64
	MetricValue float64
}

// CorrelationRecord is the per-metric regression of metric value against cost.
type CorrelationRecord struct {
	MetricName       string  `json:"metric"`
	Coefficient      float64 `json:"coeff"`
	Intercept        float64 `json:"intercept"`
	MeanSquaredError float64 `json:"mse"`
}

// RoiScore is the normalised figure of merit derived from one CorrelationRecord.
type RoiScore struct {
	MetricName string  `json:"metric"`
	Score      float64 `json:"roi_score"`
}

// ScoredCorrelation keeps a record together with the score computed from it.
type ScoredCorrelation struct {
	Record CorrelationRecord
	ROI    RoiScore
}

// CorrelationInsight is the unit returned to callers and persisted per run.
type CorrelationInsight struct {
	Workload       string  `json:"workload"`
	ModelID        string  `json:"model_id"`
	Cost           float64 `json:"cost"`
	KPIImpactScore float64 `json:"kpi_impact_score"`
	ROIScore       float64 `json:"roi_score"`
	Comment        string  `json:"comment"`
}

// CorrelationRow is one roi_correlations row.
type CorrelationRow struct {
	Timestamp           string
	AISystemID          string
	InfrastructureCost  float64
	BusinessValue       float64
	ROIScore            float64
	ConfidenceLevel     float64
	CorrelationMetadata string
}

// Row flattens the correlation row for the store.
func (r CorrelationRow) Row() Row {
	return Row{
		"timestamp":            r.Timestamp,
		"ai_system_id":         r.AISystemID,
		"infrastructure_cost":  r.InfrastructureCost,
		"business_value":       r.BusinessValue,
		"roi_score":            r.ROIScore,
		"confidence_level":     r.ConfidenceLevel,
		"correlation_metadata": r.CorrelationMetadata,
	}
}

// Time parses the row timestamp.
func (r CorrelationRow) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// Metadata decodes the serialized CorrelationRecord.
func (r CorrelationRow) Metadata() (CorrelationRecord, error) {
	var rec CorrelationRecord
	if r.CorrelationMetadata == "" {
		return rec, fmt.Errorf("correlation metadata empty")
	}
	if err := json.Unmarshal([]byte(r.CorrelationMetadata), &rec); err != nil {
		return rec, fmt.Errorf("decode correlation metadata: %w", err)
	}
	return rec, nil
}

// CorrelationRowFromRow converts a stored row back into a CorrelationRow.
func CorrelationRowFromRow(row Row) (CorrelationRow, error) {
	out := CorrelationRow{}
	switch ts := row["timestamp"].(type) {
	case string:
		out.Timestamp = ts
	case time.Time:
		out.Timestamp = ts.UTC().Format(time.RFC3339Nano)
	default:
		return out, fmt.Errorf("column timestamp missing")
	}
	out.AISystemID, _ = row["ai_system_id"].(string)

	var err error
	if out.InfrastructureCost, err = rowFloat(row, "infrastructure_cost"); err != nil {
		return out, err
	}
	if out.BusinessValue, err = rowFloat(row, "business_value"); err != nil {
		return out, err
	}
	if out.ROIScore, err = rowFloat(row, "roi_score"); err != nil {
		return out, err
	}
	if _, ok := row["confidence_level"]; ok && row["confidence_level"] != nil {
		if out.ConfidenceLevel, err = rowFloat(row, "confidence_level"); err != nil {
			return out, err
		}
	}
	switch meta := row["correlation_metadata"].(type) {
	case string:
		out.CorrelationMetadata = meta
	case []byte:
		out.CorrelationMetadata = string(meta)
	}
	return out, nil
}
