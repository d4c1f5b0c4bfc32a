package models

import "time"

// AnalysisRequest scopes one correlation run.
type AnalysisRequest struct {
	Window     time.Duration
	Metrics    []string
	CustomKPIs []string
}

// ROISummary aggregates value against cost over the analysis window.
type ROISummary struct {
	TotalValue float64  `json:"total_value"`
	TotalCost  float64  `json:"total_cost"`
	OverallROI *float64 `json:"overall_roi"`
}

// AnalysisReport is the outcome of a correlation run. Only Insights are persisted.
type AnalysisReport struct {
	RunID           string               `json:"run_id"`
	RunAt           time.Time            `json:"run_at"`
	Insights        []CorrelationInsight `json:"insights"`
	Trends          map[string]float64   `json:"trends,omitempty"`
	Summary         ROISummary           `json:"summary"`
	KPITotals       map[string]float64   `json:"kpi_totals,omitempty"`
	Recommendations []string             `json:"recommendations,omitempty"`
	Stats           RunStats             `json:"stats"`
}

// RunStats counts what a run consumed and discarded.
type RunStats struct {
	BusinessObservations       int `json:"business_observations"`
	InfrastructureObservations int `json:"infrastructure_observations"`
	DroppedObservations        int `json:"dropped_observations"`
	SkippedMetrics             int `json:"skipped_metrics"`
}

// HistoryRequest scopes a workload history lookup.
type HistoryRequest struct {
	Window time.Duration
}
