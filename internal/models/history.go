package models

import "time"

// WorkloadSummary aggregates the correlation history of a single workload.
type WorkloadSummary struct {
	Workload   string    `json:"workload"`
	Runs       int       `json:"runs"`
	AverageROI float64   `json:"average_roi"`
	LatestROI  float64   `json:"latest_roi"`
	BestROI    float64   `json:"best_roi"`
	WorstROI   float64   `json:"worst_roi"`
	LastSeen   time.Time `json:"last_seen"`
	Prevalence float64   `json:"prevalence"`
}
