// Package history aggregates persisted correlation rows into per-workload summaries.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// Source abstracts reads of the roi_correlations table.
type Source interface {
	FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error)

// FetchCorrelations implements Source.
func (f SourceFunc) FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error) {
	return f(ctx, since)
}

// Summarizer loads correlation history and summarises it per workload.
type Summarizer struct {
	source Source
	logger *slog.Logger
}

// NewSummarizer constructs a Summarizer; source may be nil when the store keeps no history.
func NewSummarizer(logger *slog.Logger, source Source) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{source: source, logger: logger}
}

// Workloads reads the trailing window of correlation rows and summarises them.
func (s *Summarizer) Workloads(ctx context.Context, window time.Duration) ([]models.WorkloadSummary, error) {
	if s.source == nil {
		return nil, fmt.Errorf("correlation history not available")
	}
	rows, err := s.source.FetchCorrelations(ctx, window)
	if err != nil {
		return nil, err
	}
	summaries := Summarize(rows)
	s.logger.Debug("summarised correlation history",
		slog.Int("rows", len(rows)),
		slog.Int("workloads", len(summaries)),
	)
	return summaries, nil
}

// Summarize groups rows by workload. Prevalence is the share of distinct runs (row timestamps)
// in which the workload produced a row. Rows with unparseable timestamps are ignored.
func Summarize(rows []models.CorrelationRow) []models.WorkloadSummary {
	if len(rows) == 0 {
		return nil
	}

	runs := make(map[string]struct{})
	stats := make(map[string]*workloadAggregate)
	for _, row := range rows {
		ts, err := row.Time()
		if err != nil {
			continue
		}
		runs[row.Timestamp] = struct{}{}
		agg := ensureAggregate(stats, row.AISystemID)
		agg.scores = append(agg.scores, row.ROIScore)
		if len(agg.scores) == 1 || ts.After(agg.lastSeen) {
			agg.lastSeen = ts
			agg.latest = row.ROIScore
		}
	}

	summaries := make([]models.WorkloadSummary, 0, len(stats))
	for workload, agg := range stats {
		summaries = append(summaries, models.WorkloadSummary{
			Workload:   workload,
			Runs:       len(agg.scores),
			AverageROI: floats.Sum(agg.scores) / float64(len(agg.scores)),
			LatestROI:  agg.latest,
			BestROI:    floats.Max(agg.scores),
			WorstROI:   floats.Min(agg.scores),
			LastSeen:   agg.lastSeen.UTC(),
			Prevalence: float64(len(agg.scores)) / float64(len(runs)),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Prevalence != summaries[j].Prevalence {
			return summaries[i].Prevalence > summaries[j].Prevalence
		}
		if summaries[i].AverageROI != summaries[j].AverageROI {
			return summaries[i].AverageROI > summaries[j].AverageROI
		}
		return summaries[i].Workload < summaries[j].Workload
	})
	return summaries
}

type workloadAggregate struct {
	scores   []float64
	latest   float64
	lastSeen time.Time
}

func ensureAggregate(m map[string]*workloadAggregate, workload string) *workloadAggregate {
	if workload == "" {
		workload = "unknown"
	}
	agg, ok := m[workload]
	if !ok {
		agg = &workloadAggregate{}
		m[workload] = agg
	}
	return agg
}
