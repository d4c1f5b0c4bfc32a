package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-roi/internal/models"
)

const (
	placeholderModelID = "N/A"
	confidenceLevel    = 1.0
)

// InsightAssembler turns scored correlations into insights and roi_correlations rows.
type InsightAssembler struct {
	now func() time.Time
}

// NewInsightAssembler constructs an assembler; now defaults to time.Now.
func NewInsightAssembler(now func() time.Time) *InsightAssembler {
	if now == nil {
		now = time.Now
	}
	return &InsightAssembler{now: now}
}

// Assemble builds one insight and one row per scored correlation, preserving input order.
// The run timestamp is read once so every row in the batch shares it.
func (a *InsightAssembler) Assemble(scored []models.ScoredCorrelation) ([]models.CorrelationInsight, []models.CorrelationRow, time.Time, error) {
	runAt := a.now().UTC()
	stamp := runAt.Format(time.RFC3339Nano)

	insights := make([]models.CorrelationInsight, 0, len(scored))
	rows := make([]models.CorrelationRow, 0, len(scored))
	for _, pair := range scored {
		rec := pair.Record
		metadata, err := json.Marshal(rec)
		if err != nil {
			return nil, nil, runAt, fmt.Errorf("encode correlation metadata for %s: %w", rec.MetricName, err)
		}

		insights = append(insights, models.CorrelationInsight{
			Workload: rec.MetricName,
			ModelID:  placeholderModelID,
			// cost and kpi_impact_score both carry the slope until real spend attribution exists.
			Cost:           rec.Coefficient,
			KPIImpactScore: rec.Coefficient,
			ROIScore:       pair.ROI.Score,
			Comment:        fmt.Sprintf("Coeff=%.2f, MSE=%.2f", rec.Coefficient, rec.MeanSquaredError),
		})
		rows = append(rows, models.CorrelationRow{
			Timestamp:           stamp,
			AISystemID:          rec.MetricName,
			InfrastructureCost:  rec.Coefficient,
			BusinessValue:       rec.Coefficient * rec.Coefficient,
			ROIScore:            pair.ROI.Score,
			ConfidenceLevel:     confidenceLevel,
			CorrelationMetadata: string(metadata),
		})
	}
	return insights, rows, runAt, nil
}
