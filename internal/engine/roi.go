package engine

import (
	"math"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// Score normalises a record's slope by its fit error. The +1 floor keeps the divisor positive,
// and the sign of the coefficient carries through.
func Score(record models.CorrelationRecord) models.RoiScore {
	return models.RoiScore{
		MetricName: record.MetricName,
		Score:      record.Coefficient / (math.Abs(record.MeanSquaredError) + 1),
	}
}

// ScoreAll scores each record in place order, keeping the record and its score together.
func ScoreAll(records []models.CorrelationRecord) []models.ScoredCorrelation {
	scored := make([]models.ScoredCorrelation, 0, len(records))
	for _, rec := range records {
		scored = append(scored, models.ScoredCorrelation{Record: rec, ROI: Score(rec)})
	}
	return scored
}
