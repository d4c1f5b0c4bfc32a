package engine

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// MinSamples is the number of joined samples a metric needs before a fit is attempted.
const MinSamples = 5

// CorrelationEngine fits metric value against infrastructure cost, one model per business metric.
type CorrelationEngine struct {
	logger *slog.Logger
}

// NewCorrelationEngine constructs a CorrelationEngine.
func NewCorrelationEngine(logger *slog.Logger) *CorrelationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationEngine{logger: logger}
}

// Join pairs every business observation with every infrastructure observation recorded at the
// same instant. Unmatched observations on either side are dropped.
func Join(business, infra []models.Observation) []models.JoinedSample {
	if len(business) == 0 || len(infra) == 0 {
		return nil
	}

	costsAt := make(map[int64][]float64, len(infra))
	for _, obs := range infra {
		key := obs.Timestamp.UnixNano()
		costsAt[key] = append(costsAt[key], obs.Value)
	}

	joined := make([]models.JoinedSample, 0, len(business))
	for _, obs := range business {
		for _, cost := range costsAt[obs.Timestamp.UnixNano()] {
			joined = append(joined, models.JoinedSample{
				MetricName:  obs.MetricName,
				CostUSD:     cost,
				MetricValue: obs.Value,
			})
		}
	}
	return joined
}

// Correlate returns one CorrelationRecord per business metric that has at least MinSamples joined
// samples. Records follow the order in which metrics first appear in the business set.
func (e *CorrelationEngine) Correlate(business, infra []models.Observation) []models.CorrelationRecord {
	records, _ := e.correlate(business, infra)
	return records
}

func (e *CorrelationEngine) correlate(business, infra []models.Observation) ([]models.CorrelationRecord, int) {
	order := make([]string, 0)
	seen := make(map[string]struct{})
	for _, obs := range business {
		if _, ok := seen[obs.MetricName]; ok {
			continue
		}
		seen[obs.MetricName] = struct{}{}
		order = append(order, obs.MetricName)
	}

	groups := make(map[string][]models.JoinedSample, len(order))
	for _, sample := range Join(business, infra) {
		groups[sample.MetricName] = append(groups[sample.MetricName], sample)
	}

	records := make([]models.CorrelationRecord, 0, len(order))
	skipped := 0
	for _, metric := range order {
		samples := groups[metric]
		if len(samples) < MinSamples {
			skipped++
			e.logger.Debug("insufficient samples for fit",
				slog.String("metric", metric),
				slog.Int("samples", len(samples)),
			)
			continue
		}
		records = append(records, fit(metric, samples))
	}
	return records, skipped
}

// fit runs ordinary least squares of metric value on cost with an intercept.
func fit(metric string, samples []models.JoinedSample) models.CorrelationRecord {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.CostUSD
		ys[i] = s.MetricValue
	}

	var alpha, beta float64
	if _, variance := stat.PopMeanVariance(xs, nil); variance == 0 {
		// A constant predictor carries no slope; the best fit is the mean response.
		alpha = stat.Mean(ys, nil)
	} else {
		alpha, beta = stat.LinearRegression(xs, ys, nil, false)
	}

	sse := 0.0
	for i := range xs {
		residual := ys[i] - (alpha + beta*xs[i])
		sse += residual * residual
	}

	return models.CorrelationRecord{
		MetricName:       metric,
		Coefficient:      beta,
		Intercept:        alpha,
		MeanSquaredError: sse / float64(len(xs)),
	}
}
