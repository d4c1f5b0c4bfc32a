package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-roi/internal/models"
)

const day = 24 * time.Hour

// MetricTrends returns, per business metric, the mean day-over-day percentage change of its daily
// mean value. Days without samples carry the previous day's mean forward. Metrics spanning fewer
// than two days, and steps from a zero baseline, contribute nothing.
func MetricTrends(business []models.Observation) map[string]float64 {
	daily := make(map[string]map[int64][]float64)
	for _, obs := range business {
		bucket := obs.Timestamp.UTC().Truncate(day).Unix()
		days, ok := daily[obs.MetricName]
		if !ok {
			days = make(map[int64][]float64)
			daily[obs.MetricName] = days
		}
		days[bucket] = append(days[bucket], obs.Value)
	}

	trends := make(map[string]float64, len(daily))
	for metric, days := range daily {
		keys := make([]int64, 0, len(days))
		for k := range days {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		series := make([]float64, 0)
		last := stat.Mean(days[keys[0]], nil)
		for ts := keys[0]; ts <= keys[len(keys)-1]; ts += int64(day / time.Second) {
			if values, ok := days[ts]; ok {
				last = stat.Mean(values, nil)
			}
			series = append(series, last)
		}

		changes := make([]float64, 0, len(series))
		for i := 1; i < len(series); i++ {
			if series[i-1] == 0 {
				continue
			}
			changes = append(changes, (series[i]-series[i-1])/series[i-1])
		}
		if len(changes) == 0 {
			continue
		}
		trends[metric] = stat.Mean(changes, nil)
	}
	return trends
}

// Summarize totals business value against infrastructure cost. OverallROI is nil when there is no cost.
func Summarize(business, infra []models.Observation) models.ROISummary {
	summary := models.ROISummary{
		TotalValue: floats.Sum(values(business)),
		TotalCost:  floats.Sum(values(infra)),
	}
	if summary.TotalCost != 0 {
		roi := (summary.TotalValue - summary.TotalCost) / summary.TotalCost
		summary.OverallROI = &roi
	}
	return summary
}

// KPITotals sums the values of the requested KPIs. KPIs with no observations are omitted.
func KPITotals(business []models.Observation, kpis []string) map[string]float64 {
	if len(kpis) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(kpis))
	for _, k := range kpis {
		wanted[k] = struct{}{}
	}
	totals := make(map[string]float64)
	for _, obs := range business {
		if _, ok := wanted[obs.MetricName]; ok {
			totals[obs.MetricName] += obs.Value
		}
	}
	return totals
}

// FilterMetrics keeps observations whose metric name is in names (case-insensitive). An empty
// filter keeps everything.
func FilterMetrics(observations []models.Observation, names []string) []models.Observation {
	if len(names) == 0 {
		return observations
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = struct{}{}
	}
	filtered := make([]models.Observation, 0, len(observations))
	for _, obs := range observations {
		if _, ok := wanted[strings.ToLower(obs.MetricName)]; ok {
			filtered = append(filtered, obs)
		}
	}
	return filtered
}

// Sanitize drops business observations that cannot take part in a fit and reports how many
// were dropped. A business observation needs a metric name to be grouped.
func Sanitize(observations []models.Observation) ([]models.Observation, int) {
	return keep(observations, func(obs models.Observation) bool {
		return usable(obs) && strings.TrimSpace(obs.MetricName) != ""
	})
}

// SanitizeCosts drops infrastructure observations without a timestamp or a finite cost. The
// service name plays no part in the join, so a blank one is kept.
func SanitizeCosts(observations []models.Observation) ([]models.Observation, int) {
	return keep(observations, usable)
}

func usable(obs models.Observation) bool {
	return !obs.Timestamp.IsZero() && !math.IsNaN(obs.Value) && !math.IsInf(obs.Value, 0)
}

func keep(observations []models.Observation, ok func(models.Observation) bool) ([]models.Observation, int) {
	clean := make([]models.Observation, 0, len(observations))
	dropped := 0
	for _, obs := range observations {
		if !ok(obs) {
			dropped++
			continue
		}
		clean = append(clean, obs)
	}
	return clean, dropped
}

func values(observations []models.Observation) []float64 {
	out := make([]float64, len(observations))
	for i, obs := range observations {
		out[i] = obs.Value
	}
	return out
}
