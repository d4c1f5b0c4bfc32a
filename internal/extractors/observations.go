package extractors

import (
	"fmt"
	"math"
	"strings"

	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// RawObservation is an observation as submitted by a caller, before validation.
type RawObservation struct {
	MetricName string   `json:"metric_name"`
	Value      *float64 `json:"value"`
	Timestamp  string   `json:"timestamp"`
}

// Rejection explains why a raw observation was not accepted.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("observation %d: %s", r.Index, r.Reason)
}

// ObservationExtractor validates raw observations into Observations.
type ObservationExtractor struct{}

// NewObservationExtractor creates an observation validator.
func NewObservationExtractor() *ObservationExtractor {
	return &ObservationExtractor{}
}

// Extract returns the valid observations in input order and a rejection for each invalid one.
func (e *ObservationExtractor) Extract(raw []RawObservation) ([]models.Observation, []Rejection) {
	if len(raw) == 0 {
		return nil, nil
	}

	observations := make([]models.Observation, 0, len(raw))
	rejections := make([]Rejection, 0)
	for i, item := range raw {
		obs, reason := e.extractOne(item)
		if reason != "" {
			rejections = append(rejections, Rejection{Index: i, Reason: reason})
			continue
		}
		observations = append(observations, obs)
	}
	return observations, rejections
}

func (e *ObservationExtractor) extractOne(item RawObservation) (models.Observation, string) {
	name := strings.TrimSpace(item.MetricName)
	if name == "" {
		return models.Observation{}, "metric_name is required"
	}
	if strings.TrimSpace(item.Timestamp) == "" {
		return models.Observation{}, "timestamp is required"
	}
	ts, err := utils.ParseRFC3339(item.Timestamp)
	if err != nil {
		return models.Observation{}, fmt.Sprintf("timestamp %q is not RFC3339", item.Timestamp)
	}
	if item.Value == nil {
		return models.Observation{}, "value is required"
	}
	if math.IsNaN(*item.Value) || math.IsInf(*item.Value, 0) {
		return models.Observation{}, "value must be finite"
	}
	return models.Observation{MetricName: name, Value: *item.Value, Timestamp: ts.UTC()}, ""
}

// Summarize joins rejections into one message suitable for an InvalidArgument error.
func Summarize(rejections []Rejection) string {
	parts := make([]string, 0, len(rejections))
	for _, r := range rejections {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, "; ")
}
