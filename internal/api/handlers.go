package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-roi/internal/extractors"
	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// AnalyzeRequest is the wire form of an analysis request.
type AnalyzeRequest struct {
	Window     string   `json:"window,omitempty"`
	Metrics    []string `json:"metrics,omitempty"`
	CustomKPIs []string `json:"custom_kpis,omitempty"`
}

// RecordRequest is the wire form of an observation batch.
type RecordRequest struct {
	Table        string                      `json:"table"`
	Observations []extractors.RawObservation `json:"observations"`
}

// RecordResponse acknowledges an accepted batch.
type RecordResponse struct {
	Table    string `json:"table"`
	Accepted int    `json:"accepted"`
}

// HistoryRequest is the wire form of a workload history lookup.
type HistoryRequest struct {
	Window string `json:"window,omitempty"`
}

// HistoryResponse lists workload summaries for a window.
type HistoryResponse struct {
	Window    string                   `json:"window"`
	Workloads []models.WorkloadSummary `json:"workloads"`
}

// ToDomain parses the window; an empty window leaves the service default in effect.
func (r AnalyzeRequest) ToDomain() (models.AnalysisRequest, error) {
	window, err := parseOptionalWindow(r.Window)
	if err != nil {
		return models.AnalysisRequest{}, err
	}
	return models.AnalysisRequest{
		Window:     window,
		Metrics:    compact(r.Metrics),
		CustomKPIs: compact(r.CustomKPIs),
	}, nil
}

// ToDomain parses the window; an empty window leaves the service default in effect.
func (r HistoryRequest) ToDomain() (models.HistoryRequest, error) {
	window, err := parseOptionalWindow(r.Window)
	if err != nil {
		return models.HistoryRequest{}, err
	}
	return models.HistoryRequest{Window: window}, nil
}

// NewHistoryResponse renders summaries for the resolved window.
func NewHistoryResponse(window time.Duration, workloads []models.WorkloadSummary) HistoryResponse {
	if workloads == nil {
		workloads = []models.WorkloadSummary{}
	}
	return HistoryResponse{Window: utils.FormatWindow(window), Workloads: workloads}
}

// FromStruct decodes a protobuf Struct into one of the wire types above.
func FromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// ToStruct encodes any JSON-serialisable value as a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return structpb.NewStruct(fields)
}

func parseOptionalWindow(value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return utils.ParseWindow(value)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
