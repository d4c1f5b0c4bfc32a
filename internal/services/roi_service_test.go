package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-roi/internal/engine"
	"github.com/miradorstack/mirador-roi/internal/history"
	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/store"
)

type failingStore struct {
	*store.MemoryStore
	fetchErr  error
	appendErr error
}

func (f *failingStore) Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.MemoryStore.Fetch(ctx, table, since)
}

func (f *failingStore) Append(ctx context.Context, table models.Table, rows []models.Row) error {
	if f.appendErr != nil && table == models.TableROICorrelations {
		return f.appendErr
	}
	return f.MemoryStore.Append(ctx, table, rows)
}

func newService(st *failingStore) *ROIService {
	pipeline := engine.NewPipeline(nil, st, nil, nil, nil)
	return NewROIService(nil, pipeline, st, history.NewSummarizer(nil, st), 7*24*time.Hour)
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func observations(base time.Time, name string, values ...float64) []any {
	out := make([]any, 0, len(values))
	for i, v := range values {
		out = append(out, map[string]any{
			"metric_name": name,
			"value":       v,
			"timestamp":   base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	return out
}

func seed(t *testing.T, service *ROIService) {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Hour).Add(-12 * time.Hour)
	ctx := context.Background()

	if _, err := service.RecordObservations(ctx, mustStruct(t, map[string]any{
		"table":        "business_metrics",
		"observations": observations(base, "CSAT", 80, 82, 84, 86, 88),
	})); err != nil {
		t.Fatalf("record business: %v", err)
	}
	resp, err := service.RecordObservations(ctx, mustStruct(t, map[string]any{
		"table":        "infrastructure_metrics",
		"observations": observations(base, "api", 100, 110, 120, 130, 140),
	}))
	if err != nil {
		t.Fatalf("record infra: %v", err)
	}
	if got := resp.AsMap()["accepted"]; got != 5.0 {
		t.Fatalf("expected 5 accepted, got %v", got)
	}
}

func TestAnalyzeCorrelationsEndToEnd(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(nil)}
	service := newService(st)
	seed(t, service)

	resp, err := service.AnalyzeCorrelations(context.Background(), mustStruct(t, map[string]any{"window": "2d"}))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	insights, ok := resp.AsMap()["insights"].([]any)
	if !ok || len(insights) != 1 {
		t.Fatalf("expected one insight, got %v", resp.AsMap()["insights"])
	}
	insight := insights[0].(map[string]any)
	if insight["workload"] != "CSAT" || insight["model_id"] != "N/A" {
		t.Fatalf("unexpected insight %v", insight)
	}
	if roi := insight["roi_score"].(float64); math.Abs(roi-0.2) > 1e-9 {
		t.Fatalf("expected roi 0.2, got %v", roi)
	}
	if len(st.Rows(models.TableROICorrelations)) != 1 {
		t.Fatalf("expected one persisted row")
	}

	hist, err := service.GetWorkloadHistory(context.Background(), mustStruct(t, map[string]any{}))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if hist.AsMap()["window"] != "1w" {
		t.Fatalf("expected default window, got %v", hist.AsMap()["window"])
	}
	workloads := hist.AsMap()["workloads"].([]any)
	if len(workloads) != 1 || workloads[0].(map[string]any)["workload"] != "CSAT" {
		t.Fatalf("unexpected workloads %v", workloads)
	}
}

func TestAnalyzeFailureMapping(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(nil)}
	service := newService(st)
	seed(t, service)

	st.appendErr = errors.New("quota exceeded")
	if _, err := service.Analyze(context.Background(), models.AnalysisRequest{}); status.Code(err) != codes.Internal {
		t.Fatalf("expected internal for persist failure, got %v", err)
	}

	st.fetchErr = errors.New("warehouse down")
	if _, err := service.Analyze(context.Background(), models.AnalysisRequest{}); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable for fetch failure, got %v", err)
	}
}

func TestAnalyzeInvalidWindow(t *testing.T) {
	service := newService(&failingStore{MemoryStore: store.NewMemoryStore(nil)})
	_, err := service.AnalyzeCorrelations(context.Background(), mustStruct(t, map[string]any{"window": "soon"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRecordRejectsWholeBatch(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(nil)}
	service := newService(st)

	raw := observations(time.Now().UTC(), "CSAT", 1, 2)
	raw = append(raw, map[string]any{"metric_name": "CSAT", "timestamp": "not-a-time", "value": 3.0})
	_, err := service.RecordObservations(context.Background(), mustStruct(t, map[string]any{
		"table":        "business_metrics",
		"observations": raw,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if len(st.Rows(models.TableBusinessMetrics)) != 0 {
		t.Fatalf("expected nothing written on rejection")
	}

	_, err = service.RecordObservations(context.Background(), mustStruct(t, map[string]any{
		"table":        "roi_correlations",
		"observations": observations(time.Now().UTC(), "CSAT", 1),
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for correlation table, got %v", err)
	}

	_, err = service.RecordObservations(context.Background(), mustStruct(t, map[string]any{"table": "business_metrics"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for empty batch, got %v", err)
	}
}

func TestMissingCollaborators(t *testing.T) {
	service := NewROIService(nil, nil, nil, nil, 0)
	if _, err := service.Analyze(context.Background(), models.AnalysisRequest{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	if _, _, err := service.History(context.Background(), models.HistoryRequest{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	_, err := service.Record(context.Background(), models.TableBusinessMetrics, nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := service.AnalyzeCorrelations(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for nil request, got %v", err)
	}
}
