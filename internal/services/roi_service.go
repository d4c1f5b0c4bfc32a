package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-roi/internal/api"
	"github.com/miradorstack/mirador-roi/internal/engine"
	"github.com/miradorstack/mirador-roi/internal/extractors"
	"github.com/miradorstack/mirador-roi/internal/grpc/roiv1"
	"github.com/miradorstack/mirador-roi/internal/history"
	"github.com/miradorstack/mirador-roi/internal/metrics"
	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// ObservationSink appends validated observation rows.
type ObservationSink interface {
	Append(ctx context.Context, table models.Table, rows []models.Row) error
}

// ROIService implements the gRPC ROIEngine service and the HTTP gateway backend.
type ROIService struct {
	roiv1.UnimplementedROIEngineServer

	logger        *slog.Logger
	pipeline      *engine.Pipeline
	sink          ObservationSink
	history       *history.Summarizer
	extractor     *extractors.ObservationExtractor
	defaultWindow time.Duration
	latencies     *utils.LatencyTracker
	runs          atomic.Int64
}

var (
	_ roiv1.ROIEngineServer = (*ROIService)(nil)
	_ api.Backend           = (*ROIService)(nil)
)

// NewROIService constructs the ROI service facade. Any collaborator may be nil; the
// operations depending on it then fail with FailedPrecondition.
func NewROIService(logger *slog.Logger, pipeline *engine.Pipeline, sink ObservationSink, summarizer *history.Summarizer, defaultWindow time.Duration) *ROIService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultWindow <= 0 {
		defaultWindow = engine.DefaultWindow
	}
	return &ROIService{
		logger:        logger,
		pipeline:      pipeline,
		sink:          sink,
		history:       summarizer,
		extractor:     extractors.NewObservationExtractor(),
		defaultWindow: defaultWindow,
		latencies:     utils.NewLatencyTracker(1024),
	}
}

// Analyze runs one correlation pipeline pass.
func (s *ROIService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisReport, error) {
	if s.pipeline == nil {
		return models.AnalysisReport{}, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}
	if req.Window <= 0 {
		req.Window = s.defaultWindow
	}

	start := time.Now()
	report, err := s.pipeline.Run(ctx, req)
	duration := time.Since(start)
	if err != nil {
		outcome, code := classify(err)
		metrics.ObserveRun(duration, outcome)
		s.logger.Error("correlation run failed", slog.String("outcome", outcome), slog.Any("error", err))
		return models.AnalysisReport{}, status.Error(code, fmt.Sprintf("correlation run failed: %v", err))
	}

	metrics.ObserveRun(duration, metrics.OutcomeSuccess)
	metrics.AddInsights(len(report.Insights))
	metrics.AddSkippedMetrics(report.Stats.SkippedMetrics)
	metrics.AddRejectedObservations("fetch", report.Stats.DroppedObservations)

	s.latencies.Observe(duration)
	if runs := s.runs.Add(1); runs%20 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("correlation run latency",
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Int("samples", summary.Count),
		)
	}
	return report, nil
}

// Record validates raw observations and appends them to table in one batch. Any invalid
// observation rejects the whole batch.
func (s *ROIService) Record(ctx context.Context, table models.Table, raw []extractors.RawObservation) (int, error) {
	if !table.ObservationTable() {
		return 0, status.Errorf(codes.InvalidArgument, "table must be %s or %s", models.TableBusinessMetrics, models.TableInfrastructureMetrics)
	}
	if len(raw) == 0 {
		return 0, status.Error(codes.InvalidArgument, "observations are required")
	}
	if s.sink == nil {
		return 0, status.Error(codes.FailedPrecondition, "metric store not configured")
	}

	observations, rejections := s.extractor.Extract(raw)
	if len(rejections) > 0 {
		metrics.AddRejectedObservations("ingest", len(rejections))
		return 0, status.Error(codes.InvalidArgument, extractors.Summarize(rejections))
	}

	rows := make([]models.Row, 0, len(observations))
	for _, obs := range observations {
		rows = append(rows, obs.Row(table))
	}
	if err := s.sink.Append(ctx, table, rows); err != nil {
		s.logger.Error("append observations failed", slog.String("table", string(table)), slog.Any("error", err))
		return 0, status.Error(codes.Internal, "failed to persist observations")
	}

	s.logger.Debug("observations recorded", slog.String("table", string(table)), slog.Int("rows", len(rows)))
	return len(rows), nil
}

// History summarises persisted correlations per workload. It returns the window actually used.
func (s *ROIService) History(ctx context.Context, req models.HistoryRequest) (time.Duration, []models.WorkloadSummary, error) {
	if s.history == nil {
		return 0, nil, status.Error(codes.FailedPrecondition, "correlation history not configured")
	}
	window := req.Window
	if window <= 0 {
		window = s.defaultWindow
	}

	workloads, err := s.history.Workloads(ctx, window)
	if err != nil {
		s.logger.Error("workload history failed", slog.Any("error", err))
		return 0, nil, status.Error(codes.Unavailable, "failed to read correlation history")
	}
	return window, workloads, nil
}

// AnalyzeCorrelations implements roiv1.ROIEngineServer.
func (s *ROIService) AnalyzeCorrelations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body api.AnalyzeRequest
	if err := api.FromStruct(in, &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := body.ToDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return encode(report)
}

// RecordObservations implements roiv1.ROIEngineServer.
func (s *ROIService) RecordObservations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body api.RecordRequest
	if err := api.FromStruct(in, &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	accepted, err := s.Record(ctx, models.Table(body.Table), body.Observations)
	if err != nil {
		return nil, err
	}
	return encode(api.RecordResponse{Table: body.Table, Accepted: accepted})
}

// GetWorkloadHistory implements roiv1.ROIEngineServer.
func (s *ROIService) GetWorkloadHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body api.HistoryRequest
	if err := api.FromStruct(in, &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := body.ToDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	window, workloads, err := s.History(ctx, req)
	if err != nil {
		return nil, err
	}
	return encode(api.NewHistoryResponse(window, workloads))
}

// LatencyP95 returns the current p95 run latency.
func (s *ROIService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func classify(err error) (string, codes.Code) {
	switch {
	case errors.Is(err, engine.ErrFetch):
		return metrics.OutcomeFetchError, codes.Unavailable
	case errors.Is(err, engine.ErrPersist):
		return metrics.OutcomePersistError, codes.Internal
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeError, codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeError, codes.DeadlineExceeded
	default:
		return metrics.OutcomeError, codes.Internal
	}
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
