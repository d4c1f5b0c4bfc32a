package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// DefaultWindow is the reporting window used when a request does not set one.
const DefaultWindow = 30 * 24 * time.Hour

var (
	// ErrFetch marks a failed read from the metric store. Callers may retry the whole run.
	ErrFetch = errors.New("metric store fetch failed")
	// ErrPersist marks a rejected batch append. Nothing computed in the run is returned.
	ErrPersist = errors.New("metric store append failed")
)

// MetricStore defines the warehouse operations required by the pipeline.
type MetricStore interface {
	Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error)
	Append(ctx context.Context, table models.Table, rows []models.Row) error
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithTracer overrides the tracer used for run and stage spans.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithRunIDs overrides run identifier generation.
func WithRunIDs(next func() string) PipelineOption {
	return func(p *Pipeline) {
		if next != nil {
			p.newRunID = next
		}
	}
}

// Pipeline runs fetch -> correlate -> score -> assemble -> persist for one reporting window.
type Pipeline struct {
	logger     *slog.Logger
	store      MetricStore
	correlator *CorrelationEngine
	assembler  *InsightAssembler
	rules      *RuleEngine
	tracer     trace.Tracer
	newRunID   func() string
}

// NewPipeline constructs a correlation pipeline bound to the given store.
func NewPipeline(
	logger *slog.Logger,
	store MetricStore,
	rules *RuleEngine,
	correlator *CorrelationEngine,
	assembler *InsightAssembler,
	opts ...PipelineOption,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if correlator == nil {
		correlator = NewCorrelationEngine(logger)
	}
	if assembler == nil {
		assembler = NewInsightAssembler(nil)
	}

	p := &Pipeline{
		logger:     logger,
		store:      store,
		correlator: correlator,
		assembler:  assembler,
		rules:      rules,
		tracer:     otel.Tracer("mirador-roi/engine"),
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one correlation run. The caller receives either every insight of the run or an error.
func (p *Pipeline) Run(ctx context.Context, req models.AnalysisRequest) (report models.AnalysisReport, err error) {
	if p.store == nil {
		return models.AnalysisReport{}, fmt.Errorf("metric store not configured")
	}

	window := req.Window
	if window <= 0 {
		window = DefaultWindow
	}
	runID := p.newRunID()

	ctx, span := p.tracer.Start(ctx, "roi-pipeline-run")
	defer span.End()
	span.SetAttributes(
		attribute.String("roi.run_id", runID),
		attribute.Float64("roi.window_hours", window.Hours()),
		attribute.Int("roi.metric_filter", len(req.Metrics)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline run failed")
			return
		}
		span.SetStatus(codes.Ok, "pipeline run completed")
	}()

	logger := p.logger.With(slog.String("run_id", runID))

	business, err := p.fetch(ctx, models.TableBusinessMetrics, window)
	if err != nil {
		return models.AnalysisReport{}, err
	}
	business = FilterMetrics(business, req.Metrics)

	infra, err := p.fetch(ctx, models.TableInfrastructureMetrics, window)
	if err != nil {
		return models.AnalysisReport{}, err
	}

	business, droppedBusiness := Sanitize(business)
	infra, droppedInfra := SanitizeCosts(infra)
	if dropped := droppedBusiness + droppedInfra; dropped > 0 {
		logger.Warn("dropped malformed observations", slog.Int("business", droppedBusiness), slog.Int("infrastructure", droppedInfra))
	}

	_, corrSpan := p.tracer.Start(ctx, "roi-pipeline-correlate")
	records, skipped := p.correlator.correlate(business, infra)
	scored := ScoreAll(records)
	corrSpan.SetAttributes(
		attribute.Int("roi.business_observations", len(business)),
		attribute.Int("roi.infrastructure_observations", len(infra)),
		attribute.Int("roi.records", len(records)),
		attribute.Int("roi.skipped_metrics", skipped),
	)
	corrSpan.End()

	insights, rows, runAt, err := p.assembler.Assemble(scored)
	if err != nil {
		return models.AnalysisReport{}, fmt.Errorf("assemble insights: %w", err)
	}

	if err := p.persist(ctx, rows); err != nil {
		return models.AnalysisReport{}, err
	}

	recommendations := p.rules.Recommend(insights)
	if len(recommendations) == 0 {
		recommendations = DefaultRecommendations(insights)
	}

	logger.Info("correlation run completed",
		slog.Int("insights", len(insights)),
		slog.Int("skipped_metrics", skipped),
		slog.Duration("window", window),
	)

	return models.AnalysisReport{
		RunID:           runID,
		RunAt:           runAt,
		Insights:        insights,
		Trends:          MetricTrends(business),
		Summary:         Summarize(business, infra),
		KPITotals:       KPITotals(business, req.CustomKPIs),
		Recommendations: recommendations,
		Stats: models.RunStats{
			BusinessObservations:       len(business),
			InfrastructureObservations: len(infra),
			DroppedObservations:        droppedBusiness + droppedInfra,
			SkippedMetrics:             skipped,
		},
	}, nil
}

func (p *Pipeline) fetch(ctx context.Context, table models.Table, window time.Duration) ([]models.Observation, error) {
	ctx, span := p.tracer.Start(ctx, "roi-pipeline-fetch", trace.WithAttributes(attribute.String("roi.table", string(table))))
	defer span.End()

	observations, err := p.store.Fetch(ctx, table, window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, table, err)
	}
	span.SetAttributes(attribute.Int("roi.observations", len(observations)))
	return observations, nil
}

func (p *Pipeline) persist(ctx context.Context, rows []models.CorrelationRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "roi-pipeline-persist", trace.WithAttributes(attribute.Int("roi.rows", len(rows))))
	defer span.End()

	batch := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, row.Row())
	}
	if err := p.store.Append(ctx, models.TableROICorrelations, batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return fmt.Errorf("%w: %s: %w", ErrPersist, models.TableROICorrelations, err)
	}
	return nil
}
