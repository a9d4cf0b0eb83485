package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/autoops/internal/metrics"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

// Aggregate error kinds surfaced in RunError.Kind.
const (
	ErrorKindIngestion = "Failed to fetch metrics"
	ErrorKindSummary   = "Failed to summarize metrics"
	ErrorKindDecision  = "Failed to decide action"
)

// Ingestor produces the run's metrics snapshot; raw may be nil.
type Ingestor interface {
	Ingest(ctx context.Context, raw map[string]any) (models.MetricsSnapshot, error)
}

// Summarizer is the summary stage.
type Summarizer interface {
	Summarize(ctx context.Context, snapshot models.MetricsSnapshot) (string, error)
}

// Decider is the decision stage.
type Decider interface {
	Decide(ctx context.Context, summary string, snapshot models.MetricsSnapshot) (models.Decision, error)
}

// ActionExecutor is the execution stage.
type ActionExecutor interface {
	Execute(ctx context.Context, decision models.Decision) models.ActionResult
}

// Pipeline runs ingestion, summary, decision and execution strictly in order.
type Pipeline struct {
	logger    *slog.Logger
	ingestor  Ingestor
	summarize Summarizer
	decide    Decider
	execute   ActionExecutor
	now       func() time.Time
}

// NewPipeline constructs the four-stage pipeline.
func NewPipeline(logger *slog.Logger, ingestor Ingestor, summarizer Summarizer, decider Decider, executor ActionExecutor) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		ingestor:  ingestor,
		summarize: summarizer,
		decide:    decider,
		execute:   executor,
		now:       time.Now,
	}
}

// Run executes one flow. raw overrides the configured metrics source when non-nil.
// Every failure is returned as a *models.RunError.
func (p *Pipeline) Run(ctx context.Context, raw map[string]any) (models.RunResult, error) {
	start := p.now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	fail := func(kind string, err error) (models.RunResult, error) {
		elapsed := p.now().Sub(start)
		metrics.ObserveRun(elapsed, metrics.OutcomeError)
		logger.Error("pipeline run failed", "kind", kind, "error", err)
		return models.RunResult{}, models.NewRunError(kind, err, utils.FormatTimestamp(p.now()))
	}

	if p.ingestor == nil || p.summarize == nil || p.decide == nil || p.execute == nil {
		return fail(ErrorKindIngestion, errors.New("pipeline not fully configured"))
	}

	snapshot, err := p.ingestor.Ingest(ctx, raw)
	if err != nil {
		if !errors.Is(err, utils.ErrIngestionFailure) {
			err = fmt.Errorf("%w: %w", utils.ErrIngestionFailure, err)
		}
		return fail(ErrorKindIngestion, err)
	}
	logger.Debug("metrics ingested", "source", snapshot.Source(), "fields", snapshot.ValueNames())

	summary, err := p.summarize.Summarize(ctx, snapshot)
	if err != nil {
		return fail(ErrorKindSummary, err)
	}

	decision, err := p.decide.Decide(ctx, summary, snapshot)
	if err != nil {
		return fail(ErrorKindDecision, err)
	}

	result := p.execute.Execute(ctx, decision)
	elapsed := p.now().Sub(start)
	metrics.ObserveRun(elapsed, metrics.OutcomeSuccess)
	logger.Info("pipeline run completed",
		"action", decision.Decision,
		"status", result.Status,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return models.RunResult{
		RunID:         runID,
		Metrics:       snapshot,
		Summary:       summary,
		Decision:      decision,
		ActionResult:  result,
		ExecutionTime: elapsed,
	}, nil
}
