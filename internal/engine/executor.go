package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/autoops/internal/metrics"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/repo"
	"github.com/miradorstack/autoops/internal/utils"
)

// ExecutorOptions control remediation side effects and simulated latency.
type ExecutorOptions struct {
	DryRun bool
	// Delay is applied to every action and again to rollback and scale.
	Delay time.Duration
	// RestartDelay is the extra time a restart takes.
	RestartDelay time.Duration
}

// Executor maps a decision to its remediation and records what happened.
type Executor struct {
	statusLog *repo.StatusLog
	health    repo.HealthStore
	opts      ExecutorOptions
	logger    *slog.Logger
	now       func() time.Time
}

// NewExecutor writes fixes to statusLog and marks them in health.
func NewExecutor(statusLog *repo.StatusLog, health repo.HealthStore, opts ExecutorOptions, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{statusLog: statusLog, health: health, opts: opts, logger: logger, now: time.Now}
}

// Execute never returns an error: failures become a result with status error
// and the log written up to the failure point.
func (e *Executor) Execute(ctx context.Context, decision models.Decision) models.ActionResult {
	var log strings.Builder
	fmt.Fprintf(&log, "Executing action: %s. Reason: %s", decision.Decision, decision.Reason)

	err := e.dispatch(ctx, decision, &log)
	status := models.ActionStatusSuccess
	if err != nil {
		status = models.ActionStatusError
		fmt.Fprintf(&log, "\nExecution failed: %v", err)
		e.logger.Warn("action failed", "action", decision.Decision, "error", err)
	} else {
		e.logger.Info("action executed", "action", decision.Decision, "dry_run", e.opts.DryRun)
	}
	metrics.ObserveAction(string(decision.Decision), string(status))

	return models.ActionResult{
		Status:    status,
		ActionLog: log.String(),
		Timestamp: utils.FormatTimestamp(e.now()),
	}
}

func (e *Executor) dispatch(ctx context.Context, decision models.Decision, log *strings.Builder) error {
	if err := sleep(ctx, e.opts.Delay); err != nil {
		return err
	}

	switch decision.Decision {
	case models.ActionFixCode, models.ActionOptimizePerformance:
		return e.applyFix(ctx, decision, log)
	case models.ActionRollback:
		if err := sleep(ctx, e.opts.Delay); err != nil {
			return err
		}
		log.WriteString("\nInitiating rollback sequence... (Simulated)\nRollback to previous stable version complete.")
	case models.ActionScaleUp, models.ActionScaleResources:
		if err := sleep(ctx, e.opts.Delay); err != nil {
			return err
		}
		log.WriteString("\nScaling infrastructure... (Simulated)\nAdded 2 additional instances to handle load.")
	case models.ActionRestartService:
		if err := sleep(ctx, e.opts.RestartDelay); err != nil {
			return err
		}
		log.WriteString("\nRestarting service... (Simulated)\nService uptime reset. Memory cleared.")
	case models.ActionMonitor:
		log.WriteString("\nSystem healthy. Continued monitoring.")
	default:
		fmt.Fprintf(log, "\nUnknown action: %s. No operation performed.", decision.Decision)
	}
	return nil
}

func (e *Executor) applyFix(ctx context.Context, decision models.Decision, log *strings.Builder) error {
	target := "status log"
	if e.statusLog != nil {
		target = e.statusLog.Path()
	}
	if e.opts.DryRun {
		fmt.Fprintf(log, "\n[DRY RUN] Would modify %s to record: %s", target, decision.Decision)
		return nil
	}
	if e.statusLog == nil {
		return utils.NewAppError("engine.applyFix", "no status log configured", utils.ErrExecutionFailure)
	}

	ts := utils.FormatTimestamp(e.now())
	entry := fmt.Sprintf("\n[%s] AUTO-FIX APPLIED: %s triggered. %s", ts, decision.Decision, decision.Reason)
	if err := e.statusLog.Append(entry); err != nil {
		return utils.NewAppError("engine.applyFix", "file modification failed", fmt.Errorf("%w: %w", utils.ErrExecutionFailure, err))
	}
	if e.health != nil {
		status := models.HealthStatus{Status: models.HealthStatusHealthy, LastFixTimestamp: ts, FixType: string(decision.Decision)}
		if err := e.health.Save(ctx, status); err != nil {
			return utils.NewAppError("engine.applyFix", "health update failed", fmt.Errorf("%w: %w", utils.ErrExecutionFailure, err))
		}
	}
	fmt.Fprintf(log, "\nSuccessfully modified %s to record the fix.", target)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
