package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/repo"
	"github.com/miradorstack/autoops/internal/utils"
)

// Ingestor is the first pipeline stage.
type Ingestor struct {
	primary  MetricsProvider
	fallback MetricsProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewIngestor uses primary first and fallback when primary fails. Either may be
// nil; a nil fallback means primary failures are terminal.
func NewIngestor(primary, fallback MetricsProvider, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{primary: primary, fallback: fallback, logger: logger, now: time.Now}
}

// Ingest normalizes raw when supplied, otherwise queries the configured providers.
func (i *Ingestor) Ingest(ctx context.Context, raw map[string]any) (models.MetricsSnapshot, error) {
	if raw != nil {
		return Normalize(raw, i.now()), nil
	}

	var primaryErr error
	if i.primary != nil {
		snap, err := i.primary.GetMetrics(ctx)
		if err == nil {
			return snap, nil
		}
		primaryErr = err
		i.logger.Warn("metrics provider failed", "provider", i.primary.Name(), "error", err)
	}

	if i.fallback == nil {
		if primaryErr == nil {
			primaryErr = fmt.Errorf("no metrics provider configured")
		}
		return models.MetricsSnapshot{}, utils.NewAppError("ingest.Ingest", "metrics unavailable", fmt.Errorf("%w: %w", utils.ErrIngestionFailure, primaryErr))
	}

	snap, err := i.fallback.GetMetrics(ctx)
	if err != nil {
		cause := err
		if primaryErr != nil {
			cause = fmt.Errorf("%s: %v; %s: %w", i.primary.Name(), primaryErr, i.fallback.Name(), err)
		}
		return models.MetricsSnapshot{}, utils.NewAppError("ingest.Ingest", "metrics unavailable", fmt.Errorf("%w: %w", utils.ErrIngestionFailure, cause))
	}
	if primaryErr != nil {
		snap = snap.WithError(primaryErr.Error())
	}
	return snap, nil
}

// FromConfig wires the provider chain selected by monitoring.type: the named
// integration, or the demo generator when none is named and demo mode is on,
// with local telemetry as the fallback.
func FromConfig(cfg *config.Config, health repo.HealthStore, logger *slog.Logger) (*Ingestor, error) {
	mon := cfg.Monitoring
	local := NewLocalProvider(mon.Local.ProcPath, logger)

	var primary MetricsProvider
	switch strings.ToLower(mon.Type) {
	case SourcePrometheus:
		client, err := repo.NewPrometheusClient(mon.Prometheus.URL, logger)
		if err != nil {
			return nil, err
		}
		primary = NewPrometheusProvider(client, mon.Prometheus.Queries, logger)
	case SourceDatadog:
		client := repo.NewDatadogClient(mon.Datadog.BaseURL, mon.Datadog.APIKey, mon.Datadog.AppKey, mon.Timeout)
		primary = NewDatadogProvider(client, mon.Datadog.Queries, logger)
	case SourceWebhook:
		client := repo.NewWebhookClient(mon.Webhook.URL, mon.Webhook.Method, mon.Webhook.Token, mon.Webhook.Headers, mon.Timeout)
		primary = NewWebhookProvider(client)
	case SourceLocal:
		return NewIngestor(local, nil, logger), nil
	case "":
		if cfg.Demo.Enabled {
			primary = NewDemoProvider(health, cfg.Demo.RecoveryWindow, logger)
		}
	default:
		return nil, fmt.Errorf("unknown monitoring type %q", mon.Type)
	}
	if primary == nil {
		return NewIngestor(local, nil, logger), nil
	}
	return NewIngestor(primary, local, logger), nil
}
