package ingest

import (
	"context"

	"github.com/miradorstack/autoops/internal/models"
)

// Source names reported in snapshots.
const (
	SourceDemo       = "demo"
	SourceLocal      = "local"
	SourcePrometheus = "prometheus"
	SourceDatadog    = "datadog"
	SourceWebhook    = "webhook"
	SourceCustom     = "custom"
)

// MetricsProvider fetches one snapshot from a metrics backend.
type MetricsProvider interface {
	Name() string
	GetMetrics(ctx context.Context) (models.MetricsSnapshot, error)
}
