package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/repo"
	"github.com/miradorstack/autoops/internal/utils"
)

var (
	degradedValues = map[string]float64{
		models.FieldErrors:                42,
		models.FieldLatencyMs:             1800,
		models.FieldConversionDropPercent: 12,
		models.FieldActiveUsers:           1250,
		models.FieldCPULoad:               45,
		models.FieldMemoryUsage:           55,
		models.FieldProcessCount:          180,
	}
	healthyValues = map[string]float64{
		models.FieldErrors:                0,
		models.FieldLatencyMs:             120,
		models.FieldConversionDropPercent: 0,
		models.FieldActiveUsers:           1250,
		models.FieldCPULoad:               22,
		models.FieldMemoryUsage:           41,
		models.FieldProcessCount:          160,
	}
)

// DemoProvider simulates an incident that stays open until a fix is recorded
// in the health store, then reports a recovered system.
type DemoProvider struct {
	store          repo.HealthStore
	recoveryWindow time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewDemoProvider reads recovery state from store. A zero window keeps a
// recorded fix effective forever.
func NewDemoProvider(store repo.HealthStore, recoveryWindow time.Duration, logger *slog.Logger) *DemoProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemoProvider{store: store, recoveryWindow: recoveryWindow, logger: logger, now: time.Now}
}

// Name implements MetricsProvider.
func (d *DemoProvider) Name() string { return SourceDemo }

// GetMetrics never fails; an unreadable health store reads as "not fixed".
func (d *DemoProvider) GetMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	now := d.now()
	values := degradedValues
	if d.recovered(ctx, now) {
		values = healthyValues
	}
	return models.NewSnapshot(utils.FormatTimestamp(now), values, nil).WithSource(SourceDemo), nil
}

func (d *DemoProvider) recovered(ctx context.Context, now time.Time) bool {
	if d.store == nil {
		return false
	}
	status, ok, err := d.store.Load(ctx)
	if err != nil {
		d.logger.Warn("demo health store unreadable", "error", err)
		return false
	}
	if !ok || status.Status != models.HealthStatusHealthy {
		return false
	}
	if d.recoveryWindow <= 0 {
		return true
	}
	fixedAt, err := utils.ParseRFC3339(status.LastFixTimestamp)
	if err != nil {
		return false
	}
	return now.Sub(fixedAt) <= d.recoveryWindow
}
