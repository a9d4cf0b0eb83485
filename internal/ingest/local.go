package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/prometheus/procfs"

	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

// LocalProvider reads host telemetry from a procfs mount.
type LocalProvider struct {
	procPath string
	logger   *slog.Logger
	now      func() time.Time
}

// NewLocalProvider reads from procPath, /proc when empty.
func NewLocalProvider(procPath string, logger *slog.Logger) *LocalProvider {
	if procPath == "" {
		procPath = procfs.DefaultMountPoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalProvider{procPath: procPath, logger: logger, now: time.Now}
}

// Name implements MetricsProvider.
func (l *LocalProvider) Name() string { return SourceLocal }

// GetMetrics collects whatever procfs exposes. Individual read failures are
// logged and skipped; the call fails only when nothing could be read.
func (l *LocalProvider) GetMetrics(_ context.Context) (models.MetricsSnapshot, error) {
	fs, err := procfs.NewFS(l.procPath)
	if err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("open procfs %s: %w", l.procPath, err)
	}

	now := l.now()
	values := make(map[string]float64, 4)
	var errs []error

	cpus := runtime.NumCPU()
	stat, statErr := fs.Stat()
	if statErr != nil {
		errs = append(errs, fmt.Errorf("stat: %w", statErr))
	} else {
		if n := len(stat.CPU); n > 0 {
			cpus = n
		}
		if stat.BootTime > 0 {
			boot := time.Unix(int64(stat.BootTime), 0)
			values[models.FieldUptimeSeconds] = math.Max(0, math.Trunc(now.Sub(boot).Seconds()))
		}
	}

	if load, err := fs.LoadAvg(); err != nil {
		errs = append(errs, fmt.Errorf("loadavg: %w", err))
	} else if cpus > 0 {
		values[models.FieldCPULoad] = round2(load.Load1 / float64(cpus) * 100)
	}

	if mem, err := fs.Meminfo(); err != nil {
		errs = append(errs, fmt.Errorf("meminfo: %w", err))
	} else if mem.MemTotal != nil && *mem.MemTotal > 0 {
		available := uint64(0)
		switch {
		case mem.MemAvailable != nil:
			available = *mem.MemAvailable
		case mem.MemFree != nil:
			available = *mem.MemFree
		}
		used := float64(*mem.MemTotal) - float64(available)
		values[models.FieldMemoryUsage] = round2(math.Max(0, used) / float64(*mem.MemTotal) * 100)
	}

	if procs, err := fs.AllProcs(); err != nil {
		errs = append(errs, fmt.Errorf("procs: %w", err))
	} else {
		values[models.FieldProcessCount] = float64(len(procs))
	}

	if len(values) == 0 {
		return models.MetricsSnapshot{}, fmt.Errorf("local telemetry unavailable: %w", errors.Join(errs...))
	}
	if len(errs) > 0 {
		l.logger.Debug("partial local telemetry", "proc", l.procPath, "error", errors.Join(errs...))
	}
	return models.NewSnapshot(utils.FormatTimestamp(now), values, nil).WithSource(SourceLocal), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
