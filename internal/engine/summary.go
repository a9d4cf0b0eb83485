package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/reasoning"
	"github.com/miradorstack/autoops/internal/utils"
)

const (
	summaryInstruction = "You are a Site Reliability Engineer agent. Summarize the following system metrics in one concise sentence, highlighting the most critical issues."
	healthySummary     = "System metrics are within healthy limits."
)

// SummaryOptions configure the summary stage.
type SummaryOptions struct {
	Timeout         time.Duration
	FallbackEnabled bool
	Temperature     float32
	Thresholds      config.ThresholdsConfig
}

// SummaryStage turns a metrics snapshot into a one-sentence diagnosis.
type SummaryStage struct {
	*reasoner
	opts SummaryOptions
}

// NewSummaryStage wires the stage to a provider and the shared result cache.
func NewSummaryStage(provider reasoning.Provider, results *cache.ResultCache, opts SummaryOptions, logger *slog.Logger) *SummaryStage {
	return &SummaryStage{reasoner: newReasoner(StageSummary, provider, results, opts.Timeout, logger), opts: opts}
}

// Summarize returns the cached, provider-derived or fallback summary.
func (s *SummaryStage) Summarize(ctx context.Context, snapshot models.MetricsSnapshot) (string, error) {
	key := cache.GenerateKey(StageSummary, snapshot)
	if v, ok := s.cached(key); ok {
		if text, ok := v.(string); ok {
			s.hit()
			return text, nil
		}
	}

	if !s.configured() {
		s.fellBack(nil)
		return FallbackSummary(snapshot, s.opts.Thresholds), nil
	}

	v, err := s.resolve(ctx, key, func(ctx context.Context) (any, error) {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return nil, utils.NewAppError("engine.Summarize", "encode metrics", err)
		}
		return s.complete(ctx, summaryInstruction, string(payload), reasoning.Options{Temperature: s.opts.Temperature})
	})
	if err == nil {
		return v.(string), nil
	}
	if !s.opts.FallbackEnabled {
		return "", utils.NewAppError("engine.Summarize", "summary unavailable", err)
	}
	s.fellBack(err)
	return FallbackSummary(snapshot, s.opts.Thresholds), nil
}

// FallbackSummary describes every threshold the snapshot crosses in one sentence.
func FallbackSummary(m models.MetricsSnapshot, th config.ThresholdsConfig) string {
	var issues []string
	above := func(field string, limit float64) bool {
		return m.Has(field) && m.Value(field) > limit
	}
	if above(models.FieldCPULoad, th.CPUCritical) {
		issues = append(issues, fmt.Sprintf("high CPU load (%s%%)", formatNumber(m.Value(models.FieldCPULoad))))
	}
	if above(models.FieldMemoryUsage, th.MemoryCritical) {
		issues = append(issues, fmt.Sprintf("critical memory usage (%s%%)", formatNumber(m.Value(models.FieldMemoryUsage))))
	}
	if above(models.FieldProcessCount, th.ProcessCountHigh) {
		issues = append(issues, fmt.Sprintf("abnormal process count (%s)", formatNumber(m.Value(models.FieldProcessCount))))
	}
	if above(models.FieldErrors, th.ErrorsCritical) {
		issues = append(issues, fmt.Sprintf("error spike (%s errors)", formatNumber(m.Value(models.FieldErrors))))
	}
	if above(models.FieldLatencyMs, th.LatencyCriticalMs) {
		issues = append(issues, fmt.Sprintf("high latency (%sms)", formatNumber(m.Value(models.FieldLatencyMs))))
	}
	if above(models.FieldConversionDropPercent, th.ConversionDropCritical) {
		issues = append(issues, fmt.Sprintf("conversion drop (%s%%)", formatNumber(m.Value(models.FieldConversionDropPercent))))
	}

	if len(issues) == 0 {
		return healthySummary
	}
	return "System Alert: " + strings.Join(issues, ", ") + " detected. Immediate attention recommended."
}
