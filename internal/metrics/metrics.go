package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed pipeline runs.
	OutcomeSuccess = "success"
	// OutcomeError labels runs that ended in an aggregate error.
	OutcomeError = "error"
)

// Stage result sources.
const (
	SourceCache    = "cache"
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoops",
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	pipelineRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "autoops",
			Name:      "pipeline_run_seconds",
			Help:      "End-to-end pipeline latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	stageResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoops",
			Name:      "stage_results_total",
			Help:      "Summary and decision results by where they came from.",
		},
		[]string{"stage", "source"},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoops",
			Name:      "provider_calls_total",
			Help:      "Reasoning provider calls by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoops",
			Name:      "actions_total",
			Help:      "Executed remediation actions by action and status.",
		},
		[]string{"action", "status"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "autoops",
			Name:      "cache_entries",
			Help:      "Live entries in the result cache.",
		},
	)
)

// Register attaches autoops collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pipelineRunsTotal,
		pipelineRunSeconds,
		stageResultsTotal,
		providerCallsTotal,
		actionsTotal,
		cacheEntries,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a pipeline duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	pipelineRunsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	pipelineRunSeconds.Observe(duration.Seconds())
}

// ObserveStageResult counts where a stage's answer came from.
func ObserveStageResult(stage, source string) {
	stageResultsTotal.WithLabelValues(stage, source).Inc()
}

// ObserveProviderCall counts a reasoning call; outcome is "ok" or an error kind.
func ObserveProviderCall(stage, outcome string) {
	providerCallsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveAction counts one execution.
func ObserveAction(action, status string) {
	actionsTotal.WithLabelValues(action, status).Inc()
}

// SetCacheEntries publishes the current cache size.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}
