package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsRepeatable(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveRunNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues(OutcomeSuccess))
	ObserveRun(-time.Second, "weird")
	assert.Equal(t, before+1, testutil.ToFloat64(pipelineRunsTotal.WithLabelValues(OutcomeSuccess)))
}

func TestStageAndActionCounters(t *testing.T) {
	before := testutil.ToFloat64(stageResultsTotal.WithLabelValues("summary", SourceFallback))
	ObserveStageResult("summary", SourceFallback)
	assert.Equal(t, before+1, testutil.ToFloat64(stageResultsTotal.WithLabelValues("summary", SourceFallback)))

	ObserveAction("monitor", "success")
	assert.GreaterOrEqual(t, testutil.ToFloat64(actionsTotal.WithLabelValues("monitor", "success")), 1.0)

	SetCacheEntries(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(cacheEntries))
}
