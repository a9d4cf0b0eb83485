package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/autoops/internal/api"
	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

type runnerStub struct {
	calls int
	raw   map[string]any
	err   error
}

func (r *runnerStub) Run(_ context.Context, raw map[string]any) (models.RunResult, error) {
	r.calls++
	r.raw = raw
	if r.err != nil {
		return models.RunResult{}, r.err
	}
	return models.RunResult{
		RunID:         fmt.Sprintf("run-%d", r.calls),
		Metrics:       models.NewSnapshot("ts", map[string]float64{models.FieldErrors: 0}, nil),
		Summary:       "System metrics are within healthy limits.",
		Decision:      models.Decision{Decision: models.ActionMonitor, Reason: "ok"},
		ActionResult:  models.ActionResult{Status: models.ActionStatusSuccess, ActionLog: "log", Timestamp: "ts"},
		ExecutionTime: time.Duration(r.calls) * time.Millisecond,
	}, nil
}

type healthStub struct {
	doc models.HealthStatus
	ok  bool
	err error
}

func (h *healthStub) Load(context.Context) (models.HealthStatus, bool, error) {
	return h.doc, h.ok, h.err
}

func (h *healthStub) Save(_ context.Context, doc models.HealthStatus) error {
	h.doc, h.ok = doc, true
	return nil
}

func TestRunFlowPassesMetricsOverride(t *testing.T) {
	runner := &runnerStub{}
	service := NewAutoOpsService(nil, runner, nil, nil)

	req, err := structpb.NewStruct(map[string]any{"metrics": map[string]any{"errors": 3}})
	require.NoError(t, err)
	resp, err := service.RunFlow(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, float64(3), runner.raw["errors"], "override must reach the pipeline")

	fields := resp.GetFields()
	assert.Equal(t, "run-1", fields["runId"].GetStringValue())
	decision := fields["decision"].GetStructValue().GetFields()
	assert.Equal(t, string(models.ActionMonitor), decision["decision"].GetStringValue())
	assert.Equal(t, "1ms", fields["executionTime"].GetStringValue())
}

func TestRunFlowRejectsNonObjectMetrics(t *testing.T) {
	service := NewAutoOpsService(nil, &runnerStub{}, nil, nil)
	req, err := structpb.NewStruct(map[string]any{"metrics": "nope"})
	require.NoError(t, err)

	_, err = service.RunFlow(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRunFlowMapsIngestionFailure(t *testing.T) {
	cause := fmt.Errorf("%w: no source", utils.ErrIngestionFailure)
	runner := &runnerStub{err: models.NewRunError("Failed to fetch metrics", cause, "2026-01-01T00:00:00.000Z")}
	service := NewAutoOpsService(nil, runner, nil, nil)

	_, err := service.RunFlow(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	runErr, ok := api.RunErrorFromStatus(err)
	require.True(t, ok, "expected run error detail on status")
	assert.Equal(t, "Failed to fetch metrics", runErr.Kind)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", runErr.Timestamp)
}

func TestRunFlowMapsOtherFailuresToInternal(t *testing.T) {
	runner := &runnerStub{err: models.NewRunError("Failed to decide action", errors.New("boom"), "ts")}
	service := NewAutoOpsService(nil, runner, nil, nil)

	_, err := service.RunFlow(context.Background(), nil)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRunTracksLatency(t *testing.T) {
	runner := &runnerStub{}
	service := NewAutoOpsService(nil, runner, nil, nil)
	for i := 0; i < 40; i++ {
		_, err := service.Run(context.Background(), nil)
		require.NoError(t, err, "run %d", i)
	}
	assert.GreaterOrEqual(t, service.LatencyP95(), 30*time.Millisecond)
}

func TestRunWithoutPipeline(t *testing.T) {
	service := NewAutoOpsService(nil, nil, nil, nil)
	_, err := service.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestClearCacheIsIdempotent(t *testing.T) {
	results := cache.NewResultCache(time.Minute, 10)
	results.Set("summary:a", "x")
	service := NewAutoOpsService(nil, &runnerStub{}, results, nil)

	for i := 0; i < 2; i++ {
		resp, err := service.ClearCache(context.Background(), &emptypb.Empty{})
		require.NoError(t, err)
		assert.Equal(t, "Cache cleared", resp.GetFields()["message"].GetStringValue())
	}
	assert.Zero(t, results.Len())
}

func TestHealthCheck(t *testing.T) {
	store := &healthStub{}
	service := NewAutoOpsService(nil, &runnerStub{}, nil, store)

	resp, err := service.HealthCheck(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "unknown", resp.GetFields()["status"].GetStringValue(), "no fix applied yet")

	store.doc, store.ok = models.HealthStatus{Status: models.HealthStatusHealthy, LastFixTimestamp: "ts", FixType: "fix_code"}, true
	resp, err = service.HealthCheck(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "fix_code", resp.GetFields()["fix_type"].GetStringValue())

	store.err = errors.New("disk gone")
	_, err = service.HealthCheck(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Health.Path = filepath.Join(dir, "system-health.json")
	cfg.Stages.Execution.StatusLogPath = filepath.Join(dir, "system-status.txt")
	cfg.Stages.Execution.Delay = 0
	cfg.Stages.Execution.RestartDelay = 0
	return &cfg
}

func TestBuildRunsDemoLoopWithoutCredentials(t *testing.T) {
	cfg := testConfig(t)
	service, closeFn, err := Build(cfg, nil)
	require.NoError(t, err)
	defer closeFn()

	first, err := service.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", first.Metrics.Source())
	assert.Equal(t, models.ActionOptimizePerformance, first.Decision.Decision, "degraded demo metrics")

	data, err := os.ReadFile(cfg.Stages.Execution.StatusLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AUTO-FIX APPLIED: optimize_performance")

	second, err := service.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ActionMonitor, second.Decision.Decision, "monitor after the fix")

	doc, ok, err := service.Health(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, string(models.ActionOptimizePerformance), doc.FixType)
}

func TestBuildRejectsUnknownHealthBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Health.Backend = "etcd"
	_, _, err := Build(cfg, nil)
	assert.Error(t, err)
}

func TestBuildRejectsBrokenRulePack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rules.Path = filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(cfg.Rules.Path, []byte("rules:\n  - id: bad\n    action: reboot\n    when:\n      - metric: errors\n        above: 1\n"), 0o644))
	_, _, err := Build(cfg, nil)
	assert.Error(t, err)
}
