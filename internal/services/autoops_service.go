package services

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/autoops/internal/api"
	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/metrics"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/repo"
	"github.com/miradorstack/autoops/internal/utils"
)

const cacheClearedMessage = "Cache cleared"

// Runner executes one pipeline flow.
type Runner interface {
	Run(ctx context.Context, raw map[string]any) (models.RunResult, error)
}

// AutoOpsService implements the gRPC AutoOps service and is also driven
// in-process by the CLI.
type AutoOpsService struct {
	api.UnimplementedAutoOpsServer

	logger    *slog.Logger
	pipeline  Runner
	results   *cache.ResultCache
	health    repo.HealthStore
	latencies *utils.LatencyTracker
}

// NewAutoOpsService constructs the service facade.
func NewAutoOpsService(logger *slog.Logger, pipeline Runner, results *cache.ResultCache, health repo.HealthStore) *AutoOpsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoOpsService{
		logger:    logger,
		pipeline:  pipeline,
		results:   results,
		health:    health,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Run executes one flow; raw overrides the configured metrics source when non-nil.
func (s *AutoOpsService) Run(ctx context.Context, raw map[string]any) (models.RunResult, error) {
	if s.pipeline == nil {
		return models.RunResult{}, utils.NewAppError("services.Run", "pipeline not configured", nil)
	}

	result, err := s.pipeline.Run(ctx, raw)
	if s.results != nil {
		metrics.SetCacheEntries(s.results.Len())
	}
	if err != nil {
		return models.RunResult{}, err
	}

	s.latencies.Observe(result.ExecutionTime)
	if total := s.latencies.Total(); total%20 == 0 {
		s.logger.Info("run latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", s.latencies.Count()),
		)
	}
	return result, nil
}

// Clear empties the result cache. Calling it on an empty cache is a no-op.
func (s *AutoOpsService) Clear() {
	if s.results == nil {
		return
	}
	s.results.Clear()
	metrics.SetCacheEntries(0)
	s.logger.Info("result cache cleared")
}

// Health returns the shared health document; ok is false when none exists.
func (s *AutoOpsService) Health(ctx context.Context) (models.HealthStatus, bool, error) {
	if s.health == nil {
		return models.HealthStatus{}, false, nil
	}
	return s.health.Load(ctx)
}

// LatencyP95 returns the current p95 run latency.
func (s *AutoOpsService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

// RunFlow handles the RunFlow RPC.
func (s *AutoOpsService) RunFlow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := api.FromProtoRunRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.Run(ctx, raw)
	if err != nil {
		return nil, api.RunErrorStatus(err)
	}

	resp, err := api.ToProtoRunResult(result)
	if err != nil {
		s.logger.Error("encode run result failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode run result")
	}
	return resp, nil
}

// ClearCache handles the ClearCache RPC.
func (s *AutoOpsService) ClearCache(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Clear()
	return api.ToProtoMessage(cacheClearedMessage), nil
}

// HealthCheck handles the HealthCheck RPC.
func (s *AutoOpsService) HealthCheck(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	doc, ok, err := s.Health(ctx)
	if err != nil {
		s.logger.Error("load health status failed", slog.Any("error", err))
		return nil, status.Error(codes.Unavailable, "failed to load health status")
	}
	resp, err := api.ToProtoHealth(doc, ok)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode health status")
	}
	return resp, nil
}
