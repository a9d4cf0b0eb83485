package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/metrics"
	"github.com/miradorstack/autoops/internal/reasoning"
	"github.com/miradorstack/autoops/internal/utils"
)

// Stage names used as cache prefixes and metric labels.
const (
	StageSummary  = "summary"
	StageDecision = "decision"
)

// reasoner holds what the summary and decision stages share: a result cache,
// a provider call bounded by a timeout, and per-key de-duplication so
// concurrent misses on one key make a single provider call.
type reasoner struct {
	stage    string
	provider reasoning.Provider
	cache    *cache.ResultCache
	flight   singleflight.Group
	timeout  time.Duration
	logger   *slog.Logger
}

func newReasoner(stage string, provider reasoning.Provider, results *cache.ResultCache, timeout time.Duration, logger *slog.Logger) *reasoner {
	if provider == nil {
		provider = reasoning.NotConfigured{}
	}
	if results == nil {
		results = cache.NewResultCache(cache.DefaultTTL, cache.DefaultMaxEntries)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &reasoner{stage: stage, provider: provider, cache: results, timeout: timeout, logger: logger}
}

func (r *reasoner) configured() bool {
	_, none := r.provider.(reasoning.NotConfigured)
	return !none
}

func (r *reasoner) cached(key string) (any, bool) {
	return r.cache.Get(key)
}

// hit records a cached value the caller accepted.
func (r *reasoner) hit() {
	r.logger.Debug("cache hit", "stage", r.stage)
	metrics.ObserveStageResult(r.stage, metrics.SourceCache)
}

// resolve runs call at most once per key among concurrent callers. call must
// return an already validated value; it is cached only on success. The shared
// call ignores cancellation of whichever caller started it and stays bounded by
// the stage timeout; each caller stops waiting when its own ctx is done.
func (r *reasoner) resolve(ctx context.Context, key string, call func(ctx context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (any, error) {
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}
		v, err := call(shared)
		if err != nil {
			metrics.ObserveProviderCall(r.stage, utils.ErrorKind(err))
			return nil, err
		}
		metrics.ObserveProviderCall(r.stage, "ok")
		r.cache.Set(key, v)
		metrics.SetCacheEntries(r.cache.Len())
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, utils.NewAppError("engine.resolve", "caller cancelled", ctx.Err())
	case res := <-ch:
		if res.Shared {
			r.logger.Debug("shared in-flight provider call", "stage", r.stage)
		}
		if res.Err == nil {
			metrics.ObserveStageResult(r.stage, metrics.SourceProvider)
		}
		return res.Val, res.Err
	}
}

func (r *reasoner) complete(ctx context.Context, system, user string, opts reasoning.Options) (string, error) {
	return reasoning.CompleteWithTimeout(ctx, r.provider, r.timeout, system, user, opts)
}

func (r *reasoner) fellBack(reason error) {
	metrics.ObserveStageResult(r.stage, metrics.SourceFallback)
	if reason == nil || errors.Is(reason, utils.ErrProviderNotConfigured) {
		r.logger.Debug("no reasoning provider configured, using fallback", "stage", r.stage)
		return
	}
	r.logger.Warn("reasoning provider failed, using fallback", "stage", r.stage, "kind", utils.ErrorKind(reason), "error", reason)
}
