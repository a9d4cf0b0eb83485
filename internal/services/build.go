package services

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/engine"
	"github.com/miradorstack/autoops/internal/ingest"
	"github.com/miradorstack/autoops/internal/reasoning"
	"github.com/miradorstack/autoops/internal/repo"
)

// Build assembles the pipeline and service from cfg. The returned close func
// releases external connections and is never nil.
func Build(cfg *config.Config, logger *slog.Logger) (*AutoOpsService, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	health, closeHealth, err := NewHealthStore(cfg.Health)
	if err != nil {
		return nil, noop, err
	}

	ingestor, err := ingest.FromConfig(cfg, health, logger)
	if err != nil {
		closeHealth()
		return nil, noop, fmt.Errorf("configure ingestion: %w", err)
	}

	provider := reasoning.FromConfig(cfg, logger)
	if !cfg.LLMConfigured() {
		logger.Info("no reasoning credentials configured, using deterministic fallbacks", slog.String("provider", cfg.LLM.Provider))
	}

	rules, err := engine.NewRuleEngine(cfg.Rules.Path, cfg.Thresholds, logger)
	if err != nil {
		closeHealth()
		return nil, noop, fmt.Errorf("load rule pack: %w", err)
	}

	results := cache.NewResultCache(cfg.Cache.TTL, cfg.Cache.MaxSize)
	summary := engine.NewSummaryStage(provider, results, engine.SummaryOptions{
		Timeout:         cfg.Stages.Summary.Timeout,
		FallbackEnabled: cfg.Stages.Summary.FallbackEnabled,
		Temperature:     cfg.ActiveLLM().Temperature,
		Thresholds:      cfg.Thresholds,
	}, logger)
	decision := engine.NewDecisionStage(provider, results, rules, engine.DecisionOptions{
		Timeout:         cfg.Stages.Decision.Timeout,
		FallbackEnabled: cfg.Stages.Decision.FallbackEnabled,
		Temperature:     cfg.Stages.Decision.Temperature,
		ValidActions:    cfg.ValidActionSet(),
		Vocabulary:      cfg.Stages.Decision.Vocabulary,
	}, logger)
	executor := engine.NewExecutor(repo.NewStatusLog(cfg.Stages.Execution.StatusLogPath), health, engine.ExecutorOptions{
		DryRun:       cfg.Stages.Execution.DryRun,
		Delay:        cfg.Stages.Execution.Delay,
		RestartDelay: cfg.Stages.Execution.RestartDelay,
	}, logger)

	pipeline := engine.NewPipeline(logger, ingestor, summary, decision, executor)
	return NewAutoOpsService(logger, pipeline, results, health), closeHealth, nil
}

// NewHealthStore opens the configured health backend.
func NewHealthStore(cfg config.HealthConfig) (repo.HealthStore, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return repo.NewFileHealthStore(cfg.Path), func() error { return nil }, nil
	case "valkey":
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Valkey.Addr,
			Username:     cfg.Valkey.Username,
			Password:     cfg.Valkey.Password,
			DB:           cfg.Valkey.DB,
			DialTimeout:  cfg.Valkey.DialTimeout,
			ReadTimeout:  cfg.Valkey.ReadTimeout,
			WriteTimeout: cfg.Valkey.WriteTimeout,
			MaxRetries:   cfg.Valkey.MaxRetries,
			TLS:          cfg.Valkey.TLS,
		})
		if err != nil {
			return nil, func() error { return nil }, fmt.Errorf("open valkey health store: %w", err)
		}
		return repo.NewCacheHealthStore(provider, cfg.Key), provider.Close, nil
	default:
		return nil, func() error { return nil }, fmt.Errorf("unknown health backend %q", cfg.Backend)
	}
}
