package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTOOPS_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, 10*time.Second, cfg.Stages.Summary.Timeout)
	assert.Equal(t, "gpt-4o", cfg.ActiveLLM().Model)
	assert.False(t, cfg.LLMConfigured())
	assert.Len(t, cfg.ValidActionSet(), 7)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autoops.yaml")
	body := []byte(`
llm:
  provider: together
cache:
  ttl: 1m
stages:
  decision:
    validActions: [fix_code, rollback, monitor]
    vocabulary: application
monitoring:
  type: prometheus
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("TOGETHER_API_KEY", "tk")
	t.Setenv("PROMETHEUS_URL", "http://prom:9090")
	t.Setenv("AUTOOPS_DRY_RUN", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "meta-llama/Llama-3-70b-chat-hf", cfg.ActiveLLM().Model)
	assert.True(t, cfg.LLMConfigured())
	assert.Equal(t, "http://prom:9090", cfg.Monitoring.Prometheus.URL)
	assert.True(t, cfg.Stages.Execution.DryRun)
	assert.Equal(t, []string{"fix_code", "rollback", "monitor"}, cfg.ValidActionSet().Strings())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateRejectsBadActions(t *testing.T) {
	cases := map[string][]string{
		"empty":      {},
		"unknown":    {"monitor", "reboot"},
		"no monitor": {"fix_code"},
	}
	for name, actions := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Stages.Decision.ValidActions = actions
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRejectsNonPositiveCache(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = 0
	cfg.Cache.MaxSize = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
	assert.Contains(t, err.Error(), "cache.maxSize")
}

func TestValidateValkeyNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.Health.Backend = "valkey"
	assert.Error(t, cfg.Validate())
	cfg.Health.Valkey.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "OPENAI_API_KEY", "MONITORING_TYPE", "AUTOOPS_DRY_RUN", "AUTOOPS_RULES_PATH", "AUTOOPS_HEALTH_BACKEND", "AUTOOPS_STATUS_LOG", "AUTOOPS_DEMO", "AUTOOPS_CACHE_TTL", "AUTOOPS_CACHE_MAX_SIZE", "WEBHOOK_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join("..", "..", "configs", "autoops.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Stages, cfg.Stages)
	assert.Equal(t, def.Cache, cfg.Cache)
	assert.Equal(t, def.Thresholds, cfg.Thresholds)
	assert.Equal(t, def.Demo, cfg.Demo)
	assert.Equal(t, "configs/rules/default.yaml", cfg.Rules.Path)
	assert.Equal(t, "http://localhost:8080/metrics", cfg.Monitoring.Webhook.URL)
}
