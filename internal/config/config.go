package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/autoops/internal/models"
)

// Config captures every setting needed to run the remediation pipeline.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	LLM        LLMConfig        `yaml:"llm"`
	Stages     StagesConfig     `yaml:"stages"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Health     HealthConfig     `yaml:"health"`
	Demo       DemoConfig       `yaml:"demo"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Rules      RulesConfig      `yaml:"rules"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// LLMConfig selects the reasoning provider.
type LLMConfig struct {
	Provider string            `yaml:"provider"`
	OpenAI   LLMProviderConfig `yaml:"openai"`
	Together LLMProviderConfig `yaml:"together"`
}

// LLMProviderConfig holds credentials and model settings for one OpenAI-compatible API.
type LLMProviderConfig struct {
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"baseURL"`
	Temperature float32 `yaml:"temperature"`
}

// StagesConfig groups per-stage behaviour.
type StagesConfig struct {
	Summary   SummaryStageConfig   `yaml:"summary"`
	Decision  DecisionStageConfig  `yaml:"decision"`
	Execution ExecutionStageConfig `yaml:"execution"`
}

// SummaryStageConfig bounds the summary reasoning call.
type SummaryStageConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	FallbackEnabled bool          `yaml:"fallbackEnabled"`
}

// DecisionStageConfig bounds the decision reasoning call and its vocabulary.
type DecisionStageConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	FallbackEnabled bool          `yaml:"fallbackEnabled"`
	ValidActions    []string      `yaml:"validActions"`
	Vocabulary      string        `yaml:"vocabulary"`
	Temperature     float32       `yaml:"temperature"`
}

// ExecutionStageConfig controls remediation side effects.
type ExecutionStageConfig struct {
	DryRun        bool          `yaml:"dryRun"`
	Delay         time.Duration `yaml:"delay"`
	RestartDelay  time.Duration `yaml:"restartDelay"`
	StatusLogPath string        `yaml:"statusLogPath"`
}

// CacheConfig controls the in-process result cache.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"maxSize"`
}

// MonitoringConfig selects where metrics come from.
type MonitoringConfig struct {
	Type       string           `yaml:"type"`
	Timeout    time.Duration    `yaml:"timeout"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Datadog    DatadogConfig    `yaml:"datadog"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Local      LocalConfig      `yaml:"local"`
}

// PrometheusConfig configures instant queries against a Prometheus server.
type PrometheusConfig struct {
	URL     string            `yaml:"url"`
	Queries map[string]string `yaml:"queries"`
}

// DatadogConfig configures the Datadog metrics query API.
type DatadogConfig struct {
	APIKey  string            `yaml:"apiKey"`
	AppKey  string            `yaml:"appKey"`
	BaseURL string            `yaml:"baseURL"`
	Queries map[string]string `yaml:"queries"`
}

// WebhookConfig configures a generic JSON metrics endpoint.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Token   string            `yaml:"token"`
}

// LocalConfig points local telemetry at a procfs mount.
type LocalConfig struct {
	ProcPath string `yaml:"procPath"`
}

// HealthConfig selects the shared health-status store.
type HealthConfig struct {
	Backend string       `yaml:"backend"`
	Path    string       `yaml:"path"`
	Key     string       `yaml:"key"`
	Valkey  ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig holds connection settings for the Valkey health backend.
type ValkeyConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// DemoConfig controls the demo metrics generator.
type DemoConfig struct {
	Enabled        bool          `yaml:"enabled"`
	RecoveryWindow time.Duration `yaml:"recoveryWindow"`
}

// ThresholdsConfig holds the cutoffs used by the fallback summary and the built-in rule pack.
type ThresholdsConfig struct {
	CPUCritical            float64 `yaml:"cpuCritical"`
	CPUModerate            float64 `yaml:"cpuModerate"`
	MemoryCritical         float64 `yaml:"memoryCritical"`
	MemoryModerate         float64 `yaml:"memoryModerate"`
	ProcessCountHigh       float64 `yaml:"processCountHigh"`
	ErrorsCritical         float64 `yaml:"errorsCritical"`
	ErrorsModerate         float64 `yaml:"errorsModerate"`
	LatencyCriticalMs      float64 `yaml:"latencyCriticalMs"`
	LatencyModerateMs      float64 `yaml:"latencyModerateMs"`
	ConversionDropCritical float64 `yaml:"conversionDropCritical"`
}

// RulesConfig points at an optional YAML fallback rule pack.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Vocabulary values for DecisionStageConfig.Vocabulary.
const (
	VocabularyAuto        = "auto"
	VocabularyResource    = "resource"
	VocabularyApplication = "application"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AUTOOPS_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	validActions := make([]string, 0, len(models.AllActions))
	for _, a := range models.AllActions {
		validActions = append(validActions, string(a))
	}
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		LLM: LLMConfig{
			Provider: "openai",
			OpenAI:   LLMProviderConfig{Model: "gpt-4o", Temperature: 0.5},
			Together: LLMProviderConfig{
				Model:       "meta-llama/Llama-3-70b-chat-hf",
				BaseURL:     "https://api.together.xyz/v1",
				Temperature: 0.5,
			},
		},
		Stages: StagesConfig{
			Summary: SummaryStageConfig{Timeout: 10 * time.Second, FallbackEnabled: true},
			Decision: DecisionStageConfig{
				Timeout:         10 * time.Second,
				FallbackEnabled: true,
				ValidActions:    validActions,
				Vocabulary:      VocabularyAuto,
				Temperature:     0.2,
			},
			Execution: ExecutionStageConfig{
				Delay:         500 * time.Millisecond,
				RestartDelay:  time.Second,
				StatusLogPath: "public/system-status.txt",
			},
		},
		Cache: CacheConfig{TTL: 5 * time.Minute, MaxSize: 100},
		Monitoring: MonitoringConfig{
			Timeout:    5 * time.Second,
			Prometheus: PrometheusConfig{URL: "http://localhost:9090"},
			Datadog:    DatadogConfig{BaseURL: "https://api.datadoghq.com"},
			Webhook:    WebhookConfig{Method: "GET"},
			Local:      LocalConfig{ProcPath: "/proc"},
		},
		Health: HealthConfig{
			Backend: "file",
			Path:    "public/system-health.json",
			Key:     "autoops:health",
		},
		Demo: DemoConfig{Enabled: true, RecoveryWindow: 10 * time.Minute},
		Thresholds: ThresholdsConfig{
			CPUCritical:            80,
			CPUModerate:            50,
			MemoryCritical:         90,
			MemoryModerate:         60,
			ProcessCountHigh:       500,
			ErrorsCritical:         50,
			ErrorsModerate:         10,
			LatencyCriticalMs:      1000,
			LatencyModerateMs:      500,
			ConversionDropCritical: 10,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Stages.Decision.ValidActions) == 0 {
		problems = append(problems, "stages.decision.validActions must not be empty")
	}
	hasMonitor := false
	for _, a := range c.Stages.Decision.ValidActions {
		kind := models.ActionKind(a)
		if !kind.Known() {
			problems = append(problems, fmt.Sprintf("stages.decision.validActions: unknown action %q", a))
		}
		if kind == models.ActionMonitor {
			hasMonitor = true
		}
	}
	if len(c.Stages.Decision.ValidActions) > 0 && !hasMonitor {
		problems = append(problems, "stages.decision.validActions must include monitor")
	}
	switch c.Stages.Decision.Vocabulary {
	case "", VocabularyAuto, VocabularyResource, VocabularyApplication:
	default:
		problems = append(problems, fmt.Sprintf("stages.decision.vocabulary: unknown value %q", c.Stages.Decision.Vocabulary))
	}
	if c.Stages.Summary.Timeout <= 0 {
		problems = append(problems, "stages.summary.timeout must be positive")
	}
	if c.Stages.Decision.Timeout <= 0 {
		problems = append(problems, "stages.decision.timeout must be positive")
	}
	if c.Stages.Execution.Delay < 0 || c.Stages.Execution.RestartDelay < 0 {
		problems = append(problems, "stages.execution delays must not be negative")
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if c.Cache.MaxSize <= 0 {
		problems = append(problems, "cache.maxSize must be positive")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "together":
	default:
		problems = append(problems, fmt.Sprintf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	switch strings.ToLower(c.Monitoring.Type) {
	case "", "prometheus", "datadog", "webhook", "local":
	default:
		problems = append(problems, fmt.Sprintf("monitoring.type: unknown type %q", c.Monitoring.Type))
	}
	switch strings.ToLower(c.Health.Backend) {
	case "file":
		if c.Health.Path == "" {
			problems = append(problems, "health.path is required for the file backend")
		}
	case "valkey":
		if c.Health.Valkey.Addr == "" {
			problems = append(problems, "health.valkey.addr is required for the valkey backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("health.backend: unknown backend %q", c.Health.Backend))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ActiveLLM returns the settings of the selected reasoning provider.
func (c *Config) ActiveLLM() LLMProviderConfig {
	if strings.EqualFold(c.LLM.Provider, "together") {
		return c.LLM.Together
	}
	return c.LLM.OpenAI
}

// LLMConfigured reports whether the active provider has a credential.
func (c *Config) LLMConfigured() bool {
	return c.ActiveLLM().APIKey != ""
}

// ValidActionSet converts the configured action names to an ActionSet.
func (c *Config) ValidActionSet() models.ActionSet {
	set := make(models.ActionSet, 0, len(c.Stages.Decision.ValidActions))
	for _, a := range c.Stages.Decision.ValidActions {
		set = append(set, models.ActionKind(a))
	}
	return set
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTOOPS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AUTOOPS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("AUTOOPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUTOOPS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("AUTOOPS_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if isTrue(os.Getenv("AUTOOPS_DEBUG")) {
		cfg.Logging.Level = "debug"
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("TOGETHER_API_KEY"); v != "" {
		cfg.LLM.Together.APIKey = v
	}
	if v := os.Getenv("AUTOOPS_DRY_RUN"); v != "" {
		cfg.Stages.Execution.DryRun = isTrue(v)
	}
	if v := os.Getenv("AUTOOPS_STATUS_LOG"); v != "" {
		cfg.Stages.Execution.StatusLogPath = v
	}
	if v := os.Getenv("AUTOOPS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("AUTOOPS_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxSize = n
		}
	}
	if v := os.Getenv("MONITORING_TYPE"); v != "" {
		cfg.Monitoring.Type = v
	}
	if v := os.Getenv("PROMETHEUS_URL"); v != "" {
		cfg.Monitoring.Prometheus.URL = v
	}
	if v := os.Getenv("DATADOG_API_KEY"); v != "" {
		cfg.Monitoring.Datadog.APIKey = v
	}
	if v := os.Getenv("DATADOG_APP_KEY"); v != "" {
		cfg.Monitoring.Datadog.AppKey = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Monitoring.Webhook.URL = v
	}
	if v := os.Getenv("WEBHOOK_TOKEN"); v != "" {
		cfg.Monitoring.Webhook.Token = v
	}
	if v := os.Getenv("AUTOOPS_HEALTH_BACKEND"); v != "" {
		cfg.Health.Backend = v
	}
	if v := os.Getenv("AUTOOPS_HEALTH_PATH"); v != "" {
		cfg.Health.Path = v
	}
	if v := os.Getenv("AUTOOPS_VALKEY_ADDR"); v != "" {
		cfg.Health.Valkey.Addr = v
	}
	if v := os.Getenv("AUTOOPS_VALKEY_PASSWORD"); v != "" {
		cfg.Health.Valkey.Password = v
	}
	if v := os.Getenv("AUTOOPS_DEMO"); v != "" {
		cfg.Demo.Enabled = isTrue(v)
	}
	if v := os.Getenv("AUTOOPS_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
