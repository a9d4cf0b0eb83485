package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/models"
)

// Rule vocabularies. An empty vocabulary applies to every snapshot shape.
const (
	VocabularyResource    = "resource"
	VocabularyApplication = "application"
)

const monitorReason = "System metrics within normal parameters. Continuing monitoring."

// RuleEngine is the deterministic decision tree used when the reasoning
// provider cannot answer. Rules are evaluated in order; the first match wins.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule maps threshold conditions to one action.
type Rule struct {
	ID         string            `yaml:"id"`
	Vocabulary string            `yaml:"vocabulary"`
	When       []RuleCondition   `yaml:"when"`
	Action     models.ActionKind `yaml:"action"`
	Reason     string            `yaml:"reason"`
}

// RuleCondition holds when the named metric is strictly above the threshold.
type RuleCondition struct {
	Metric string  `yaml:"metric"`
	Above  float64 `yaml:"above"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules builds the built-in rule pack from thresholds.
func DefaultRules(th config.ThresholdsConfig) []Rule {
	return []Rule{
		{
			ID: "cpu-critical", Vocabulary: VocabularyResource,
			When:   []RuleCondition{{Metric: models.FieldCPULoad, Above: th.CPUCritical}},
			Action: models.ActionScaleResources,
			Reason: "Critical CPU load ({value}%) detected. Scaling up resources.",
		},
		{
			ID: "memory-critical", Vocabulary: VocabularyResource,
			When:   []RuleCondition{{Metric: models.FieldMemoryUsage, Above: th.MemoryCritical}},
			Action: models.ActionRestartService,
			Reason: "Critical memory usage ({value}%) detected. Restarting service to clear memory.",
		},
		{
			ID: "error-spike", Vocabulary: VocabularyApplication,
			When:   []RuleCondition{{Metric: models.FieldErrors, Above: th.ErrorsCritical}},
			Action: models.ActionRollback,
			Reason: "Error spike detected ({value} errors). Rolling back to the last stable version.",
		},
		{
			ID:     "latency-critical",
			When:   []RuleCondition{{Metric: models.FieldLatencyMs, Above: th.LatencyCriticalMs}},
			Action: models.ActionOptimizePerformance,
			Reason: "Critical latency detected ({value}ms). Optimizing database queries and caching.",
		},
		{
			ID: "process-count", Vocabulary: VocabularyResource,
			When:   []RuleCondition{{Metric: models.FieldProcessCount, Above: th.ProcessCountHigh}},
			Action: models.ActionOptimizePerformance,
			Reason: "High process count ({value}). Optimizing process management.",
		},
		{
			ID: "regression", Vocabulary: VocabularyApplication,
			When: []RuleCondition{
				{Metric: models.FieldErrors, Above: th.ErrorsModerate},
				{Metric: models.FieldConversionDropPercent, Above: th.ConversionDropCritical},
			},
			Action: models.ActionFixCode,
			Reason: "Elevated {metric} ({value}) points to a code regression. Applying a fix.",
		},
		{
			ID: "latency-moderate", Vocabulary: VocabularyApplication,
			When:   []RuleCondition{{Metric: models.FieldLatencyMs, Above: th.LatencyModerateMs}},
			Action: models.ActionOptimizePerformance,
			Reason: "Elevated latency ({value}ms) detected. Applying proactive optimizations.",
		},
		{
			ID: "load-moderate", Vocabulary: VocabularyResource,
			When: []RuleCondition{
				{Metric: models.FieldCPULoad, Above: th.CPUModerate},
				{Metric: models.FieldMemoryUsage, Above: th.MemoryModerate},
			},
			Action: models.ActionOptimizePerformance,
			Reason: "Moderate system load detected. Applying proactive optimizations.",
		},
	}
}

// NewRuleEngine loads rules from path, or uses DefaultRules when path is empty
// or the file does not exist.
func NewRuleEngine(path string, th config.ThresholdsConfig, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &RuleEngine{rules: DefaultRules(th), logger: logger}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("rule pack not found, using built-in rules", "path", path)
			return &RuleEngine{rules: DefaultRules(th), logger: logger}, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	for _, r := range cfg.Rules {
		if !r.Action.Known() {
			return nil, fmt.Errorf("rule %q: unknown action %q", r.ID, r.Action)
		}
		if len(r.When) == 0 {
			return nil, fmt.Errorf("rule %q: no conditions", r.ID)
		}
	}
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Rules returns a copy of the loaded rules.
func (e *RuleEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Decide walks the rules for metrics and returns an action from valid.
// vocabulary restricts which rules apply; "auto" or "" applies all of them.
func (e *RuleEngine) Decide(metrics models.MetricsSnapshot, valid models.ActionSet, vocabulary string) models.Decision {
	for _, rule := range e.rules {
		if !vocabularyApplies(rule.Vocabulary, vocabulary) {
			continue
		}
		if !valid.Contains(rule.Action) {
			continue
		}
		cond, ok := rule.firstMatch(metrics)
		if !ok {
			continue
		}
		e.logger.Debug("fallback rule matched", "rule", rule.ID, "action", rule.Action)
		return models.Decision{
			Decision: rule.Action,
			Reason:   renderReason(rule.Reason, cond.Metric, metrics.Value(cond.Metric)),
		}
	}
	return terminalDecision(valid)
}

func terminalDecision(valid models.ActionSet) models.Decision {
	if valid.Contains(models.ActionMonitor) || len(valid) == 0 {
		return models.Decision{Decision: models.ActionMonitor, Reason: monitorReason}
	}
	return models.Decision{Decision: valid[0], Reason: monitorReason}
}

func (r Rule) firstMatch(metrics models.MetricsSnapshot) (RuleCondition, bool) {
	for _, c := range r.When {
		if metrics.Has(c.Metric) && metrics.Value(c.Metric) > c.Above {
			return c, true
		}
	}
	return RuleCondition{}, false
}

func vocabularyApplies(ruleVocabulary, selected string) bool {
	if ruleVocabulary == "" {
		return true
	}
	switch strings.ToLower(selected) {
	case "", config.VocabularyAuto:
		return true
	default:
		return strings.EqualFold(ruleVocabulary, selected)
	}
}

func renderReason(template, metric string, value float64) string {
	return strings.NewReplacer(
		"{metric}", strings.ReplaceAll(metric, "_", " "),
		"{value}", formatNumber(value),
	).Replace(template)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func defaultThresholds() config.ThresholdsConfig {
	return config.Default().Thresholds
}
