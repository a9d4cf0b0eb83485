package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/reasoning"
	"github.com/miradorstack/autoops/internal/utils"
)

// DecisionOptions configure the decision stage.
type DecisionOptions struct {
	Timeout         time.Duration
	FallbackEnabled bool
	Temperature     float32
	ValidActions    models.ActionSet
	Vocabulary      string
}

// DecisionStage chooses exactly one action from the configured set.
type DecisionStage struct {
	*reasoner
	rules *RuleEngine
	opts  DecisionOptions
}

// NewDecisionStage wires the stage. A nil rule engine uses the built-in rules
// with zero-value thresholds replaced by config defaults.
func NewDecisionStage(provider reasoning.Provider, results *cache.ResultCache, rules *RuleEngine, opts DecisionOptions, logger *slog.Logger) *DecisionStage {
	if len(opts.ValidActions) == 0 {
		opts.ValidActions = models.ActionSet(models.AllActions)
	}
	r := newReasoner(StageDecision, provider, results, opts.Timeout, logger)
	if rules == nil {
		rules, _ = NewRuleEngine("", defaultThresholds(), r.logger)
	}
	return &DecisionStage{reasoner: r, rules: rules, opts: opts}
}

type decisionInput struct {
	Summary string                 `json:"summary"`
	Metrics models.MetricsSnapshot `json:"metrics"`
}

// Decide returns a decision that is always a member of the valid-action set.
func (d *DecisionStage) Decide(ctx context.Context, summary string, snapshot models.MetricsSnapshot) (models.Decision, error) {
	key := cache.GenerateKey(StageDecision, decisionInput{Summary: summary, Metrics: snapshot})
	if v, ok := d.cached(key); ok {
		if dec, ok := v.(models.Decision); ok && d.opts.ValidActions.Contains(dec.Decision) {
			d.hit()
			return dec, nil
		}
	}

	if !d.configured() {
		d.fellBack(nil)
		return d.fallback(snapshot), nil
	}

	v, err := d.resolve(ctx, key, func(ctx context.Context) (any, error) {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return nil, utils.NewAppError("engine.Decide", "encode metrics", err)
		}
		user := fmt.Sprintf("Summary: %s\nMetrics: %s", summary, payload)
		text, err := d.complete(ctx, d.instruction(), user, reasoning.Options{JSONMode: true, Temperature: d.opts.Temperature})
		if err != nil {
			return nil, err
		}
		return ParseDecision(text, d.opts.ValidActions)
	})
	if err == nil {
		return v.(models.Decision), nil
	}
	if !d.opts.FallbackEnabled {
		return models.Decision{}, utils.NewAppError("engine.Decide", "decision unavailable", err)
	}
	d.fellBack(err)
	return d.fallback(snapshot), nil
}

func (d *DecisionStage) fallback(snapshot models.MetricsSnapshot) models.Decision {
	return d.rules.Decide(snapshot, d.opts.ValidActions, d.opts.Vocabulary)
}

func (d *DecisionStage) instruction() string {
	actions, _ := json.Marshal(d.opts.ValidActions.Strings())
	return fmt.Sprintf("You are a Senior DevOps Engineer. Based on the system status summary, choose exactly ONE action from: %s.\n"+
		"Return a JSON object with 'decision' and 'reason'.\n"+
		`Example: {"decision": "fix_code", "reason": "Bug detected in login flow."}`, actions)
}

// ParseDecision decodes a provider response and rejects any action outside valid.
func ParseDecision(text string, valid models.ActionSet) (models.Decision, error) {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var raw struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return models.Decision{}, utils.NewAppError("engine.ParseDecision", "response is not a JSON decision", fmt.Errorf("%w: %v", utils.ErrValidation, err))
	}
	action := models.ActionKind(strings.TrimSpace(raw.Decision))
	if !valid.Contains(action) {
		return models.Decision{}, utils.NewAppError("engine.ParseDecision", fmt.Sprintf("invalid decision %q", raw.Decision), utils.ErrValidation)
	}
	return models.Decision{Decision: action, Reason: strings.TrimSpace(raw.Reason)}, nil
}
