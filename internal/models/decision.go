package models

// ActionKind is the closed vocabulary of remediation actions.
type ActionKind string

const (
	ActionFixCode             ActionKind = "fix_code"
	ActionRollback            ActionKind = "rollback"
	ActionOptimizePerformance ActionKind = "optimize_performance"
	ActionScaleUp             ActionKind = "scale_up"
	ActionScaleResources      ActionKind = "scale_resources"
	ActionRestartService      ActionKind = "restart_service"
	ActionMonitor             ActionKind = "monitor"
)

// AllActions lists every ActionKind in declaration order.
var AllActions = []ActionKind{
	ActionFixCode,
	ActionRollback,
	ActionOptimizePerformance,
	ActionScaleUp,
	ActionScaleResources,
	ActionRestartService,
	ActionMonitor,
}

// Known reports whether a belongs to the closed enumeration.
func (a ActionKind) Known() bool {
	for _, k := range AllActions {
		if k == a {
			return true
		}
	}
	return false
}

// ActionSet is the configured subset of actions a decision may choose from.
type ActionSet []ActionKind

// Contains reports set membership.
func (s ActionSet) Contains(a ActionKind) bool {
	for _, k := range s {
		if k == a {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings, preserving order.
func (s ActionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, k := range s {
		out = append(out, string(k))
	}
	return out
}

// Decision is exactly one chosen action with its justification.
type Decision struct {
	Decision ActionKind `json:"decision"`
	Reason   string     `json:"reason"`
}

// ActionStatus is the outcome of executing a decision.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusError   ActionStatus = "error"
)

// ActionResult is the structured outcome log of the execution stage.
type ActionResult struct {
	Status    ActionStatus `json:"status"`
	ActionLog string       `json:"action_log"`
	Timestamp string       `json:"timestamp"`
}
