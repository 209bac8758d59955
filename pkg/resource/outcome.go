package resource

import "time"

// Action is what a pass did (or would do) to a single resource.
type Action string

const (
	ActionStart            Action = "start"
	ActionStop             Action = "stop"
	ActionEnableVersioning Action = "enable-versioning"
	// ActionNone means the resource was inspected and already compliant.
	ActionNone Action = "none"
	// ActionSkip means the resource was out of scope and not inspected.
	ActionSkip Action = "skip"
)

// Mutates reports whether the action changes provider state.
func (a Action) Mutates() bool {
	switch a {
	case ActionStart, ActionStop, ActionEnableVersioning:
		return true
	default:
		return false
	}
}

// Outcome records what happened to one resource during a pass.
type Outcome struct {
	ResourceID string `json:"resource_id"`
	Action     Action `json:"action"`
	Message    string `json:"message"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// PassResult holds the result of one reconciliation pass.
// Outcomes are kept in processing order.
type PassResult struct {
	Pass     string        `json:"pass"`
	Status   string        `json:"status"`
	Outcomes []Outcome     `json:"outcomes"`
	Duration time.Duration `json:"duration"`
	Error    error         `json:"-"`
}

// Count returns how many outcomes carry the given action.
func (r PassResult) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}
