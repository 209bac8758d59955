package scheduler

import (
	"fmt"

	"github.com/yairfalse/warden/pkg/resource"
)

// Decision is the single action chosen for an instance.
type Decision struct {
	Action resource.Action
	Reason string
}

// Decide picks the action for an instance at the given hour.
//
// A running instance is only checked against its stop tag and a stopped
// instance only against its start tag. A start tag matching the hour of a
// running instance (or a stop tag on a stopped one) never acts.
func Decide(instance resource.Instance, hour int) Decision {
	switch instance.State {
	case resource.StateRunning:
		if h, ok := tagHour(instance.Tags, resource.TagStopTime); ok && h == hour {
			return Decision{Action: resource.ActionStop, Reason: fmt.Sprintf("Stopping instance %s", instance.ID)}
		}
	case resource.StateStopped:
		if h, ok := tagHour(instance.Tags, resource.TagStartTime); ok && h == hour {
			return Decision{Action: resource.ActionStart, Reason: fmt.Sprintf("Starting instance %s", instance.ID)}
		}
	case resource.StatePending, resource.StateStopping, resource.StateShuttingDown,
		resource.StateTerminated, resource.StateUnknown:
		// transitional and terminal states never act
	}

	return Decision{
		Action: resource.ActionNone,
		Reason: fmt.Sprintf("Instance %s is %s. No action required.", instance.ID, instance.State),
	}
}
