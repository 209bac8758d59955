package versioning

import (
	"fmt"

	"github.com/yairfalse/warden/pkg/resource"
)

// Decision is the single action chosen for an in-scope bucket.
type Decision struct {
	Action resource.Action
	Reason string
}

// Decide picks the action for a bucket with the given versioning status.
// Suspended and never-configured buckets are both enabled.
func Decide(bucket string, status resource.VersioningStatus) Decision {
	if status.IsEnabled() {
		return Decision{
			Action: resource.ActionNone,
			Reason: fmt.Sprintf("Versioning is enabled on bucket %s", bucket),
		}
	}
	return Decision{
		Action: resource.ActionEnableVersioning,
		Reason: fmt.Sprintf("Enabling versioning on bucket %s", bucket),
	}
}
