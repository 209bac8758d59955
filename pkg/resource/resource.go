// Package resource defines the instance and bucket model warden reconciles.
package resource

import "strings"

// Recognized scheduling tag keys.
const (
	TagStartTime = "SchedulerStartTime"
	TagStopTime  = "SchedulerStopTime"
)

// InstanceState is the lifecycle state reported by the provider.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
	// StateUnknown is any value the provider returns outside the known set.
	StateUnknown InstanceState = "unknown"
)

// ParseInstanceState maps a provider state name onto the closed set.
func ParseInstanceState(s string) InstanceState {
	switch st := InstanceState(strings.ToLower(s)); st {
	case StatePending, StateRunning, StateShuttingDown, StateTerminated, StateStopping, StateStopped:
		return st
	default:
		return StateUnknown
	}
}

// Tag is a key/value pair attached to an instance.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Instance is a compute instance as seen by the scheduler.
// Tags keep the order the provider returned them in.
type Instance struct {
	ID    string        `json:"id"`
	State InstanceState `json:"state"`
	Tags  []Tag         `json:"tags"`
}

// VersioningStatus is the bucket versioning setting.
type VersioningStatus string

const (
	VersioningEnabled   VersioningStatus = "Enabled"
	VersioningSuspended VersioningStatus = "Suspended"
	// VersioningOff means versioning was never configured.
	VersioningOff VersioningStatus = ""
)

// IsEnabled reports whether versioning is on. Only "Enabled" counts.
func (s VersioningStatus) IsEnabled() bool {
	return s == VersioningEnabled
}

// Bucket is a storage bucket.
type Bucket struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}
