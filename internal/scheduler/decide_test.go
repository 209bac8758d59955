package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/warden/pkg/resource"
)

func instance(id string, state resource.InstanceState, kv ...string) resource.Instance {
	tags := make([]resource.Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, resource.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return resource.Instance{ID: id, State: state, Tags: tags}
}

func TestDecide_RunningStopsOnlyAtStopHour(t *testing.T) {
	inst := instance("i-1", resource.StateRunning, resource.TagStopTime, "14")

	for hour := 0; hour < 24; hour++ {
		d := Decide(inst, hour)
		if hour == 14 {
			assert.Equal(t, resource.ActionStop, d.Action, "hour %d", hour)
		} else {
			assert.Equal(t, resource.ActionNone, d.Action, "hour %d", hour)
		}
	}
}

func TestDecide_StoppedStartsOnlyAtStartHour(t *testing.T) {
	inst := instance("i-2", resource.StateStopped, resource.TagStartTime, "9")

	for hour := 0; hour < 24; hour++ {
		d := Decide(inst, hour)
		if hour == 9 {
			assert.Equal(t, resource.ActionStart, d.Action, "hour %d", hour)
		} else {
			assert.Equal(t, resource.ActionNone, d.Action, "hour %d", hour)
		}
	}
}

func TestDecide_MalformedTagsNeverAct(t *testing.T) {
	for _, value := range []string{"abc", "12a", "", "-3", " 3"} {
		for hour := 0; hour < 24; hour++ {
			running := instance("i-r", resource.StateRunning, resource.TagStopTime, value, resource.TagStartTime, value)
			stopped := instance("i-s", resource.StateStopped, resource.TagStopTime, value, resource.TagStartTime, value)

			assert.Equal(t, resource.ActionNone, Decide(running, hour).Action, "value %q hour %d", value, hour)
			assert.Equal(t, resource.ActionNone, Decide(stopped, hour).Action, "value %q hour %d", value, hour)
		}
	}
}

func TestDecide_OtherStatesNeverAct(t *testing.T) {
	states := []resource.InstanceState{
		resource.StatePending,
		resource.StateStopping,
		resource.StateShuttingDown,
		resource.StateTerminated,
		resource.StateUnknown,
	}

	for _, st := range states {
		t.Run(string(st), func(t *testing.T) {
			inst := instance("i-x", st, resource.TagStartTime, "10", resource.TagStopTime, "10")
			d := Decide(inst, 10)
			assert.Equal(t, resource.ActionNone, d.Action)
			assert.Equal(t, "Instance i-x is "+string(st)+". No action required.", d.Reason)
		})
	}
}

func TestDecide_MissingTag(t *testing.T) {
	assert.Equal(t, resource.ActionNone, Decide(instance("i-1", resource.StateRunning, resource.TagStartTime, "5"), 5).Action)
	assert.Equal(t, resource.ActionNone, Decide(instance("i-2", resource.StateStopped, resource.TagStopTime, "5"), 5).Action)
	assert.Equal(t, resource.ActionNone, Decide(instance("i-3", resource.StateRunning), 5).Action)
}

func TestDecide_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		inst       resource.Instance
		hour       int
		wantAction resource.Action
		wantReason string
	}{
		{
			name:       "running with stop tag at current hour stops",
			inst:       instance("i-1", resource.StateRunning, resource.TagStopTime, "14"),
			hour:       14,
			wantAction: resource.ActionStop,
			wantReason: "Stopping instance i-1",
		},
		{
			name:       "leading zero start tag parses as nine",
			inst:       instance("i-2", resource.StateStopped, resource.TagStartTime, "09"),
			hour:       9,
			wantAction: resource.ActionStart,
			wantReason: "Starting instance i-2",
		},
		{
			name:       "running instance ignores matching start tag",
			inst:       instance("i-3", resource.StateRunning, resource.TagStartTime, "14", resource.TagStopTime, "10"),
			hour:       14,
			wantAction: resource.ActionNone,
			wantReason: "Instance i-3 is running. No action required.",
		},
		{
			name:       "stopped instance ignores matching stop tag",
			inst:       instance("i-4", resource.StateStopped, resource.TagStartTime, "8", resource.TagStopTime, "20"),
			hour:       20,
			wantAction: resource.ActionNone,
			wantReason: "Instance i-4 is stopped. No action required.",
		},
		{
			name:       "duplicate stop keys use the first",
			inst:       instance("i-5", resource.StateRunning, resource.TagStopTime, "3", resource.TagStopTime, "4"),
			hour:       4,
			wantAction: resource.ActionNone,
			wantReason: "Instance i-5 is running. No action required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.inst, tt.hour)
			assert.Equal(t, tt.wantAction, d.Action)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}
