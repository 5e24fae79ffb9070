package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstanceStatus_TerminalStatesHaveNoExit(t *testing.T) {
	all := []InstanceStatus{InstanceStatusActive, InstanceStatusFull, InstanceStatusExpired, InstanceStatusCancelled}

	for _, from := range []InstanceStatus{InstanceStatusExpired, InstanceStatusCancelled} {
		for _, to := range all {
			if to == from {
				continue
			}
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, InstanceStatusActive.CanTransitionTo(InstanceStatusFull))
	assert.True(t, InstanceStatusFull.CanTransitionTo(InstanceStatusCancelled))
	assert.True(t, InstanceStatusActive.CanTransitionTo(InstanceStatusExpired))
}

func TestScheduleInstance_EffectiveStatusAfterCutoff(t *testing.T) {
	lead := 20 * time.Minute
	departs := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inst := &ScheduleInstance{DepartsAt: departs, MaxCapacity: 5, Status: InstanceStatusActive}

	justBefore := departs.Add(-lead).Add(-time.Second)
	assert.Equal(t, InstanceStatusActive, inst.EffectiveStatus(justBefore, lead))
	assert.True(t, inst.IsBookable(justBefore, lead))

	atCutoff := departs.Add(-lead)
	assert.Equal(t, InstanceStatusExpired, inst.EffectiveStatus(atCutoff, lead))
	assert.False(t, inst.IsBookable(atCutoff, lead))

	oneSecondPast := atCutoff.Add(time.Second)
	assert.False(t, inst.IsBookable(oneSecondPast, lead))
	assert.Equal(t, InstanceStatusActive, inst.Status, "stored status is untouched")
}

func TestScheduleInstance_FullIsNotBookable(t *testing.T) {
	lead := 20 * time.Minute
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	inst := &ScheduleInstance{DepartsAt: now.Add(3 * time.Hour), MaxCapacity: 2, Reserved: 2, Status: InstanceStatusFull}

	assert.False(t, inst.IsBookable(now, lead))
	assert.Equal(t, 0, inst.Available())
}

func TestStatusForReserved(t *testing.T) {
	assert.Equal(t, InstanceStatusFull, StatusForReserved(InstanceStatusActive, 4, 4))
	assert.Equal(t, InstanceStatusActive, StatusForReserved(InstanceStatusFull, 3, 4))
	assert.Equal(t, InstanceStatusCancelled, StatusForReserved(InstanceStatusCancelled, 0, 4))
	assert.Equal(t, InstanceStatusExpired, StatusForReserved(InstanceStatusExpired, 4, 4))
}
