package lifecycle

import (
	"testing"
	"time"

	"github.com/pactline/escrowd/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicInterval(t *testing.T) {
	assert.Equal(t, 4*time.Hour, PeriodicInterval(1))
	assert.Equal(t, 4*time.Hour, PeriodicInterval(24))
	assert.Equal(t, 12*time.Hour, PeriodicInterval(25))
	assert.Equal(t, 12*time.Hour, PeriodicInterval(72))
	assert.Equal(t, 24*time.Hour, PeriodicInterval(73))
	assert.Equal(t, 24*time.Hour, PeriodicInterval(168))
}

func TestBuildScheduleShortWindow(t *testing.T) {
	postedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	deadline := postedAt.Add(24 * time.Hour)

	slots := BuildSchedule(postedAt, deadline, 24)
	require.NotEmpty(t, slots)

	// Initial at post time, final exactly at the deadline
	assert.Equal(t, model.CheckTypeInitial, slots[0].CheckType)
	assert.Equal(t, postedAt, slots[0].At)
	assert.Equal(t, model.CheckTypeFinal, slots[len(slots)-1].CheckType)
	assert.Equal(t, deadline, slots[len(slots)-1].At)

	// 4h spacing gives 5 periodic slots in a 24h window
	var periodic []ScheduleSlot
	for _, slot := range slots[1 : len(slots)-1] {
		assert.Equal(t, model.CheckTypePeriodic, slot.CheckType)
		periodic = append(periodic, slot)
	}
	require.Len(t, periodic, 5)
	for i, slot := range periodic {
		assert.Equal(t, postedAt.Add(time.Duration(i+1)*4*time.Hour), slot.At)
	}
}

func TestBuildScheduleNoSlotPastDeadline(t *testing.T) {
	postedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Deadline lands exactly on a periodic slot, that slot must be dropped
	// in favor of the final check
	deadline := postedAt.Add(8 * time.Hour)

	slots := BuildSchedule(postedAt, deadline, 24)
	for _, slot := range slots[:len(slots)-1] {
		assert.True(t, slot.At.Before(deadline), "slot at %s not before deadline %s", slot.At, deadline)
	}
	assert.Equal(t, deadline, slots[len(slots)-1].At)

	finals := 0
	for _, slot := range slots {
		if slot.CheckType == model.CheckTypeFinal {
			finals++
		}
	}
	assert.Equal(t, 1, finals)
}

func TestBuildScheduleLongWindow(t *testing.T) {
	postedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	deadline := postedAt.Add(7 * 24 * time.Hour)

	slots := BuildSchedule(postedAt, deadline, 168)

	// Daily spacing: initial + 6 periodic + final
	assert.Len(t, slots, 8)
}

func TestBuildScheduleTinyWindow(t *testing.T) {
	postedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	deadline := postedAt.Add(time.Hour)

	// Window shorter than the interval still gets initial and final
	slots := BuildSchedule(postedAt, deadline, 24)
	require.Len(t, slots, 2)
	assert.Equal(t, model.CheckTypeInitial, slots[0].CheckType)
	assert.Equal(t, model.CheckTypeFinal, slots[1].CheckType)
}
