package lifecycle

import (
	"time"

	"github.com/pactline/escrowd/src/utils/model"
)

// A planned check in the verification ladder.
type ScheduleSlot struct {
	At        time.Time
	CheckType model.CheckType
}

// PeriodicInterval picks the re-check spacing from the observation window:
// short windows are checked often, long ones sparsely.
func PeriodicInterval(durationHours int) time.Duration {
	switch {
	case durationHours <= 24:
		return 4 * time.Hour
	case durationHours <= 72:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BuildSchedule lays out the full verification ladder for a freshly posted
// proof: one initial check now, periodic re-checks until the deadline and one
// final check exactly at the deadline. No periodic slot is placed at or past
// the deadline, the final slot covers the end of the window regardless of
// interval rounding.
func BuildSchedule(postedAt, deadline time.Time, durationHours int) (slots []ScheduleSlot) {
	slots = append(slots, ScheduleSlot{At: postedAt, CheckType: model.CheckTypeInitial})

	interval := PeriodicInterval(durationHours)
	for t := postedAt.Add(interval); t.Before(deadline); t = t.Add(interval) {
		slots = append(slots, ScheduleSlot{At: t, CheckType: model.CheckTypePeriodic})
	}

	slots = append(slots, ScheduleSlot{At: deadline, CheckType: model.CheckTypeFinal})
	return
}
