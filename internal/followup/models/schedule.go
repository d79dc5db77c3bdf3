package models

import "time"

// DefaultScheduleOffsets are the reminder cadence day-offsets. The offset at
// the just-sent reminder number decides when the next follow-up is due;
// numbers past the end clamp to the last entry so the cadence never stops.
var DefaultScheduleOffsets = []int{3, 7, 14}

// Schedule computes the next follow-up date after a reminder goes out.
type Schedule struct {
	offsets []int
}

func NewSchedule(offsets []int) Schedule {
	if len(offsets) == 0 {
		offsets = DefaultScheduleOffsets
	}
	copied := make([]int, len(offsets))
	copy(copied, offsets)
	return Schedule{offsets: copied}
}

func DefaultSchedule() Schedule {
	return NewSchedule(nil)
}

// NextAfter returns when the follow-up after reminderNumber (1-based) is due,
// counted from the send time.
func (s Schedule) NextAfter(sentAt time.Time, reminderNumber int) time.Time {
	idx := reminderNumber
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.offsets) {
		idx = len(s.offsets) - 1
	}
	return sentAt.AddDate(0, 0, s.offsets[idx])
}
