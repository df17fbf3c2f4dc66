package scheduler

import (
	"iter"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

// Slots yields the contiguous slots of hours on date. The last slot is cut
// at closing time when the window is not a multiple of granularity; such a
// shorter slot is still bookable. A closed day or a non-positive granularity
// yields nothing.
func Slots(hours DailyHours, granularity time.Duration, date time.Time) iter.Seq[interval.Interval] {
	return func(yield func(interval.Interval) bool) {
		if granularity <= 0 {
			return
		}
		window, ok := hours.Window(date)
		if !ok {
			return
		}
		for start := window.Start(); start.Before(window.End()); start = start.Add(granularity) {
			end := start.Add(granularity)
			if end.After(window.End()) {
				end = window.End()
			}
			if !yield(interval.MustNew(start, end)) {
				return
			}
		}
	}
}

// GenerateSlots collects Slots into a slice.
func GenerateSlots(hours DailyHours, granularity time.Duration, date time.Time) []interval.Interval {
	var out []interval.Interval
	for slot := range Slots(hours, granularity, date) {
		out = append(out, slot)
	}
	return out
}
