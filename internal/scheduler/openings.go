package scheduler

import (
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

// FindOpenings searches forward from notBefore for up to limit free
// intervals of the given length. Candidates start on slot boundaries, stay
// inside opening hours and are checked with DetectConflicts. The search
// covers at most days calendar days.
func FindOpenings(resource Resource, reservations []Reservation, notBefore time.Time, length time.Duration, limit, days int) []interval.Interval {
	if limit <= 0 || days <= 0 || length <= 0 || resource.SlotGranularity <= 0 {
		return nil
	}

	var openings []interval.Interval
	date := startOfDay(notBefore)
	for i := 0; i < days; i, date = i+1, date.AddDate(0, 0, 1) {
		window, ok := resource.Hours.For(date.Weekday()).Window(date)
		if !ok {
			continue
		}
		for slot := range Slots(resource.Hours.For(date.Weekday()), resource.SlotGranularity, date) {
			if slot.Start().Before(notBefore) {
				continue
			}
			candidate, err := interval.WithDuration(slot.Start(), length)
			if err != nil || !candidate.Within(window) {
				continue
			}
			if len(DetectConflicts(candidate, resource.ID, reservations)) > 0 {
				continue
			}
			openings = append(openings, candidate)
			if len(openings) == limit {
				return openings
			}
		}
	}
	return openings
}
