package scheduler

import (
	"cmp"
	"slices"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

// OccurrenceCheck reports the conflicts of a single occurrence.
type OccurrenceCheck struct {
	Occurrence interval.Interval
	Conflicts  []Reservation
}

// Free reports whether the occurrence has no blocking reservation.
func (c OccurrenceCheck) Free() bool {
	return len(c.Conflicts) == 0
}

// DetectConflicts returns the pending or confirmed reservations of resourceID
// that overlap candidate, ordered by start time. Reservations of other
// resources and non-blocking reservations are ignored.
func DetectConflicts(candidate interval.Interval, resourceID string, reservations []Reservation) []Reservation {
	var conflicts []Reservation
	for _, existing := range reservations {
		if existing.ResourceID != resourceID || !existing.Blocks() {
			continue
		}
		if interval.Overlaps(candidate, existing.Interval) {
			conflicts = append(conflicts, existing)
		}
	}
	sortByStart(conflicts)
	return conflicts
}

// CheckOccurrences runs DetectConflicts for every occurrence independently.
func CheckOccurrences(occurrences []interval.Interval, resourceID string, reservations []Reservation) []OccurrenceCheck {
	checks := make([]OccurrenceCheck, 0, len(occurrences))
	for _, occ := range occurrences {
		checks = append(checks, OccurrenceCheck{
			Occurrence: occ,
			Conflicts:  DetectConflicts(occ, resourceID, reservations),
		})
	}
	return checks
}

// FreeOccurrences returns the occurrences whose checks found no conflict.
func FreeOccurrences(checks []OccurrenceCheck) []interval.Interval {
	out := make([]interval.Interval, 0, len(checks))
	for _, check := range checks {
		if check.Free() {
			out = append(out, check.Occurrence)
		}
	}
	return out
}

func sortByStart(reservations []Reservation) {
	slices.SortStableFunc(reservations, func(a, b Reservation) int {
		if c := a.Interval.Start().Compare(b.Interval.Start()); c != 0 {
			return c
		}
		if c := a.Interval.End().Compare(b.Interval.End()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
