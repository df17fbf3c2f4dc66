package scheduler

import (
	"errors"
	"time"
)

// ErrInvalidRange indicates date_to precedes date_from.
var ErrInvalidRange = errors.New("scheduler: date range end precedes its start")

const dayKeyLayout = time.DateOnly

// Aggregate computes, for every calendar day in the closed range [from, to],
// the resource's slots partitioned into available and unavailable. An
// unavailable slot carries the earliest-starting blocking reservation.
// Only the calendar dates of from and to are significant.
func Aggregate(resource Resource, reservations []Reservation, from, to time.Time) ([]DayAvailability, error) {
	if err := resource.Validate(); err != nil {
		return nil, err
	}
	first, last := startOfDay(from), startOfDay(to)
	if last.Before(first) {
		return nil, ErrInvalidRange
	}

	byDay := indexByDay(resource.ID, reservations, first, last)

	var days []DayAvailability
	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		dayReservations := byDay[date.Format(dayKeyLayout)]
		day := DayAvailability{Date: date}
		for slot := range Slots(resource.Hours.For(date.Weekday()), resource.SlotGranularity, date) {
			entry := AvailabilitySlot{Interval: slot, Available: true}
			if conflicts := DetectConflicts(slot, resource.ID, dayReservations); len(conflicts) > 0 {
				occupying := conflicts[0]
				entry.Available = false
				entry.Occupying = &occupying
			}
			day.Slots = append(day.Slots, entry)
		}
		days = append(days, day)
	}
	return days, nil
}

// indexByDay buckets blocking reservations of resourceID under every
// calendar day in [first, last] that they touch.
func indexByDay(resourceID string, reservations []Reservation, first, last time.Time) map[string][]Reservation {
	index := make(map[string][]Reservation)
	for _, r := range reservations {
		if r.ResourceID != resourceID || !r.Blocks() || r.Interval.IsZero() {
			continue
		}
		day := startOfDay(r.Interval.Start().In(first.Location()))
		if day.Before(first) {
			day = first
		}
		// The end is exclusive, so a reservation ending at midnight does not touch the next day.
		lastTouched := startOfDay(r.Interval.End().Add(-time.Nanosecond).In(first.Location()))
		if lastTouched.After(last) {
			lastTouched = last
		}
		for ; !day.After(lastTouched); day = day.AddDate(0, 0, 1) {
			key := day.Format(dayKeyLayout)
			index[key] = append(index[key], r)
		}
	}
	for key := range index {
		sortByStart(index[key])
	}
	return index
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
