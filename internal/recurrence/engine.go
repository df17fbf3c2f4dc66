package recurrence

import (
	"errors"
	"iter"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

var (
	// ErrMissingCutoff indicates the caller did not supply the mandatory hard cutoff.
	ErrMissingCutoff = errors.New("recurrence: expansion requires a cutoff")
	// ErrInvalidCutoff indicates the cutoff does not leave room for the anchor.
	ErrInvalidCutoff = errors.New("recurrence: cutoff must be after the anchor start")
	// ErrBoundsExceeded reports that a series was truncated at the cutoff.
	ErrBoundsExceeded = errors.New("recurrence: series truncated at cutoff")
)

// Expansion is a materialized series.
type Expansion struct {
	Occurrences []interval.Interval
	// Truncated is set when the cutoff stopped a series the rule would have continued.
	Truncated bool
	Cutoff    time.Time
}

// Err returns ErrBoundsExceeded when the series was truncated.
func (e Expansion) Err() error {
	if e.Truncated {
		return ErrBoundsExceeded
	}
	return nil
}

// Engine expands recurrence rules into concrete occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates calendar arithmetic in loc.
// When loc is nil the anchor's own location is used.
func NewEngine(loc *time.Location) *Engine {
	return &Engine{location: loc}
}

// Occurrences returns the ordered occurrence sequence for the rule. The
// sequence is lazy and can be ranged over any number of times. Generation
// always stops before cutoff, whatever the rule's end condition says.
func (e *Engine) Occurrences(anchor interval.Interval, rule Rule, cutoff time.Time) (iter.Seq[interval.Interval], error) {
	anchor, err := e.prepare(anchor, rule, cutoff)
	if err != nil {
		return nil, err
	}
	return func(yield func(interval.Interval) bool) {
		e.walk(anchor, rule, cutoff, yield)
	}, nil
}

// Expand materializes the sequence and reports whether the cutoff truncated it.
func (e *Engine) Expand(anchor interval.Interval, rule Rule, cutoff time.Time) (Expansion, error) {
	anchor, err := e.prepare(anchor, rule, cutoff)
	if err != nil {
		return Expansion{}, err
	}

	out := Expansion{Cutoff: cutoff}
	out.Truncated = e.walk(anchor, rule, cutoff, func(occ interval.Interval) bool {
		out.Occurrences = append(out.Occurrences, occ)
		return true
	})
	return out, nil
}

func (e *Engine) prepare(anchor interval.Interval, rule Rule, cutoff time.Time) (interval.Interval, error) {
	if anchor.IsZero() {
		return interval.Interval{}, interval.ErrInvalidInterval
	}
	if err := rule.Validate(anchor.Start()); err != nil {
		return interval.Interval{}, err
	}
	if !rule.IsRecurring() {
		return e.normalize(anchor), nil
	}
	if cutoff.IsZero() {
		return interval.Interval{}, ErrMissingCutoff
	}
	if !cutoff.After(anchor.Start()) {
		return interval.Interval{}, ErrInvalidCutoff
	}
	return e.normalize(anchor), nil
}

func (e *Engine) normalize(anchor interval.Interval) interval.Interval {
	if e == nil || e.location == nil {
		return anchor
	}
	start := anchor.Start().In(e.location)
	return anchor.Shift(start)
}

// walk feeds occurrences to yield and returns true when the cutoff, rather
// than the rule or the consumer, ended the series.
func (e *Engine) walk(anchor interval.Interval, rule Rule, cutoff time.Time, yield func(interval.Interval) bool) bool {
	if !rule.IsRecurring() {
		yield(anchor)
		return false
	}

	limit := 0
	var until time.Time
	switch end := rule.End.(type) {
	case After:
		limit = end.Count
	case Until:
		until = end.Date
	}

	emitted := 0
	emit := func(start time.Time) (next bool, truncated bool) {
		if limit > 0 && emitted >= limit {
			return false, false
		}
		if !until.IsZero() && start.After(until) {
			return false, false
		}
		if !start.Before(cutoff) {
			return false, true
		}
		emitted++
		return yield(anchor.Shift(start)), false
	}

	start := anchor.Start()
	switch p := rule.Pattern.(type) {
	case Daily:
		for k := 0; ; k++ {
			next, truncated := emit(start.AddDate(0, 0, k*p.Every))
			if !next {
				return truncated
			}
		}
	case Weekly:
		days := p.weekdays(start.Weekday())
		weekStart := startOfDay(start).AddDate(0, 0, -int(start.Weekday()))
		for week := 0; ; week += p.Every {
			for _, day := range days {
				date := weekStart.AddDate(0, 0, week*7+int(day))
				candidate := combineDateTime(date, start)
				if candidate.Before(start) {
					continue
				}
				next, truncated := emit(candidate)
				if !next {
					return truncated
				}
			}
		}
	case Monthly:
		for k := 0; ; k++ {
			next, truncated := emit(addMonthsClamped(start, k*p.Every))
			if !next {
				return truncated
			}
		}
	}
	return false
}

// addMonthsClamped moves t by months calendar months, keeping the day of
// month where possible and clamping to the month's last day otherwise.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := t.Day()
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func combineDateTime(dateSource, template time.Time) time.Time {
	y, m, d := dateSource.Date()
	return time.Date(y, m, d, template.Hour(), template.Minute(), template.Second(), template.Nanosecond(), template.Location())
}
