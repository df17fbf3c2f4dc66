package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Kind labels a recurrence pattern variant.
type Kind string

const (
	KindNone    Kind = "none"
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

var (
	// ErrInvalidPattern indicates a pattern variant carries out-of-range fields.
	ErrInvalidPattern = errors.New("recurrence: invalid pattern")
	// ErrInvalidEnd indicates the end condition cannot bound the series.
	ErrInvalidEnd = errors.New("recurrence: invalid end condition")
)

// Pattern is one of None, Daily, Weekly or Monthly. The set of variants is
// closed; each variant carries only the fields it needs.
type Pattern interface {
	Kind() Kind
	validate() error
}

// None describes a single, non repeating booking.
type None struct{}

// Daily repeats every Every days.
type Daily struct {
	Every int
}

// Weekly repeats on Days in every Every-th week. An empty Days set repeats on
// the anchor's weekday.
type Weekly struct {
	Every int
	Days  []time.Weekday
}

// Monthly repeats on the anchor's day of month every Every months, clamped to
// the last day of shorter months.
type Monthly struct {
	Every int
}

func (None) Kind() Kind    { return KindNone }
func (Daily) Kind() Kind   { return KindDaily }
func (Weekly) Kind() Kind  { return KindWeekly }
func (Monthly) Kind() Kind { return KindMonthly }

func (None) validate() error { return nil }

func (p Daily) validate() error { return validateEvery(p.Every) }

func (p Monthly) validate() error { return validateEvery(p.Every) }

func (p Weekly) validate() error {
	if err := validateEvery(p.Every); err != nil {
		return err
	}
	for _, day := range p.Days {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: weekday %d is outside 0..6", ErrInvalidPattern, int(day))
		}
	}
	return nil
}

// weekdays returns the sorted, de-duplicated day set, falling back to the
// anchor weekday when none were selected.
func (p Weekly) weekdays(anchor time.Weekday) []time.Weekday {
	if len(p.Days) == 0 {
		return []time.Weekday{anchor}
	}
	days := slices.Clone(p.Days)
	slices.Sort(days)
	return slices.Compact(days)
}

func validateEvery(every int) error {
	if every < 1 {
		return fmt.Errorf("%w: interval must be a positive integer", ErrInvalidPattern)
	}
	return nil
}

// End bounds a series. It is one of Never, Until or After.
type End interface {
	isEnd()
}

// Never leaves the series open ended; only the expansion cutoff stops it.
type Never struct{}

// Until stops the series after the last occurrence starting on or before Date.
type Until struct {
	Date time.Time
}

// After stops the series once Count occurrences were produced.
type After struct {
	Count int
}

func (Never) isEnd() {}
func (Until) isEnd() {}
func (After) isEnd() {}

// Rule pairs a pattern with its end condition.
type Rule struct {
	Pattern Pattern
	End     End
}

// Single returns the rule for a one-off booking.
func Single() Rule {
	return Rule{Pattern: None{}, End: Never{}}
}

// IsRecurring reports whether the rule can produce more than one occurrence.
func (r Rule) IsRecurring() bool {
	if r.Pattern == nil {
		return false
	}
	return r.Pattern.Kind() != KindNone
}

// Validate checks the pattern fields and the end condition against the anchor start.
func (r Rule) Validate(anchorStart time.Time) error {
	if r.Pattern == nil {
		return fmt.Errorf("%w: pattern is required", ErrInvalidPattern)
	}
	if err := r.Pattern.validate(); err != nil {
		return err
	}
	if !r.IsRecurring() {
		return nil
	}

	switch end := r.End.(type) {
	case nil, Never:
	case Until:
		if end.Date.IsZero() {
			return fmt.Errorf("%w: end date is required", ErrInvalidEnd)
		}
		if end.Date.Before(anchorStart) {
			return fmt.Errorf("%w: end date precedes the first occurrence", ErrInvalidEnd)
		}
	case After:
		if end.Count < 1 {
			return fmt.Errorf("%w: occurrence count must be positive", ErrInvalidEnd)
		}
	default:
		return fmt.Errorf("%w: unsupported end condition %T", ErrInvalidEnd, end)
	}
	return nil
}
