package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

func anchorAt(y int, m time.Month, d, hour, minute int, length time.Duration) interval.Interval {
	start := time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
	return interval.MustNew(start, start.Add(length))
}

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	// Monday, 3 March 2025.
	anchor := anchorAt(2025, time.March, 3, 9, 0, 90*time.Minute)
	farCutoff := anchor.Start().AddDate(2, 0, 0)

	t.Run("none yields exactly the anchor", func(t *testing.T) {
		t.Parallel()
		exp, err := engine.Expand(anchor, Single(), time.Time{})
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 1)
		assert.True(t, exp.Occurrences[0].Equal(anchor))
		assert.False(t, exp.Truncated)
	})

	t.Run("daily steps by interval days", func(t *testing.T) {
		t.Parallel()
		exp, err := engine.Expand(anchor, Rule{Pattern: Daily{Every: 2}, End: After{Count: 4}}, farCutoff)
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 4)
		for i, occ := range exp.Occurrences {
			assert.True(t, occ.Start().Equal(anchor.Start().AddDate(0, 0, 2*i)), "occurrence %d", i)
			assert.Equal(t, anchor.Duration(), occ.Duration())
		}
	})

	t.Run("daily stops at end date inclusive of its start", func(t *testing.T) {
		t.Parallel()
		until := time.Date(2025, time.March, 7, 9, 0, 0, 0, time.UTC)
		exp, err := engine.Expand(anchor, Rule{Pattern: Daily{Every: 1}, End: Until{Date: until}}, farCutoff)
		require.NoError(t, err)
		assert.Len(t, exp.Occurrences, 5)
		assert.False(t, exp.Truncated)
	})

	t.Run("weekly mon wed fri with twelve occurrences", func(t *testing.T) {
		t.Parallel()
		rule := Rule{
			Pattern: Weekly{Every: 1, Days: []time.Weekday{time.Friday, time.Monday, time.Wednesday}},
			End:     After{Count: 12},
		}
		exp, err := engine.Expand(anchor, rule, farCutoff)
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 12)

		allowed := map[time.Weekday]bool{time.Monday: true, time.Wednesday: true, time.Friday: true}
		for i, occ := range exp.Occurrences {
			assert.True(t, allowed[occ.Start().Weekday()], "occurrence %d on %s", i, occ.Start().Weekday())
			assert.Equal(t, 9, occ.Start().Hour())
			if i > 0 {
				assert.False(t, occ.Start().Before(exp.Occurrences[i-1].Start()), "occurrences must be ordered")
			}
		}
		last := exp.Occurrences[11].Start()
		assert.True(t, last.Equal(time.Date(2025, time.March, 28, 9, 0, 0, 0, time.UTC)), "got %s", last)
	})

	t.Run("weekly interval skips whole weeks", func(t *testing.T) {
		t.Parallel()
		rule := Rule{
			Pattern: Weekly{Every: 2, Days: []time.Weekday{time.Monday, time.Wednesday}},
			End:     After{Count: 4},
		}
		exp, err := engine.Expand(anchor, rule, farCutoff)
		require.NoError(t, err)
		want := []time.Time{
			time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 19, 9, 0, 0, 0, time.UTC),
		}
		require.Len(t, exp.Occurrences, len(want))
		for i, w := range want {
			assert.True(t, exp.Occurrences[i].Start().Equal(w), "occurrence %d: got %s", i, exp.Occurrences[i].Start())
		}
	})

	t.Run("weekly skips selected days before the anchor", func(t *testing.T) {
		t.Parallel()
		// Wednesday anchor with a Monday selection starts the following week.
		wed := anchorAt(2025, time.March, 5, 14, 0, time.Hour)
		rule := Rule{Pattern: Weekly{Every: 1, Days: []time.Weekday{time.Monday}}, End: After{Count: 1}}
		exp, err := engine.Expand(wed, rule, farCutoff)
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 1)
		assert.True(t, exp.Occurrences[0].Start().Equal(time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)))
	})

	t.Run("weekly without days falls back to the anchor weekday", func(t *testing.T) {
		t.Parallel()
		exp, err := engine.Expand(anchor, Rule{Pattern: Weekly{Every: 1}, End: After{Count: 3}}, farCutoff)
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 3)
		for _, occ := range exp.Occurrences {
			assert.Equal(t, time.Monday, occ.Start().Weekday())
		}
	})

	t.Run("monthly clamps to the last day of short months", func(t *testing.T) {
		t.Parallel()
		jan31 := anchorAt(2025, time.January, 31, 10, 0, time.Hour)
		exp, err := engine.Expand(jan31, Rule{Pattern: Monthly{Every: 1}, End: After{Count: 3}}, farCutoff)
		require.NoError(t, err)
		require.Len(t, exp.Occurrences, 3)
		assert.True(t, exp.Occurrences[1].Start().Equal(time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC)))
		assert.True(t, exp.Occurrences[2].Start().Equal(time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("monthly clamp honours leap years", func(t *testing.T) {
		t.Parallel()
		jan31 := anchorAt(2024, time.January, 31, 10, 0, time.Hour)
		exp, err := engine.Expand(jan31, Rule{Pattern: Monthly{Every: 1}, End: After{Count: 2}}, farCutoff)
		require.NoError(t, err)
		assert.True(t, exp.Occurrences[1].Start().Equal(time.Date(2024, time.February, 29, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("open ended series is truncated at the cutoff", func(t *testing.T) {
		t.Parallel()
		cutoff := anchor.Start().AddDate(0, 0, 10)
		exp, err := engine.Expand(anchor, Rule{Pattern: Daily{Every: 1}, End: Never{}}, cutoff)
		require.NoError(t, err)
		assert.Len(t, exp.Occurrences, 10)
		assert.True(t, exp.Truncated)
		assert.ErrorIs(t, exp.Err(), ErrBoundsExceeded)
	})

	t.Run("cutoff wins over a later end date", func(t *testing.T) {
		t.Parallel()
		cutoff := anchor.Start().AddDate(0, 0, 3)
		rule := Rule{Pattern: Daily{Every: 1}, End: Until{Date: anchor.Start().AddDate(0, 1, 0)}}
		exp, err := engine.Expand(anchor, rule, cutoff)
		require.NoError(t, err)
		assert.Len(t, exp.Occurrences, 3)
		assert.True(t, exp.Truncated)
	})

	t.Run("count reached exactly at the cutoff is not a truncation", func(t *testing.T) {
		t.Parallel()
		cutoff := anchor.Start().AddDate(0, 0, 3)
		exp, err := engine.Expand(anchor, Rule{Pattern: Daily{Every: 1}, End: After{Count: 3}}, cutoff)
		require.NoError(t, err)
		assert.Len(t, exp.Occurrences, 3)
		assert.False(t, exp.Truncated)
	})
}

func TestEngine_Validation(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	anchor := anchorAt(2025, time.March, 3, 9, 0, time.Hour)
	cutoff := anchor.Start().AddDate(1, 0, 0)

	cases := []struct {
		name string
		rule Rule
		cut  time.Time
		want error
	}{
		{"missing cutoff", Rule{Pattern: Daily{Every: 1}, End: Never{}}, time.Time{}, ErrMissingCutoff},
		{"cutoff before anchor", Rule{Pattern: Daily{Every: 1}, End: Never{}}, anchor.Start(), ErrInvalidCutoff},
		{"zero interval", Rule{Pattern: Daily{Every: 0}, End: Never{}}, cutoff, ErrInvalidPattern},
		{"bad weekday", Rule{Pattern: Weekly{Every: 1, Days: []time.Weekday{7}}, End: Never{}}, cutoff, ErrInvalidPattern},
		{"zero count", Rule{Pattern: Monthly{Every: 1}, End: After{Count: 0}}, cutoff, ErrInvalidEnd},
		{"end before anchor", Rule{Pattern: Daily{Every: 1}, End: Until{Date: anchor.Start().Add(-time.Hour)}}, cutoff, ErrInvalidEnd},
		{"nil pattern", Rule{}, cutoff, ErrInvalidPattern},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := engine.Expand(anchor, tc.rule, tc.cut)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEngine_OccurrencesIsRestartable(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	anchor := anchorAt(2025, time.March, 3, 9, 0, time.Hour)
	seq, err := engine.Occurrences(anchor, Rule{Pattern: Daily{Every: 1}, End: Never{}}, anchor.Start().AddDate(0, 0, 5))
	require.NoError(t, err)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 5, count())
	assert.Equal(t, 5, count())

	first := 0
	for range seq {
		first++
		break
	}
	assert.Equal(t, 1, first)
}

func TestEngine_NormalizesToLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("WET", 0)
	engine := NewEngine(loc)
	anchor := anchorAt(2025, time.March, 3, 9, 0, time.Hour)
	exp, err := engine.Expand(anchor, Rule{Pattern: Daily{Every: 1}, End: After{Count: 2}}, anchor.Start().AddDate(0, 1, 0))
	require.NoError(t, err)
	for _, occ := range exp.Occurrences {
		assert.Equal(t, loc, occ.Start().Location())
	}
}
