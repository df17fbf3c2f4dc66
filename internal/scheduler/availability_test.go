package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
)

func officeResource() Resource {
	return Resource{
		ID:              "room-1",
		Name:            "Atlas",
		Kind:            KindRoom,
		Capacity:        4,
		Hours:           UniformHours(Clock(8, 0), Clock(18, 0)),
		SlotGranularity: time.Hour,
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("end to end single day", func(t *testing.T) {
		t.Parallel()
		existing := []Reservation{reservation("r-1", span(10, 12), StatusConfirmed)}

		days, err := Aggregate(officeResource(), existing, day, day)
		require.NoError(t, err)
		require.Len(t, days, 1)
		slots := days[0].Slots
		require.Len(t, slots, 10)

		available := 0
		for _, slot := range slots {
			h := slot.Interval.Start().Hour()
			if h == 10 || h == 11 {
				assert.False(t, slot.Available, "slot at %d:00", h)
				require.NotNil(t, slot.Occupying)
				assert.Equal(t, "r-1", slot.Occupying.ID)
				continue
			}
			assert.True(t, slot.Available, "slot at %d:00", h)
			assert.Nil(t, slot.Occupying)
			available++
		}
		assert.Equal(t, 8, available)
	})

	t.Run("attaches the earliest occupying reservation", func(t *testing.T) {
		t.Parallel()
		existing := []Reservation{
			reservation("second", interval.MustNew(hm(9, 30), hm(10, 0)), StatusPending),
			reservation("first", interval.MustNew(hm(9, 0), hm(9, 30)), StatusConfirmed),
		}
		days, err := Aggregate(officeResource(), existing, day, day)
		require.NoError(t, err)
		slot := days[0].Slots[1]
		require.False(t, slot.Available)
		assert.Equal(t, "first", slot.Occupying.ID)
	})

	t.Run("spans multiple days and multi-day reservations", func(t *testing.T) {
		t.Parallel()
		overnight := reservation("overnight", interval.MustNew(hm(17, 0), hm(9, 0).AddDate(0, 0, 1)), StatusConfirmed)
		days, err := Aggregate(officeResource(), []Reservation{overnight}, day, day.AddDate(0, 0, 2))
		require.NoError(t, err)
		require.Len(t, days, 3)

		assert.False(t, days[0].Slots[9].Available, "17:00 on the first day")
		assert.False(t, days[1].Slots[0].Available, "08:00 on the second day")
		assert.True(t, days[1].Slots[1].Available, "09:00 on the second day")
		for _, slot := range days[2].Slots {
			assert.True(t, slot.Available)
		}
	})

	t.Run("reservation ending at midnight does not leak into the next day", func(t *testing.T) {
		t.Parallel()
		res := officeResource()
		res.Hours = UniformHours(Clock(0, 0), Clock(24, 0))
		late := reservation("late", interval.MustNew(hm(23, 0), day.AddDate(0, 0, 1)), StatusConfirmed)
		days, err := Aggregate(res, []Reservation{late}, day, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.False(t, days[0].Slots[23].Available)
		assert.True(t, days[1].Slots[0].Available)
	})

	t.Run("closed weekdays produce empty days", func(t *testing.T) {
		t.Parallel()
		res := officeResource()
		res.Hours[day.Weekday()] = DailyHours{}
		days, err := Aggregate(res, nil, day, day)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Empty(t, days[0].Slots)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		existing := []Reservation{
			reservation("a", span(9, 10), StatusConfirmed),
			reservation("b", span(13, 15), StatusPending),
		}
		first, err := Aggregate(officeResource(), existing, day, day.AddDate(0, 0, 6))
		require.NoError(t, err)
		second, err := Aggregate(officeResource(), existing, day, day.AddDate(0, 0, 6))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("availability agrees with conflict detection", func(t *testing.T) {
		t.Parallel()
		existing := []Reservation{
			reservation("a", interval.MustNew(hm(9, 15), hm(9, 45)), StatusConfirmed),
			reservation("b", span(13, 15), StatusPending),
			reservation("c", span(15, 17), StatusCancelled),
		}
		days, err := Aggregate(officeResource(), existing, day, day)
		require.NoError(t, err)
		for _, slot := range days[0].Slots {
			conflicts := DetectConflicts(slot.Interval, "room-1", existing)
			assert.Equal(t, len(conflicts) == 0, slot.Available, "slot %s", slot.Interval)
		}
	})

	t.Run("rejects inverted ranges and invalid resources", func(t *testing.T) {
		t.Parallel()
		_, err := Aggregate(officeResource(), nil, day.AddDate(0, 0, 1), day)
		assert.ErrorIs(t, err, ErrInvalidRange)

		res := officeResource()
		res.SlotGranularity = 0
		_, err = Aggregate(res, nil, day, day)
		assert.ErrorIs(t, err, ErrInvalidResource)
	})
}
