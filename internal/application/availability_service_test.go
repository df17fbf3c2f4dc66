package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/lock"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

func TestAvailabilityService_GetAvailability(t *testing.T) {
	t.Parallel()

	t.Run("validates the range", func(t *testing.T) {
		t.Parallel()
		svc := NewAvailabilityService(newResourceRepoStub(meetingRoom()), newReservationStoreStub(), AvailabilityOptions{MaxDays: 7}, nil)

		tests := map[string]struct {
			params AvailabilityParams
			field  string
		}{
			"missing from":   {params: AvailabilityParams{ResourceID: "room-1", To: testDay}, field: "from"},
			"missing to":     {params: AvailabilityParams{ResourceID: "room-1", From: testDay}, field: "to"},
			"reversed":       {params: AvailabilityParams{ResourceID: "room-1", From: testDay, To: testDay.AddDate(0, 0, -1)}, field: "to"},
			"range too long": {params: AvailabilityParams{ResourceID: "room-1", From: testDay, To: testDay.AddDate(0, 0, 7)}, field: "to"},
		}
		for name, tc := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := svc.GetAvailability(context.Background(), tc.params)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s error, got %v", tc.field, vErr.FieldErrors)
				}
			})
		}
	})

	t.Run("returns ErrNotFound for unknown resources", func(t *testing.T) {
		t.Parallel()
		svc := NewAvailabilityService(newResourceRepoStub(), newReservationStoreStub(), AvailabilityOptions{}, nil)

		_, err := svc.GetAvailability(context.Background(), AvailabilityParams{ResourceID: "missing", From: testDay, To: testDay})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("marks occupied slots and ignores cancelled reservations", func(t *testing.T) {
		t.Parallel()
		store := newReservationStoreStub(
			booked("r-1", at(0, 10, 0), at(0, 11, 30), scheduler.StatusConfirmed),
			booked("r-2", at(0, 14, 0), at(0, 15, 0), scheduler.StatusCancelled),
		)
		svc := NewAvailabilityService(newResourceRepoStub(meetingRoom()), store, AvailabilityOptions{}, nil)

		got, err := svc.GetAvailability(context.Background(), AvailabilityParams{
			ResourceID: "room-1",
			From:       at(0, 15, 45),
			To:         at(1, 0, 0),
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(got.Days) != 2 {
			t.Fatalf("expected two days, got %d", len(got.Days))
		}
		if !got.From.Equal(testDay) {
			t.Fatalf("expected from to be truncated to the date, got %v", got.From)
		}

		slots := got.Days[0].Slots
		if len(slots) != 10 {
			t.Fatalf("expected ten hourly slots, got %d", len(slots))
		}
		for i, slot := range slots {
			start := slot.Interval.Start().Hour()
			occupied := start == 10 || start == 11
			if slot.Available == occupied {
				t.Fatalf("slot %d (%02d:00) availability %v unexpected", i, start, slot.Available)
			}
			if occupied && (slot.Occupying == nil || slot.Occupying.ID != "r-1") {
				t.Fatalf("expected slot %02d:00 to be occupied by r-1, got %+v", start, slot.Occupying)
			}
		}
	})

	t.Run("serves repeated lookups from the cache until invalidated", func(t *testing.T) {
		t.Parallel()
		store := newReservationStoreStub()
		recorder := &recorderStub{}
		svc := NewAvailabilityService(newResourceRepoStub(meetingRoom()), store, AvailabilityOptions{Recorder: recorder}, fixedClock(testDay))
		params := AvailabilityParams{ResourceID: "room-1", From: testDay, To: testDay}

		for range 2 {
			if _, err := svc.GetAvailability(context.Background(), params); err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		}
		if store.calls() != 1 {
			t.Fatalf("expected one repository call, got %d", store.calls())
		}

		svc.InvalidateResource("room-1")
		if _, err := svc.GetAvailability(context.Background(), params); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if store.calls() != 2 {
			t.Fatalf("expected invalidation to force a reload, got %d calls", store.calls())
		}
		if len(recorder.lookups) != 3 || recorder.lookups[0] || !recorder.lookups[1] || recorder.lookups[2] {
			t.Fatalf("expected miss, hit, miss; got %v", recorder.lookups)
		}
	})

	t.Run("does not cache a grid that a concurrent booking made stale", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		now := fixedClock(at(0, 7, 0))
		resources := newResourceRepoStub(meetingRoom())
		store := newReservationStoreStub()
		availability := NewAvailabilityService(resources, store, AvailabilityOptions{}, now)
		bookings := NewBookingService(BookingServiceDeps{
			Resources:    resources,
			Reservations: store,
			Locker:       lock.NewMemoryLocker(),
			Invalidator:  availability,
			IDGenerator:  sequenceIDs("res"),
			Now:          now,
		})

		var fired atomic.Bool
		store.afterList = func() {
			if fired.Swap(true) {
				return
			}
			result, err := bookings.CreateBooking(ctx, singleBooking(at(0, 10, 0), at(0, 11, 0)))
			if err != nil || !result.Accepted() {
				t.Errorf("booking failed: %+v (%v)", result.Decision, err)
			}
		}

		params := AvailabilityParams{ResourceID: "room-1", From: testDay, To: testDay}
		if _, err := availability.GetAvailability(ctx, params); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		got, err := availability.GetAvailability(ctx, params)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		for _, slot := range got.Days[0].Slots {
			if slot.Interval.Start().Equal(at(0, 10, 0)) && slot.Available {
				t.Fatalf("expected 10:00 to be taken after the committed booking, got %+v", slot)
			}
		}
	})

	t.Run("skips the cache when disabled", func(t *testing.T) {
		t.Parallel()
		store := newReservationStoreStub()
		svc := NewAvailabilityService(newResourceRepoStub(meetingRoom()), store, AvailabilityOptions{CacheTTL: -1}, nil)
		params := AvailabilityParams{ResourceID: "room-1", From: testDay, To: testDay}

		for range 2 {
			if _, err := svc.GetAvailability(context.Background(), params); err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		}
		if store.calls() != 2 {
			t.Fatalf("expected two repository calls, got %d", store.calls())
		}
	})

	t.Run("closed days have no slots", func(t *testing.T) {
		t.Parallel()
		resource := meetingRoom()
		resource.Hours[time.Sunday] = scheduler.DailyHours{}
		svc := NewAvailabilityService(newResourceRepoStub(resource), newReservationStoreStub(), AvailabilityOptions{}, nil)

		sunday := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
		got, err := svc.GetAvailability(context.Background(), AvailabilityParams{ResourceID: "room-1", From: sunday, To: sunday})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(got.Days) != 1 || len(got.Days[0].Slots) != 0 {
			t.Fatalf("expected one empty day, got %+v", got.Days)
		}
	})
}
