package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence/memory"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/testfixtures"
)

type backend interface {
	persistence.ResourceRepository
	persistence.ReservationRepository
}

// backends runs every contract against each storage implementation.
func backends(t *testing.T) map[string]func(t *testing.T) backend {
	t.Helper()
	return map[string]func(t *testing.T) backend{
		"memory": func(*testing.T) backend { return memory.Open() },
		"sqlite": func(t *testing.T) backend { return testfixtures.NewSQLiteHarness(t).Storage },
	}
}

func ids(reservations []persistence.Reservation) []string {
	out := make([]string, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, r.ID)
	}
	return out
}

func TestResourceRepositoryContract(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := open(t)

			room := testfixtures.NewResourceFixture(testfixtures.WithResourceID("room-b"), testfixtures.WithResourceName("Beta")).Persistence()
			desk := testfixtures.HotDesk(testfixtures.WithResourceID("desk-a"), testfixtures.WithResourceName("Alpha")).Persistence()

			for _, r := range []persistence.Resource{room, desk} {
				if err := repo.CreateResource(ctx, r); err != nil {
					t.Fatalf("CreateResource(%s) returned error: %v", r.ID, err)
				}
			}
			if err := repo.CreateResource(ctx, room); !errors.Is(err, persistence.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}

			got, err := repo.GetResource(ctx, "room-b")
			if err != nil {
				t.Fatalf("GetResource returned error: %v", err)
			}
			if got.Name != "Beta" || got.Capacity != room.Capacity || len(got.Hours) != 5 {
				t.Fatalf("unexpected resource %+v", got)
			}
			if got.Hours[0].Weekday != time.Monday || got.Hours[0].Open != "08:00" || got.Hours[0].Close != "18:00" {
				t.Fatalf("unexpected hours %+v", got.Hours)
			}

			list, err := repo.ListResources(ctx)
			if err != nil {
				t.Fatalf("ListResources returned error: %v", err)
			}
			if len(list) != 2 || list[0].ID != "desk-a" || list[1].ID != "room-b" {
				t.Fatalf("expected resources ordered by name, got %+v", list)
			}

			room.Capacity = 10
			room.Hours = room.Hours[:1]
			room.UpdatedAt = room.UpdatedAt.Add(time.Hour)
			if err := repo.UpdateResource(ctx, room); err != nil {
				t.Fatalf("UpdateResource returned error: %v", err)
			}
			got, err = repo.GetResource(ctx, "room-b")
			if err != nil {
				t.Fatalf("GetResource returned error: %v", err)
			}
			if got.Capacity != 10 || len(got.Hours) != 1 || !got.CreatedAt.Equal(testfixtures.ReferenceTime()) {
				t.Fatalf("unexpected updated resource %+v", got)
			}

			missing := room
			missing.ID = "nope"
			if err := repo.UpdateResource(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on update, got %v", err)
			}
			if _, err := repo.GetResource(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on get, got %v", err)
			}

			if err := repo.DeleteResource(ctx, "desk-a"); err != nil {
				t.Fatalf("DeleteResource returned error: %v", err)
			}
			if err := repo.DeleteResource(ctx, "desk-a"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestReservationRepositoryContract(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := open(t)

			room := testfixtures.NewResourceFixture(testfixtures.WithResourceID("room-1")).Persistence()
			if err := repo.CreateResource(ctx, room); err != nil {
				t.Fatalf("CreateResource returned error: %v", err)
			}

			parent := testfixtures.NewReservationFixture("room-1",
				testfixtures.WithReservationID("r-1"),
				testfixtures.WithWindow(testfixtures.At(1, 9, 0), testfixtures.At(1, 10, 0)),
				testfixtures.WithStatus(scheduler.StatusPending),
			)
			child := testfixtures.NewReservationFixture("room-1",
				testfixtures.WithReservationID("r-2"),
				testfixtures.WithWindow(testfixtures.At(8, 9, 0), testfixtures.At(8, 10, 0)),
				testfixtures.WithStatus(scheduler.StatusPending),
				testfixtures.WithParent("r-1"),
			)
			other := testfixtures.NewReservationFixture("room-1",
				testfixtures.WithReservationID("r-3"),
				testfixtures.WithWindow(testfixtures.At(1, 10, 0), testfixtures.At(1, 11, 0)),
			)

			if err := repo.CreateReservations(ctx, []persistence.Reservation{parent.Persistence(), child.Persistence()}); err != nil {
				t.Fatalf("CreateReservations returned error: %v", err)
			}
			if err := repo.CreateReservations(ctx, []persistence.Reservation{other.Persistence()}); err != nil {
				t.Fatalf("CreateReservations returned error: %v", err)
			}

			t.Run("batch is atomic", func(t *testing.T) {
				fresh := testfixtures.NewReservationFixture("room-1", testfixtures.WithReservationID("r-9")).Persistence()
				err := repo.CreateReservations(ctx, []persistence.Reservation{fresh, parent.Persistence()})
				if !errors.Is(err, persistence.ErrDuplicate) {
					t.Fatalf("expected ErrDuplicate, got %v", err)
				}
				if _, err := repo.GetReservation(ctx, "r-9"); !errors.Is(err, persistence.ErrNotFound) {
					t.Fatalf("failed batch must not store r-9, got %v", err)
				}
			})

			t.Run("unknown resource", func(t *testing.T) {
				orphan := testfixtures.NewReservationFixture("ghost").Persistence()
				err := repo.CreateReservations(ctx, []persistence.Reservation{orphan})
				if !errors.Is(err, persistence.ErrForeignKeyViolation) {
					t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
				}
			})

			t.Run("round trip", func(t *testing.T) {
				got, err := repo.GetReservation(ctx, "r-2")
				if err != nil {
					t.Fatalf("GetReservation returned error: %v", err)
				}
				if got.RecurrenceParentID == nil || *got.RecurrenceParentID != "r-1" {
					t.Fatalf("expected parent r-1, got %v", got.RecurrenceParentID)
				}
				if !got.Start.Equal(child.Start) || !got.End.Equal(child.End) || got.Status != "pending" {
					t.Fatalf("unexpected reservation %+v", got)
				}
			})

			t.Run("filters", func(t *testing.T) {
				dayStart, dayEnd := testfixtures.At(1, 0, 0), testfixtures.At(2, 0, 0)
				tests := []struct {
					name   string
					filter persistence.ReservationFilter
					want   []string
				}{
					{name: "resource", filter: persistence.ReservationFilter{ResourceID: "room-1"}, want: []string{"r-1", "r-3", "r-2"}},
					{name: "parent", filter: persistence.ReservationFilter{ParentID: "r-1"}, want: []string{"r-2"}},
					{name: "status", filter: persistence.ReservationFilter{Statuses: []string{"confirmed"}}, want: []string{"r-3"}},
					{name: "window", filter: persistence.ReservationFilter{EndsAfter: &dayStart, StartsBefore: &dayEnd}, want: []string{"r-1", "r-3"}},
				}
				for _, tt := range tests {
					got, err := repo.ListReservations(ctx, tt.filter)
					if err != nil {
						t.Fatalf("%s: ListReservations returned error: %v", tt.name, err)
					}
					if !slices.Equal(ids(got), tt.want) {
						t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, ids(got))
					}
				}

				// Touching intervals do not overlap.
				touchEnd := testfixtures.At(1, 9, 0)
				got, err := repo.ListReservations(ctx, persistence.ReservationFilter{StartsBefore: &touchEnd})
				if err != nil {
					t.Fatalf("ListReservations returned error: %v", err)
				}
				if len(got) != 0 {
					t.Fatalf("expected no reservation starting before 09:00, got %v", ids(got))
				}
			})

			t.Run("status update", func(t *testing.T) {
				updatedAt := testfixtures.At(0, 12, 0)
				err := repo.UpdateReservationStatus(ctx, []string{"r-1", "missing"}, nil, "confirmed", updatedAt)
				if !errors.Is(err, persistence.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				got, _ := repo.GetReservation(ctx, "r-1")
				if got.Status != "pending" {
					t.Fatalf("failed update must not change r-1, got %s", got.Status)
				}

				if err := repo.UpdateReservationStatus(ctx, []string{"r-1", "r-2"}, []string{"pending", "confirmed"}, "confirmed", updatedAt); err != nil {
					t.Fatalf("UpdateReservationStatus returned error: %v", err)
				}
				got, _ = repo.GetReservation(ctx, "r-2")
				if got.Status != "confirmed" || !got.UpdatedAt.Equal(updatedAt) {
					t.Fatalf("unexpected reservation after update %+v", got)
				}
			})

			t.Run("status update expects the current status", func(t *testing.T) {
				if err := repo.UpdateReservationStatus(ctx, []string{"r-1"}, []string{"confirmed"}, "cancelled", testfixtures.At(0, 12, 30)); err != nil {
					t.Fatalf("UpdateReservationStatus returned error: %v", err)
				}

				err := repo.UpdateReservationStatus(ctx, []string{"r-1", "r-2"}, []string{"pending"}, "confirmed", testfixtures.At(0, 13, 0))
				if !errors.Is(err, persistence.ErrStatusMismatch) {
					t.Fatalf("expected ErrStatusMismatch, got %v", err)
				}
				err = repo.UpdateReservationStatus(ctx, []string{"r-1", "r-2"}, []string{"pending", "confirmed"}, "rejected", testfixtures.At(0, 13, 0))
				if !errors.Is(err, persistence.ErrStatusMismatch) {
					t.Fatalf("expected ErrStatusMismatch, got %v", err)
				}
				if got, _ := repo.GetReservation(ctx, "r-1"); got.Status != "cancelled" {
					t.Fatalf("terminal status must survive, got %s", got.Status)
				}
				if got, _ := repo.GetReservation(ctx, "r-2"); got.Status != "confirmed" {
					t.Fatalf("failed update must not change r-2, got %s", got.Status)
				}
			})

			t.Run("resource with reservations cannot be deleted", func(t *testing.T) {
				if err := repo.DeleteResource(ctx, "room-1"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
					t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
				}
			})
		})
	}
}
