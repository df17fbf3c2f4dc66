package testfixtures

import (
	"context"
	"testing"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
)

func TestServiceFactoryNewStack(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	stack := factory.NewStack(StackDeps{})

	resource, err := stack.Resources.CreateResource(ctx, NewResourceFixture().Input())
	if err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	if resource.ID != "res-001" {
		t.Fatalf("expected generated ID res-001, got %q", resource.ID)
	}

	result, err := stack.Bookings.CreateBooking(ctx, application.BookingParams{
		ResourceID:       resource.ID,
		Start:            At(1, 10, 0),
		End:              At(1, 11, 0),
		ParticipantCount: 2,
	})
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	if !result.Accepted() || len(result.Reservations) != 1 {
		t.Fatalf("expected one accepted reservation, got %+v", result)
	}
	if got := result.Reservations[0].CreatedAt; !got.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), got)
	}

	published := stack.Events.Events()
	if len(published) != 1 || published[0].Type != events.TypeReservationCreated {
		t.Fatalf("expected one created event, got %+v", published)
	}
}
