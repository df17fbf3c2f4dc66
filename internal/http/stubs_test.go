package http

import (
	"context"
	"errors"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

var errStubNotConfigured = errors.New("stub not configured")

type resourceServiceStub struct {
	createFn func(context.Context, application.ResourceInput) (scheduler.Resource, error)
	updateFn func(context.Context, application.UpdateResourceParams) (scheduler.Resource, error)
	getFn    func(context.Context, string) (scheduler.Resource, error)
	listFn   func(context.Context) ([]scheduler.Resource, error)
	deleteFn func(context.Context, string) error
}

func (s *resourceServiceStub) CreateResource(ctx context.Context, input application.ResourceInput) (scheduler.Resource, error) {
	if s.createFn == nil {
		return scheduler.Resource{}, errStubNotConfigured
	}
	return s.createFn(ctx, input)
}

func (s *resourceServiceStub) UpdateResource(ctx context.Context, params application.UpdateResourceParams) (scheduler.Resource, error) {
	if s.updateFn == nil {
		return scheduler.Resource{}, errStubNotConfigured
	}
	return s.updateFn(ctx, params)
}

func (s *resourceServiceStub) GetResource(ctx context.Context, id string) (scheduler.Resource, error) {
	if s.getFn == nil {
		return scheduler.Resource{}, errStubNotConfigured
	}
	return s.getFn(ctx, id)
}

func (s *resourceServiceStub) ListResources(ctx context.Context) ([]scheduler.Resource, error) {
	if s.listFn == nil {
		return nil, errStubNotConfigured
	}
	return s.listFn(ctx)
}

func (s *resourceServiceStub) DeleteResource(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return errStubNotConfigured
	}
	return s.deleteFn(ctx, id)
}

type availabilityServiceStub struct {
	calls int
	fn    func(context.Context, application.AvailabilityParams) (application.Availability, error)
}

func (s *availabilityServiceStub) GetAvailability(ctx context.Context, params application.AvailabilityParams) (application.Availability, error) {
	s.calls++
	if s.fn == nil {
		return application.Availability{}, errStubNotConfigured
	}
	return s.fn(ctx, params)
}

type bookingServiceStub struct {
	validateFn func(context.Context, application.BookingParams) (application.BookingResult, error)
	createFn   func(context.Context, application.BookingParams) (application.BookingResult, error)
	getFn      func(context.Context, string) (scheduler.Reservation, error)
	listFn     func(context.Context, application.ListReservationsParams) ([]scheduler.Reservation, error)
	cancelFn   func(context.Context, application.CancelParams) ([]scheduler.Reservation, error)
	approveFn  func(context.Context, string) ([]scheduler.Reservation, error)
	rejectFn   func(context.Context, string) ([]scheduler.Reservation, error)
}

func (s *bookingServiceStub) ValidateBooking(ctx context.Context, params application.BookingParams) (application.BookingResult, error) {
	if s.validateFn == nil {
		return application.BookingResult{}, errStubNotConfigured
	}
	return s.validateFn(ctx, params)
}

func (s *bookingServiceStub) CreateBooking(ctx context.Context, params application.BookingParams) (application.BookingResult, error) {
	if s.createFn == nil {
		return application.BookingResult{}, errStubNotConfigured
	}
	return s.createFn(ctx, params)
}

func (s *bookingServiceStub) GetReservation(ctx context.Context, id string) (scheduler.Reservation, error) {
	if s.getFn == nil {
		return scheduler.Reservation{}, errStubNotConfigured
	}
	return s.getFn(ctx, id)
}

func (s *bookingServiceStub) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]scheduler.Reservation, error) {
	if s.listFn == nil {
		return nil, errStubNotConfigured
	}
	return s.listFn(ctx, params)
}

func (s *bookingServiceStub) CancelReservation(ctx context.Context, params application.CancelParams) ([]scheduler.Reservation, error) {
	if s.cancelFn == nil {
		return nil, errStubNotConfigured
	}
	return s.cancelFn(ctx, params)
}

func (s *bookingServiceStub) ApproveReservation(ctx context.Context, id string) ([]scheduler.Reservation, error) {
	if s.approveFn == nil {
		return nil, errStubNotConfigured
	}
	return s.approveFn(ctx, id)
}

func (s *bookingServiceStub) RejectReservation(ctx context.Context, id string) ([]scheduler.Reservation, error) {
	if s.rejectFn == nil {
		return nil, errStubNotConfigured
	}
	return s.rejectFn(ctx, id)
}
