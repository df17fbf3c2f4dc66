package testfixtures

import (
	"log/slog"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/lock"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence/memory"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/recurrence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/store"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("res"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("res")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// StackDeps overrides parts of the service stack. Zero fields use an
// in-memory backend, a memory locker and a recording publisher.
type StackDeps struct {
	Backend  store.Backend
	Locker   application.Locker
	Recorder application.Recorder
	Horizon  time.Duration
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Stack bundles the services of one wired process.
type Stack struct {
	Backend      store.Backend
	Resources    *application.ResourceService
	Availability *application.AvailabilityService
	Bookings     *application.BookingService
	Events       *events.MemoryPublisher
}

// NewStack wires the resource, availability and booking services over one
// backend the way the service binary does.
func (f *ServiceFactory) NewStack(deps StackDeps) *Stack {
	if deps.Backend == nil {
		deps.Backend = memory.Open()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}
	now := f.Clock.NowFunc()
	resources := store.NewResources(deps.Backend, now)
	reservations := store.NewReservations(deps.Backend)
	publisher := events.NewMemoryPublisher()

	availability := application.NewAvailabilityServiceWithLogger(resources, reservations, application.AvailabilityOptions{
		CacheTTL: deps.CacheTTL,
		Recorder: deps.Recorder,
	}, now, deps.Logger)

	return &Stack{
		Backend:      deps.Backend,
		Resources:    application.NewResourceServiceWithLogger(resources, availability, f.IDGenerator.NextFunc(), now, deps.Logger),
		Availability: availability,
		Bookings: application.NewBookingService(application.BookingServiceDeps{
			Resources:    resources,
			Reservations: reservations,
			Locker:       deps.Locker,
			Events:       publisher,
			Recorder:     deps.Recorder,
			Invalidator:  availability,
			Engine:       recurrence.NewEngine(time.UTC),
			IDGenerator:  f.IDGenerator.NextFunc(),
			Now:          now,
			Horizon:      deps.Horizon,
			Logger:       deps.Logger,
		}),
		Events: publisher,
	}
}
