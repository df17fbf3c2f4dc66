package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

var (
	resourceCounter    uint64
	reservationCounter uint64
)

// referenceTime is Monday 2025-03-03 08:00 UTC.
var referenceTime = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hour:minute on the day offset days after the reference day.
func At(dayOffset, hour, minute int) time.Time {
	y, m, d := referenceTime.Date()
	return time.Date(y, m, d+dayOffset, hour, minute, 0, 0, time.UTC)
}

// Span is a shorthand for an interval between two instants. It panics on an
// empty span.
func Span(start, end time.Time) interval.Interval {
	return interval.MustNew(start, end)
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture describes a bookable space. The defaults model a six seat
// meeting room open 08:00-18:00 on weekdays with 30 minute slots.
type ResourceFixture struct {
	ID               string
	Name             string
	Kind             scheduler.ResourceKind
	Capacity         int
	Hours            scheduler.OperatingHours
	SlotGranularity  time.Duration
	MinAdvance       time.Duration
	MaxDuration      time.Duration
	RequiresApproval bool
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns a deterministic resource fixture.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	fixture := ResourceFixture{
		ID:              fmt.Sprintf("resource-%03d", idx),
		Name:            fmt.Sprintf("Room %03d", idx),
		Kind:            scheduler.KindRoom,
		Capacity:        6,
		Hours:           WeekdayHours(scheduler.Clock(8, 0), scheduler.Clock(18, 0)),
		SlotGranularity: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WeekdayHours opens Monday to Friday with the same window.
func WeekdayHours(open, close scheduler.ClockTime) scheduler.OperatingHours {
	var hours scheduler.OperatingHours
	for day := time.Monday; day <= time.Friday; day++ {
		hours[day] = scheduler.DailyHours{Open: open, Close: close}
	}
	return hours
}

// HotDesk returns a single seat desk open every day with hourly slots.
func HotDesk(opts ...ResourceOption) ResourceFixture {
	base := []ResourceOption{
		WithResourceKind(scheduler.KindDesk),
		WithResourceCapacity(1),
		WithResourceHours(scheduler.UniformHours(scheduler.Clock(7, 0), scheduler.Clock(22, 0))),
		WithSlotGranularity(time.Hour),
	}
	return NewResourceFixture(append(base, opts...)...)
}

// RecordingStudio returns a studio that needs approval, a day of notice and
// caps bookings at four hours.
func RecordingStudio(opts ...ResourceOption) ResourceFixture {
	base := []ResourceOption{
		WithResourceKind(scheduler.KindStudio),
		WithResourceCapacity(3),
		WithMinAdvance(24 * time.Hour),
		WithMaxDuration(4 * time.Hour),
		WithApproval(true),
	}
	return NewResourceFixture(append(base, opts...)...)
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

// WithResourceName overrides the generated name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

func WithResourceKind(kind scheduler.ResourceKind) ResourceOption {
	return func(f *ResourceFixture) {
		f.Kind = kind
	}
}

func WithResourceCapacity(capacity int) ResourceOption {
	return func(f *ResourceFixture) {
		f.Capacity = capacity
	}
}

func WithResourceHours(hours scheduler.OperatingHours) ResourceOption {
	return func(f *ResourceFixture) {
		f.Hours = hours
	}
}

func WithSlotGranularity(d time.Duration) ResourceOption {
	return func(f *ResourceFixture) {
		f.SlotGranularity = d
	}
}

func WithMinAdvance(d time.Duration) ResourceOption {
	return func(f *ResourceFixture) {
		f.MinAdvance = d
	}
}

// WithMaxDuration caps booking length. Zero means unlimited.
func WithMaxDuration(d time.Duration) ResourceOption {
	return func(f *ResourceFixture) {
		f.MaxDuration = d
	}
}

func WithApproval(required bool) ResourceOption {
	return func(f *ResourceFixture) {
		f.RequiresApproval = required
	}
}

// Scheduler converts the fixture into the engine model.
func (f ResourceFixture) Scheduler() scheduler.Resource {
	return scheduler.Resource{
		ID:               f.ID,
		Name:             f.Name,
		Kind:             f.Kind,
		Capacity:         f.Capacity,
		Hours:            f.Hours,
		SlotGranularity:  f.SlotGranularity,
		MinAdvance:       f.MinAdvance,
		MaxDuration:      f.MaxDuration,
		RequiresApproval: f.RequiresApproval,
	}
}

// Input converts the fixture into service input. Closed days are omitted.
func (f ResourceFixture) Input() application.ResourceInput {
	var hours []application.HoursInput
	for day, window := range f.Hours {
		if window.Closed() {
			continue
		}
		hours = append(hours, application.HoursInput{
			Weekday: time.Weekday(day),
			Open:    window.Open.String(),
			Close:   window.Close.String(),
		})
	}
	return application.ResourceInput{
		Name:                   f.Name,
		Kind:                   string(f.Kind),
		Capacity:               f.Capacity,
		Hours:                  hours,
		SlotGranularityMinutes: int(f.SlotGranularity / time.Minute),
		MinAdvanceMinutes:      int(f.MinAdvance / time.Minute),
		MaxDurationMinutes:     int(f.MaxDuration / time.Minute),
		RequiresApproval:       f.RequiresApproval,
	}
}

// Persistence converts the fixture into the storage model.
func (f ResourceFixture) Persistence() persistence.Resource {
	input := f.Input()
	hours := make([]persistence.OperatingHours, 0, len(input.Hours))
	for _, h := range input.Hours {
		hours = append(hours, persistence.OperatingHours{Weekday: h.Weekday, Open: h.Open, Close: h.Close})
	}
	return persistence.Resource{
		ID:                     f.ID,
		Name:                   f.Name,
		Kind:                   string(f.Kind),
		Capacity:               f.Capacity,
		Hours:                  hours,
		SlotGranularityMinutes: input.SlotGranularityMinutes,
		MinAdvanceMinutes:      input.MinAdvanceMinutes,
		MaxDurationMinutes:     input.MaxDurationMinutes,
		RequiresApproval:       f.RequiresApproval,
		CreatedAt:              referenceTime,
		UpdatedAt:              referenceTime,
	}
}

// -------------------------- Reservation fixtures -------------------------

// ReservationFixture describes a stored booking. The default is a confirmed
// two person reservation from 10:00 to 11:00 on the day after the reference
// day.
type ReservationFixture struct {
	ID                 string
	ResourceID         string
	Start              time.Time
	End                time.Time
	ParticipantCount   int
	Status             scheduler.Status
	RecurrenceParentID string
	Title              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a deterministic reservation of resourceID.
func NewReservationFixture(resourceID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:               fmt.Sprintf("reservation-%03d", idx),
		ResourceID:       resourceID,
		Start:            At(1, 10, 0),
		End:              At(1, 11, 0),
		ParticipantCount: 2,
		Status:           scheduler.StatusConfirmed,
		Title:            fmt.Sprintf("Meeting %03d", idx),
		CreatedAt:        referenceTime,
		UpdatedAt:        referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithWindow sets the reservation interval.
func WithWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

func WithStatus(status scheduler.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

func WithParticipants(count int) ReservationOption {
	return func(f *ReservationFixture) {
		f.ParticipantCount = count
	}
}

// WithParent marks the reservation as an occurrence of parentID's series.
func WithParent(parentID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RecurrenceParentID = parentID
	}
}

func WithTitle(title string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Title = title
	}
}

// Scheduler converts the fixture into the engine model.
func (f ReservationFixture) Scheduler() scheduler.Reservation {
	return scheduler.Reservation{
		ID:                 f.ID,
		ResourceID:         f.ResourceID,
		Interval:           Span(f.Start, f.End),
		ParticipantCount:   f.ParticipantCount,
		Status:             f.Status,
		RecurrenceParentID: f.RecurrenceParentID,
		Title:              f.Title,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence converts the fixture into the storage model.
func (f ReservationFixture) Persistence() persistence.Reservation {
	model := persistence.Reservation{
		ID:               f.ID,
		ResourceID:       f.ResourceID,
		Start:            f.Start,
		End:              f.End,
		ParticipantCount: f.ParticipantCount,
		Status:           string(f.Status),
		Title:            f.Title,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
	if f.RecurrenceParentID != "" {
		parent := f.RecurrenceParentID
		model.RecurrenceParentID = &parent
	}
	return model
}
