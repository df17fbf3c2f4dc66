package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

type bookingService interface {
	ValidateBooking(ctx context.Context, params application.BookingParams) (application.BookingResult, error)
	CreateBooking(ctx context.Context, params application.BookingParams) (application.BookingResult, error)
	GetReservation(ctx context.Context, id string) (scheduler.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]scheduler.Reservation, error)
	CancelReservation(ctx context.Context, params application.CancelParams) ([]scheduler.Reservation, error)
	ApproveReservation(ctx context.Context, id string) ([]scheduler.Reservation, error)
	RejectReservation(ctx context.Context, id string) ([]scheduler.Reservation, error)
}

// BookingHandler serves booking requests and reservation lifecycle changes.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService) *BookingHandler {
	return NewBookingHandlerWithLogger(service, nil)
}

func NewBookingHandlerWithLogger(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

// Validate is a dry run. It always answers 200 with the decision.
func (h *BookingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, ok := h.bookingParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.ValidateBooking(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingResponse(result))
}

// Create books the request. A rejected request answers 409 with the decision.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, ok := h.bookingParams(w, r)
	if !ok {
		return
	}
	logger := handlerLogger(ctx, h.logger, "BookingHandler", "Create", "resource_id", params.ResourceID)

	result, err := h.service.CreateBooking(ctx, params)
	if err != nil {
		logger.WarnContext(ctx, "booking failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	resp := toBookingResponse(result)
	if !result.Accepted() {
		resp.ErrorCode = "BOOKING_REJECTED"
		resp.Message = "booking rejected"
		if result.Decision.Rejection != nil {
			resp.Message = result.Decision.Rejection.Message()
		}
		h.responder.writeJSON(ctx, w, http.StatusConflict, resp)
		return
	}
	if len(result.Reservations) > 0 {
		w.Header().Set("Location", "/api/v1/reservations/"+result.Reservations[0].ID)
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, resp)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["reservationId"]

	reservation, err := h.service.GetReservation(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toReservationDTO(reservation))
}

// List returns reservations of a resource. A date-only "to" includes that day.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := application.ListReservationsParams{ResourceID: mux.Vars(r)["resourceId"]}
	query := r.URL.Query()

	var err error
	if raw := query.Get("from"); raw != "" {
		if params.From, _, err = parseBound(raw); err != nil {
			h.responder.handleServiceError(ctx, w, fieldError("from", err.Error()))
			return
		}
	}
	if raw := query.Get("to"); raw != "" {
		var dateOnly bool
		if params.To, dateOnly, err = parseBound(raw); err != nil {
			h.responder.handleServiceError(ctx, w, fieldError("to", err.Error()))
			return
		}
		if dateOnly {
			params.To = params.To.AddDate(0, 0, 1)
		}
	}
	for _, raw := range query["status"] {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				params.Statuses = append(params.Statuses, scheduler.Status(strings.ToLower(status)))
			}
		}
	}

	reservations, err := h.service.ListReservations(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, reservationsResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := application.CancelParams{ReservationID: mux.Vars(r)["reservationId"]}
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		cascade, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidCascadeValue)
			return
		}
		params.Cascade = cascade
	}

	cancelled, err := h.service.CancelReservation(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, reservationsResponse{Reservations: toReservationDTOs(cancelled)})
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveReservation)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.RejectReservation)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) ([]scheduler.Reservation, error)) {
	ctx := r.Context()
	changed, err := apply(ctx, mux.Vars(r)["reservationId"])
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, reservationsResponse{Reservations: toReservationDTOs(changed)})
}

func (h *BookingHandler) bookingParams(w http.ResponseWriter, r *http.Request) (application.BookingParams, bool) {
	ctx := r.Context()
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return application.BookingParams{}, false
	}
	params, vErr := req.toParams(mux.Vars(r)["resourceId"])
	if vErr.HasErrors() {
		h.responder.handleServiceError(ctx, w, vErr)
		return application.BookingParams{}, false
	}
	return params, true
}

// parseBound reads a date or a timestamp and reports which one it was.
func parseBound(value string) (time.Time, bool, error) {
	if t, err := parseWireDate(value); err == nil {
		return t, true, nil
	}
	t, err := parseWireTime(value)
	return t, false, err
}

type recurrenceRequest struct {
	Pattern  string `json:"pattern"`
	Interval int    `json:"interval"`
	Weekdays []int  `json:"weekdays"`
	Until    string `json:"until"`
	Count    int    `json:"count"`
}

type bookingRequest struct {
	Start            string             `json:"start"`
	End              string             `json:"end"`
	ParticipantCount int                `json:"participant_count"`
	Title            string             `json:"title"`
	Recurrence       *recurrenceRequest `json:"recurrence"`
	AcceptPartial    bool               `json:"accept_partial"`
}

func (req bookingRequest) toParams(resourceID string) (application.BookingParams, *application.ValidationError) {
	vErr := &application.ValidationError{}
	set := func(field, message string) {
		if vErr.FieldErrors == nil {
			vErr.FieldErrors = make(map[string]string)
		}
		vErr.FieldErrors[field] = message
	}

	params := application.BookingParams{
		ResourceID:       resourceID,
		ParticipantCount: req.ParticipantCount,
		Title:            req.Title,
		AcceptPartial:    req.AcceptPartial,
	}
	if req.Start != "" {
		start, err := parseWireTime(req.Start)
		if err != nil {
			set("start", err.Error())
		}
		params.Start = start
	}
	if req.End != "" {
		end, err := parseWireTime(req.End)
		if err != nil {
			set("end", err.Error())
		}
		params.End = end
	}

	if rec := req.Recurrence; rec != nil {
		input := &application.RecurrenceInput{Pattern: rec.Pattern, Interval: rec.Interval, Count: rec.Count}
		for _, day := range rec.Weekdays {
			if day < int(time.Sunday) || day > int(time.Saturday) {
				set("recurrence.weekdays", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
				continue
			}
			input.Weekdays = append(input.Weekdays, time.Weekday(day))
		}
		if rec.Until != "" {
			until, _, err := parseBound(rec.Until)
			if err != nil {
				set("recurrence.until", err.Error())
			} else {
				input.Until = &until
			}
		}
		params.Recurrence = input
	}
	return params, vErr
}

type rejectionDTO struct {
	Kind                      string        `json:"kind"`
	Message                   string        `json:"message"`
	Capacity                  int           `json:"capacity,omitempty"`
	ParticipantCount          int           `json:"participant_count,omitempty"`
	RequiredNoticeMinutes     int           `json:"required_notice_minutes,omitempty"`
	NoticeMinutes             int           `json:"notice_minutes,omitempty"`
	MaxDurationMinutes        int           `json:"max_duration_minutes,omitempty"`
	DurationMinutes           int           `json:"duration_minutes,omitempty"`
	ConflictingReservationIDs []string      `json:"conflicting_reservation_ids,omitempty"`
	Conflicts                 []conflictDTO `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	Start          string   `json:"start"`
	End            string   `json:"end"`
	ReservationIDs []string `json:"reservation_ids"`
}

type decisionDTO struct {
	Accepted    bool          `json:"accepted"`
	Status      string        `json:"status,omitempty"`
	Occurrences []intervalDTO `json:"occurrences"`
	Truncated   bool          `json:"truncated"`
	Rejection   *rejectionDTO `json:"rejection,omitempty"`
}

type bookingResponse struct {
	ErrorCode    string           `json:"error_code,omitempty"`
	Message      string           `json:"message,omitempty"`
	Decision     decisionDTO      `json:"decision"`
	Reservations []reservationDTO `json:"reservations,omitempty"`
	Skipped      []conflictDTO    `json:"skipped,omitempty"`
	Alternatives []intervalDTO    `json:"alternatives,omitempty"`
}

func toBookingResponse(result application.BookingResult) bookingResponse {
	d := result.Decision
	resp := bookingResponse{
		Decision: decisionDTO{
			Accepted:    d.Accepted,
			Status:      string(d.Status),
			Occurrences: toIntervalDTOs(d.Occurrences),
			Truncated:   d.Truncated,
		},
		Skipped: toConflictDTOs(result.Skipped),
	}
	if len(result.Reservations) > 0 {
		resp.Reservations = toReservationDTOs(result.Reservations)
	}
	if len(result.Alternatives) > 0 {
		resp.Alternatives = toIntervalDTOs(result.Alternatives)
	}
	if rej := d.Rejection; rej != nil {
		resp.Decision.Rejection = &rejectionDTO{
			Kind:                      string(rej.Kind),
			Message:                   rej.Message(),
			Capacity:                  rej.Capacity,
			ParticipantCount:          rej.Participants,
			RequiredNoticeMinutes:     int(rej.RequiredNotice / time.Minute),
			NoticeMinutes:             int(rej.Notice / time.Minute),
			MaxDurationMinutes:        int(rej.MaxDuration / time.Minute),
			DurationMinutes:           int(rej.Duration / time.Minute),
			ConflictingReservationIDs: rej.ConflictingIDs(),
			Conflicts:                 toConflictDTOs(rej.Conflicts),
		}
	}
	return resp
}

func toConflictDTOs(checks []scheduler.OccurrenceCheck) []conflictDTO {
	if len(checks) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(checks))
	for _, check := range checks {
		ids := make([]string, 0, len(check.Conflicts))
		for _, c := range check.Conflicts {
			ids = append(ids, c.ID)
		}
		out = append(out, conflictDTO{
			Start:          formatWireTime(check.Occurrence.Start()),
			End:            formatWireTime(check.Occurrence.End()),
			ReservationIDs: ids,
		})
	}
	return out
}
