package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/blake2b"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
)

type availabilityService interface {
	GetAvailability(ctx context.Context, params application.AvailabilityParams) (application.Availability, error)
}

// AvailabilityHandler serves slot grids. Responses carry a content hash ETag
// so polling clients can revalidate cheaply.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return NewAvailabilityHandlerWithLogger(service, nil)
}

func NewAvailabilityHandlerWithLogger(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["resourceId"]
	logger := handlerLogger(ctx, h.logger, "AvailabilityHandler", "Get", "resource_id", id)

	params := application.AvailabilityParams{ResourceID: id}
	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		from, err := parseWireDate(raw)
		if err != nil {
			h.responder.handleServiceError(ctx, w, fieldError("from", err.Error()))
			return
		}
		params.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := parseWireDate(raw)
		if err != nil {
			h.responder.handleServiceError(ctx, w, fieldError("to", err.Error()))
			return
		}
		params.To = to
	}

	availability, err := h.service.GetAvailability(ctx, params)
	if err != nil {
		logger.WarnContext(ctx, "availability lookup failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	body, err := json.Marshal(toAvailabilityResponse(availability))
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusInternalServerError, err)
		return
	}

	etag := contentETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.responder.writeBody(ctx, w, http.StatusOK, body)
}

func contentETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type slotDTO struct {
	Start                    string `json:"start"`
	End                      string `json:"end"`
	Available                bool   `json:"available"`
	ConflictingReservationID string `json:"conflicting_reservation_id,omitempty"`
}

type dayDTO struct {
	Date  string    `json:"date"`
	Slots []slotDTO `json:"slots"`
}

type availabilityResponse struct {
	ResourceID string   `json:"resource_id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Days       []dayDTO `json:"days"`
}

func toAvailabilityResponse(a application.Availability) availabilityResponse {
	resp := availabilityResponse{
		ResourceID: a.Resource.ID,
		From:       a.From.Format(time.DateOnly),
		To:         a.To.Format(time.DateOnly),
		Days:       make([]dayDTO, 0, len(a.Days)),
	}
	for _, day := range a.Days {
		dto := dayDTO{Date: day.Date.Format(time.DateOnly), Slots: make([]slotDTO, 0, len(day.Slots))}
		for _, slot := range day.Slots {
			s := slotDTO{
				Start:     formatWireTime(slot.Interval.Start()),
				End:       formatWireTime(slot.Interval.End()),
				Available: slot.Available,
			}
			if slot.Occupying != nil {
				s.ConflictingReservationID = slot.Occupying.ID
			}
			dto.Slots = append(dto.Slots, s)
		}
		resp.Days = append(resp.Days, dto)
	}
	return resp
}
