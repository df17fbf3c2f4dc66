package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/interval"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// wireLayout is the naive local timestamp used in responses.
const wireLayout = "2006-01-02T15:04:05"

const maxBodyBytes = 1 << 20

var inputLayouts = []string{
	"2006-01-02T15:04",
	wireLayout,
	time.RFC3339,
}

// parseWireTime accepts a naive timestamp with optional seconds or an RFC 3339
// timestamp. Naive values are read in UTC.
func parseWireTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid timestamp", value)
}

// parseWireDate parses YYYY-MM-DD.
func parseWireDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a valid date", value)
	}
	return t, nil
}

func formatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(wireLayout)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequestBody
		}
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

type intervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toIntervalDTO(iv interval.Interval) intervalDTO {
	return intervalDTO{Start: formatWireTime(iv.Start()), End: formatWireTime(iv.End())}
}

func toIntervalDTOs(ivs []interval.Interval) []intervalDTO {
	out := make([]intervalDTO, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, toIntervalDTO(iv))
	}
	return out
}

type reservationDTO struct {
	ID                 string `json:"id"`
	ResourceID         string `json:"resource_id"`
	Start              string `json:"start"`
	End                string `json:"end"`
	ParticipantCount   int    `json:"participant_count"`
	Status             string `json:"status"`
	RecurrenceParentID string `json:"recurrence_parent_id,omitempty"`
	Title              string `json:"title,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

func toReservationDTO(r scheduler.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:                 r.ID,
		ResourceID:         r.ResourceID,
		Start:              formatWireTime(r.Interval.Start()),
		End:                formatWireTime(r.Interval.End()),
		ParticipantCount:   r.ParticipantCount,
		Status:             string(r.Status),
		RecurrenceParentID: r.RecurrenceParentID,
		Title:              r.Title,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toReservationDTOs(reservations []scheduler.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationDTO(r))
	}
	return out
}

type reservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}
