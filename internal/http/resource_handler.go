package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

type resourceService interface {
	CreateResource(ctx context.Context, input application.ResourceInput) (scheduler.Resource, error)
	UpdateResource(ctx context.Context, params application.UpdateResourceParams) (scheduler.Resource, error)
	GetResource(ctx context.Context, id string) (scheduler.Resource, error)
	ListResources(ctx context.Context) ([]scheduler.Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// ResourceHandler serves the resource catalog.
type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService) *ResourceHandler {
	return NewResourceHandlerWithLogger(service, nil)
}

func NewResourceHandlerWithLogger(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "ResourceHandler", "List")

	resources, err := h.service.ListResources(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list resources", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, resourcesResponse{Resources: out})
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "ResourceHandler", "Create")

	var req resourceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	resource, err := h.service.CreateResource(ctx, req.toInput())
	if err != nil {
		logger.WarnContext(ctx, "resource creation failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/resources/"+resource.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, toResourceDTO(resource))
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["resourceId"]

	resource, err := h.service.GetResource(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toResourceDTO(resource))
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["resourceId"]
	logger := handlerLogger(ctx, h.logger, "ResourceHandler", "Update", "resource_id", id)

	var req resourceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	resource, err := h.service.UpdateResource(ctx, application.UpdateResourceParams{ResourceID: id, Input: req.toInput()})
	if err != nil {
		logger.WarnContext(ctx, "resource update failed", "error", err)
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toResourceDTO(resource))
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["resourceId"]

	if err := h.service.DeleteResource(ctx, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

type hoursDTO struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type resourceRequest struct {
	Name                   string     `json:"name"`
	Kind                   string     `json:"kind"`
	Capacity               int        `json:"capacity"`
	Hours                  []hoursDTO `json:"hours"`
	SlotGranularityMinutes int        `json:"slot_granularity_minutes"`
	MinAdvanceMinutes      int        `json:"min_advance_minutes"`
	MaxDurationMinutes     int        `json:"max_duration_minutes"`
	RequiresApproval       bool       `json:"requires_approval"`
}

func (req resourceRequest) toInput() application.ResourceInput {
	hours := make([]application.HoursInput, 0, len(req.Hours))
	for _, h := range req.Hours {
		hours = append(hours, application.HoursInput{Weekday: time.Weekday(h.Weekday), Open: h.Open, Close: h.Close})
	}
	return application.ResourceInput{
		Name:                   req.Name,
		Kind:                   req.Kind,
		Capacity:               req.Capacity,
		Hours:                  hours,
		SlotGranularityMinutes: req.SlotGranularityMinutes,
		MinAdvanceMinutes:      req.MinAdvanceMinutes,
		MaxDurationMinutes:     req.MaxDurationMinutes,
		RequiresApproval:       req.RequiresApproval,
	}
}

type resourceDTO struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Kind                   string     `json:"kind"`
	Capacity               int        `json:"capacity"`
	Hours                  []hoursDTO `json:"hours"`
	SlotGranularityMinutes int        `json:"slot_granularity_minutes"`
	MinAdvanceMinutes      int        `json:"min_advance_minutes"`
	MaxDurationMinutes     int        `json:"max_duration_minutes"`
	RequiresApproval       bool       `json:"requires_approval"`
}

type resourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

func toResourceDTO(resource scheduler.Resource) resourceDTO {
	hours := make([]hoursDTO, 0, len(resource.Hours))
	for day, window := range resource.Hours {
		if window.Closed() {
			continue
		}
		hours = append(hours, hoursDTO{Weekday: day, Open: window.Open.String(), Close: window.Close.String()})
	}
	return resourceDTO{
		ID:                     resource.ID,
		Name:                   resource.Name,
		Kind:                   string(resource.Kind),
		Capacity:               resource.Capacity,
		Hours:                  hours,
		SlotGranularityMinutes: int(resource.SlotGranularity / time.Minute),
		MinAdvanceMinutes:      int(resource.MinAdvance / time.Minute),
		MaxDurationMinutes:     int(resource.MaxDuration / time.Minute),
		RequiresApproval:       resource.RequiresApproval,
	}
}
