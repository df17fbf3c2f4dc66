package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig wires handlers into the router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Resources    *ResourceHandler
	Availability *AvailabilityHandler
	Bookings     *BookingHandler
	Health       http.Handler
	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string
	Middleware  []mux.MiddlewareFunc
}

func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	for _, mw := range cfg.Middleware {
		if mw != nil {
			router.Use(mw)
		}
	}

	if cfg.Health != nil {
		router.Handle("/healthz", cfg.Health).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, cfg.Metrics).Methods(http.MethodGet)
	}

	// Subrouters answer their own misses, so the fallbacks are set again.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = router.NotFoundHandler
	api.MethodNotAllowedHandler = router.MethodNotAllowedHandler

	if h := cfg.Resources; h != nil {
		api.HandleFunc("/resources", h.List).Methods(http.MethodGet)
		api.HandleFunc("/resources", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/resources/{resourceId}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/resources/{resourceId}", h.Update).Methods(http.MethodPut)
		api.HandleFunc("/resources/{resourceId}", h.Delete).Methods(http.MethodDelete)
	}

	if h := cfg.Availability; h != nil {
		api.HandleFunc("/resources/{resourceId}/availability", h.Get).Methods(http.MethodGet)
	}

	if h := cfg.Bookings; h != nil {
		api.HandleFunc("/resources/{resourceId}/reservations", h.List).Methods(http.MethodGet)
		api.HandleFunc("/resources/{resourceId}/bookings/validate", h.Validate).Methods(http.MethodPost)
		api.HandleFunc("/resources/{resourceId}/bookings", h.Create).Methods(http.MethodPost)
		api.HandleFunc("/reservations/{reservationId}", h.Get).Methods(http.MethodGet)
		api.HandleFunc("/reservations/{reservationId}/cancel", h.Cancel).Methods(http.MethodPost)
		api.HandleFunc("/reservations/{reservationId}/approve", h.Approve).Methods(http.MethodPost)
		api.HandleFunc("/reservations/{reservationId}/reject", h.Reject).Methods(http.MethodPost)
	}

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "no such endpoint"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{ErrorCode: "METHOD_NOT_ALLOWED", Message: http.StatusText(http.StatusMethodNotAllowed)})
}
