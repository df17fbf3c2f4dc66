// Package metrics exposes Prometheus collectors for the reservation service.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/scheduler"
)

// Metrics groups every collector of the service.
type Metrics struct {
	registerer prometheus.Registerer
	registry   prometheus.Gatherer

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	bookingDecisions    *prometheus.CounterVec
	bookingOccurrences  prometheus.Histogram
	availabilityLookups *prometheus.CounterVec
	availabilityLatency prometheus.Histogram
}

// New creates the collectors under namespace and registers them with a
// fresh registry that also carries the Go and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegisterer(namespace, reg, reg)
}

// NewWithRegisterer creates the collectors and registers them with reg.
// gatherer backs Handler.
func NewWithRegisterer(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = "reservation"
	}
	m := &Metrics{
		registerer: reg,
		registry:   gatherer,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "decisions_total",
			Help:      "Booking decisions by resource kind, outcome and rejection reason.",
		}, []string{"kind", "outcome", "reason"}),
		bookingOccurrences: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "occurrences",
			Help:      "Occurrences stored per accepted booking.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		availabilityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "lookups_total",
			Help:      "Availability lookups by cache result.",
		}, []string{"cache"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "lookup_duration_seconds",
			Help:      "Availability lookup latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.bookingDecisions,
		m.bookingOccurrences,
		m.availabilityLookups,
		m.availabilityLatency,
	)
	return m
}

// RegisterDB exports connection pool statistics of db under dbName.
func (m *Metrics) RegisterDB(db *sql.DB, dbName string) error {
	return m.registerer.Register(collectors.NewDBStatsCollector(db, dbName))
}

// RecordBookingDecision counts one booking decision. reason is empty for
// accepted bookings.
func (m *Metrics) RecordBookingDecision(kind scheduler.ResourceKind, outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.bookingDecisions.WithLabelValues(string(kind), outcome, reason).Inc()
}

// RecordOccurrences observes the size of a stored series.
func (m *Metrics) RecordOccurrences(count int) {
	m.bookingOccurrences.Observe(float64(count))
}

// RecordAvailabilityLookup counts and times one availability lookup.
func (m *Metrics) RecordAvailabilityLookup(cached bool, elapsed time.Duration) {
	result := "miss"
	if cached {
		result = "hit"
	}
	m.availabilityLookups.WithLabelValues(result).Inc()
	m.availabilityLatency.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
