package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

var testDay = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return testDay.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServices struct {
	resources    *resourceServiceStub
	availability *availabilityServiceStub
	bookings     *bookingServiceStub
}

func newTestRouter(svc testServices) *mux.Router {
	if svc.resources == nil {
		svc.resources = &resourceServiceStub{}
	}
	if svc.availability == nil {
		svc.availability = &availabilityServiceStub{}
	}
	if svc.bookings == nil {
		svc.bookings = &bookingServiceStub{}
	}
	logger := discardLogger()
	return NewRouter(RouterConfig{
		Resources:    NewResourceHandlerWithLogger(svc.resources, logger),
		Availability: NewAvailabilityHandlerWithLogger(svc.availability, logger),
		Bookings:     NewBookingHandlerWithLogger(svc.bookings, logger),
		Middleware:   []mux.MiddlewareFunc{RequestLogger(logger)},
	})
}

func serve(t *testing.T, handler http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (body %s)", want, rec.Code, rec.Body.String())
	}
}
