// Package http exposes the reservation engine over JSON.
//
// Routes (see router.go):
//   - GET /healthz: dependency checks, 503 when any fails.
//   - GET /metrics: Prometheus exposition when metrics are enabled.
//   - GET|POST /api/v1/resources and GET|PUT|DELETE /api/v1/resources/{resourceId}:
//     resource catalog exchanging the resourceDTO payload.
//   - GET /api/v1/resources/{resourceId}/availability?from=YYYY-MM-DD&to=YYYY-MM-DD:
//     slot grid per day. Responses carry an ETag and honour If-None-Match.
//   - GET /api/v1/resources/{resourceId}/reservations?from=&to=&status=:
//     reservations overlapping the range.
//   - POST /api/v1/resources/{resourceId}/bookings/validate: dry run, always 200.
//   - POST /api/v1/resources/{resourceId}/bookings: 201 when accepted, 409 with
//     the decision when a business rule rejects the request.
//   - GET /api/v1/reservations/{reservationId} and POST .../cancel?cascade=,
//     .../approve, .../reject: reservation lifecycle.
//
// Timestamps are accepted as naive "2006-01-02T15:04" (seconds optional) or
// RFC 3339 and rendered as "2006-01-02T15:04:05" in UTC. Malformed fields
// answer 422 with an errors map keyed by field.
package http
