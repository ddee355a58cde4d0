// Package http provides HTTP handlers and middleware for the calendar API.
//
// The router exposes the following endpoints:
//   - POST /auth/register: creates an account plus its default calendar. Body:
//     {"email","password","displayName"}. Response: {"success","user"}.
//   - POST /auth/login: issues a bearer session token. Body: {"email","password"}.
//     Response: {"success","token","expiresAt","user"} with the token also
//     surfaced via the `X-Session-Token` header.
//   - POST /auth/logout: revokes the current session token. Requires the bearer
//     credential like every other protected route.
//   - GET /calendars, POST /calendars, PUT /calendars/{id}, DELETE /calendars/{id}:
//     calendar management exchanging the `calendarDTO` payload defined in
//     calendar_handler.go. Deleting the last remaining calendar is rejected.
//   - GET /events, POST /events, PUT /events/{id}, DELETE /events/{id}: event
//     management exchanging the `eventDTO` payload defined in event_handler.go.
//     Listing accepts ?year&month&day&date filters; creation answers 201.
//   - GET /notifications, DELETE /notifications, PUT /notifications/{id}/read,
//     PUT /notifications/read-all, DELETE /notifications/{id}: notification
//     inbox endpoints exchanging the `notificationDTO` payload.
//   - GET /health: unauthenticated liveness probe.
//
// Every success body carries `"success": true`; every error body is
// `{"success": false, "message": ...}` plus a field map for validation errors.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
