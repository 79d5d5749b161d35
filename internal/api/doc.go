// Package api implements the HTTP API and WebSocket change feed for clinicauth.
//
// This package provides:
//   - auth endpoints (register, login, logout, me) backed by auth.Service
//   - a navigation endpoint that runs the route guard for a path
//   - guarded resources whose access follows the same route metadata,
//     including the admin user list and the auth audit trail
//   - a WebSocket hub broadcasting "auth.changed" whenever the auth state
//     changes, including changes made by other clinicauth processes
//   - middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Contexts
//
// One clinicauth process is one browser context: it has exactly one
// session. Every HTTP client of the process acts within that context, the
// way every component of a single page shares one login.
//
// # Errors
//
// All errors are JSON {status, code, message}. Validation failures are 400
// validation_error, duplicate registration is 409 conflict, bad credentials
// are 401 unauthorised, and anything unexpected is 500 internal_error.
//
// # WebSocket
//
// Clients obtain a short-lived signed ticket from POST /auth/ws-ticket and
// pass it as the ticket query parameter. Tickets are single use and bound
// to the session that issued them.
package api
