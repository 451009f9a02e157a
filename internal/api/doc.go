// Package api implements the HTTP REST API and WebSocket server for hvpsu.
//
// This package provides:
//   - Per-identity PSU endpoints (connect, setpoints, read, relay)
//   - Service status, teardown, audit trail and Prometheus metrics
//   - WebSocket hub broadcasting "psu.status" documents
//   - Bearer-token authentication with viewer and operator roles
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Errors
//
// Every error uses the envelope {"status","code","message"}. PSU errors are
// classified with psu.ErrorCode and mapped to HTTP status codes:
//
//	unknown_identity      404
//	out_of_range          400
//	relay_unsupported     400
//	not_connected         409
//	command_rejected      502
//	hardware_unavailable  503
//	driver_fault          502
//
// # Security
//
// When security.jwt.secret is empty every route is open. Otherwise read
// routes require a viewer or operator token and every route that reaches
// hardware with a command requires operator. Browsers that cannot set
// headers on a WebSocket upgrade may pass the token as ?token=.
package api
