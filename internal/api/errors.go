package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
)

// psuStatus maps psu.ErrorCode values to HTTP status codes.
var psuStatus = map[string]int{
	psu.CodeUnknownIdentity:     http.StatusNotFound,
	psu.CodeOutOfRange:          http.StatusBadRequest,
	psu.CodeRelayUnsupported:    http.StatusBadRequest,
	psu.CodeNotConnected:        http.StatusConflict,
	psu.CodeCommandRejected:     http.StatusBadGateway,
	psu.CodeHardwareUnavailable: http.StatusServiceUnavailable,
	psu.CodeDriverFault:         http.StatusBadGateway,
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writePSUError classifies err and writes the matching error response.
func writePSUError(w http.ResponseWriter, err error) {
	code := psu.ErrorCode(err)
	status, ok := psuStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, status, code, err.Error())
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
