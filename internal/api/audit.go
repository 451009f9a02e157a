package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/hvpsu/internal/audit"
)

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - identity: filter by PSU identity
//   - action: filter by command (connect, set_voltage, set_current, set_relay, teardown)
//   - source: filter by origin (api, mqtt, system)
//   - rejected: "true" for commands that were not accepted
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		EntityID: q.Get("identity"),
		Source:   q.Get("source"),
	}

	if v := q.Get("rejected"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "rejected must be a boolean")
			return
		}
		filter.Rejected = b
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
