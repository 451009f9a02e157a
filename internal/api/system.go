package api

import (
	"net/http"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// endpoints lists the routes advertised by GET /.
var endpoints = []string{
	"GET /health",
	"GET /status",
	"GET /metrics",
	"GET /audit",
	"GET /ws",
	"POST /teardown",
	"POST /{identity}/connect",
	"POST /{identity}/set_voltage",
	"POST /{identity}/set_current",
	"GET /{identity}/read",
	"GET /{identity}/relay",
	"POST /{identity}/relay",
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Service   string                      `json:"service"`
	Name      string                      `json:"name,omitempty"`
	Version   string                      `json:"version"`
	PSUs      map[string]psu.DeviceLimits `json:"psus"`
	Endpoints []string                    `json:"endpoints"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleInfo describes the service and its configured PSUs.
func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	psus := make(map[string]psu.DeviceLimits)
	for _, id := range s.manager.Identities() {
		dev, err := s.manager.Get(id)
		if err != nil {
			continue
		}
		psus[id] = dev.Limits()
	}

	writeJSON(w, http.StatusOK, InfoResponse{
		Service:   s.service.ID,
		Name:      s.service.Name,
		Version:   s.version,
		PSUs:      psus,
		Endpoints: endpoints,
	})
}

// handleStatus returns a fresh status document. It never connects hardware.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status(r.Context()))
}

// handleTeardown disconnects every PSU. Devices stay listed and are parked
// until explicitly reconnected. Disconnect errors are reported but do not
// fail the request, because every device is parked regardless.
func (s *Server) handleTeardown(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"ok": true}
	if err := s.manager.TeardownAll(commandContext(r)); err != nil {
		s.logger.Warn("teardown reported disconnect errors", "error", err)
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
