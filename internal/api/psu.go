package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// setpointRequest is the body of set_voltage and set_current.
type setpointRequest struct {
	Value *float64 `json:"value"`
}

// relayRequest is the body of POST /{identity}/relay.
type relayRequest struct {
	State *bool `json:"state"`
}

// ReadResponse is the body of GET /{identity}/read.
type ReadResponse struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	On      bool    `json:"on"`
}

// RelayResponse is the body of both relay routes.
type RelayResponse struct {
	On    bool           `json:"on"`
	State psu.RelayState `json:"state"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Connect(commandContext(r), chi.URLParam(r, "identity")); err != nil {
		writePSUError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSetVoltage(w http.ResponseWriter, r *http.Request) {
	s.handleSetpoint(w, r, s.manager.SetVoltage)
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	s.handleSetpoint(w, r, s.manager.SetCurrent)
}

// handleSetpoint decodes {"value": n} and forwards it through set.
// ok=false in a 200 response means the hardware declined the setpoint.
func (s *Server) handleSetpoint(w http.ResponseWriter, r *http.Request,
	set func(ctx context.Context, identity string, value float64) (bool, error),
) {
	var req setpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	ok, err := set(commandContext(r), chi.URLParam(r, "identity"), *req.Value)
	if err != nil {
		writePSUError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	reading, err := s.manager.Read(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		writePSUError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{
		Voltage: reading.Voltage,
		Current: reading.Current,
		On:      reading.RelayOn,
	})
}

// handleGetRelay reports the cached relay state without touching hardware.
func (s *Server) handleGetRelay(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.GetRelay(chi.URLParam(r, "identity"))
	if err != nil {
		writePSUError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RelayResponse{On: state.On(), State: state})
}

func (s *Server) handleSetRelay(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.State == nil {
		writeBadRequest(w, "state is required")
		return
	}

	on, err := s.manager.SetRelay(commandContext(r), chi.URLParam(r, "identity"), *req.State)
	if err != nil {
		writePSUError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RelayResponse{On: on, State: relayState(on)})
}

func relayState(on bool) psu.RelayState {
	if on {
		return psu.RelayOn
	}
	return psu.RelayOff
}
