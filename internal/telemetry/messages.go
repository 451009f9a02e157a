package telemetry

import (
	"time"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// ChannelStatus is the WebSocket channel carrying status documents.
const ChannelStatus = "psu.status"

// Command operations accepted on hvpsu/command/{identity}/{op}.
const (
	OpConnect    = "connect"
	OpSetVoltage = "set_voltage"
	OpSetCurrent = "set_current"
	OpRelay      = "relay"
)

// StateMessage is the retained payload on hvpsu/state/{identity}.
type StateMessage struct {
	Identity  string    `json:"identity"`
	Timestamp time.Time `json:"timestamp"`
	psu.StatusEntry
}

// CommandMessage is the payload of a command topic.
//
// Value carries the setpoint for set_voltage and set_current. State carries
// the desired relay state for relay. connect takes no fields.
type CommandMessage struct {
	ID     string   `json:"id,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	State  *bool    `json:"state,omitempty"`
	UserID string   `json:"user_id,omitempty"`
}

// AckMessage is published to hvpsu/ack/{identity} after every command.
type AckMessage struct {
	ID        string    `json:"id,omitempty"`
	Identity  string    `json:"identity"`
	Op        string    `json:"op"`
	OK        bool      `json:"ok"`
	On        *bool     `json:"on,omitempty"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Ack error code for payloads that cannot be executed at all.
const codeBadRequest = "bad_request"
