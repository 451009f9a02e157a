package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every hvpsu topic.
const TopicPrefix = "hvpsu"

// Topics provides builders for hvpsu MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.PSUState("fug")
//	// Returns: "hvpsu/state/fug"
type Topics struct{}

// SystemStatus returns the retained online/offline topic, also used as LWT.
//
// Example: hvpsu/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// PSUState returns the retained status topic of one PSU.
//
// Example: hvpsu/state/fug
func (Topics) PSUState(identity string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, identity)
}

// PSUCommand returns the topic a client publishes op commands to.
//
// Example: hvpsu/command/fug/set_voltage
func (Topics) PSUCommand(identity, op string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, identity, op)
}

// PSUAck returns the topic command results are published on.
//
// Example: hvpsu/ack/fug
func (Topics) PSUAck(identity string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, identity)
}

// AllPSUStates matches every PSU state topic.
//
// Pattern: hvpsu/state/+
func (Topics) AllPSUStates() string {
	return TopicPrefix + "/state/+"
}

// AllPSUCommands matches every PSU command topic.
//
// Pattern: hvpsu/command/+/+
func (Topics) AllPSUCommands() string {
	return TopicPrefix + "/command/+/+"
}

// ParseCommand splits a command topic into identity and op.
// ok is false for any topic not shaped like PSUCommand's output.
func (Topics) ParseCommand(topic string) (identity, op string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "command" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
