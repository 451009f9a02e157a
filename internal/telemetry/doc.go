// Package telemetry moves PSU state and commands between the psu.Manager
// and the service's outbound channels.
//
// The Reporter takes a status snapshot on every tick and fans it out:
//   - retained JSON per identity on hvpsu/state/{identity}
//   - a psu_reading point per successful read to InfluxDB
//   - a "psu.status" event to WebSocket subscribers
//
// The CommandHandler subscribes to hvpsu/command/+/+ and executes each
// command through the Manager, so MQTT commands pass the same range checks
// and audit trail as API commands. The outcome is published to
// hvpsu/ack/{identity}.
//
// RecordCommands is a psu.CommandObserver that writes one psu_command point
// per command outcome, from any surface.
//
// Every sink is optional. A Reporter with no sinks still runs, which keeps
// wiring in cmd/hvpsud free of nil checks.
package telemetry
