// Package cli implements hvpsuctl, the command-line client of hvpsud.
//
// Commands map one-to-one onto the HTTP API: status, connect, set-voltage,
// set-current, read, relay and teardown. The token command mints access
// tokens locally from the shared signing secret.
package cli
