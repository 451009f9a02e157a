package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// CodeOK tags a command point that did not fail.
const CodeOK = "ok"

// CommandPointWriter records command outcomes. *influxdb.Client implements it.
type CommandPointWriter interface {
	WritePSUCommand(identity, op string, value *float64, accepted bool, code string, ts time.Time)
}

// RecordCommands returns a psu.CommandObserver that writes one point per
// command. Failed commands are tagged with their psu error code.
func RecordCommands(w CommandPointWriter) psu.CommandObserver {
	return func(_ context.Context, ev psu.CommandEvent) {
		code := CodeOK
		if ev.Err != nil {
			code = psu.ErrorCode(ev.Err)
		}
		w.WritePSUCommand(ev.Identity, ev.Op, ev.Value, ev.Accepted, code, time.Now())
	}
}
