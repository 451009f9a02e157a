package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by hvpsud.
const (
	// MeasurementPSUReading holds one sampled output per PSU and tick.
	MeasurementPSUReading = "psu_reading"

	// MeasurementPSUCommand holds one point per state-changing command.
	MeasurementPSUCommand = "psu_command"
)

// WritePSUReading records one output reading of a PSU.
//
//	psu_reading,identity=fug voltage=12000,current=0.21,relay_on=true
//
// The point is batched and sent asynchronously. Nothing is written after
// Close.
func (c *Client) WritePSUReading(identity string, voltage, current float64, relayOn bool, ts time.Time) {
	c.write(write.NewPoint(MeasurementPSUReading,
		map[string]string{"identity": identity},
		map[string]interface{}{
			"voltage":  voltage,
			"current":  current,
			"relay_on": relayOn,
		},
		ts,
	))
}

// WritePSUCommand records the outcome of one command.
//
//	psu_command,identity=fug,op=set_voltage,code=ok accepted=true,value=12000
//
// identity is empty for teardown, value is nil for commands without an
// argument, and code is "ok" or the psu error code of a failed command.
func (c *Client) WritePSUCommand(identity, op string, value *float64, accepted bool, code string, ts time.Time) {
	tags := map[string]string{"op": op, "code": code}
	if identity != "" {
		tags["identity"] = identity
	}
	fields := map[string]interface{}{"accepted": accepted}
	if value != nil {
		fields["value"] = *value
	}
	c.write(write.NewPoint(MeasurementPSUCommand, tags, fields, ts))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
