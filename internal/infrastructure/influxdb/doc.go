// Package influxdb records PSU time series in InfluxDB v2.
//
// Two measurements are written, both batched through the influxdb-client-go
// non-blocking WriteAPI:
//
//	psu_reading,identity=fug voltage=12000,current=0.21,relay_on=true
//	psu_command,identity=fug,op=set_voltage,code=ok accepted=true,value=12000
//
// The telemetry reporter writes readings once per tick; the command
// recorder writes one point per state-changing command.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without a time-series sink
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("influx write", "error", err) })
//
// Writes never return errors. Failed batches reach the SetOnError callback
// wrapped in ErrWriteFailed.
package influxdb
