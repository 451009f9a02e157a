package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// cmd/hvpsud treats it as "run without a time-series sink".
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps a failed or unhealthy ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps every batch error handed to the SetOnError
	// callback. Writes themselves never return errors.
	ErrWriteFailed = errors.New("influxdb: batch write failed")
)
