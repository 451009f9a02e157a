package psu

import "context"

// HardwareHandle is an open link to one physical PSU.
//
// Boolean results are the hardware's own accept/reject signal and are not
// errors. Errors mean the driver could not complete the transaction; drivers
// should apply their own transfer timeout and return an error rather than
// block indefinitely.
//
// The Device serialises all calls on one handle, so implementations need not
// be safe for concurrent use. SwitchOn, SwitchOff and IsRelayOn are only
// called for limits with HasRelay set.
type HardwareHandle interface {
	SetVoltage(v float64) (bool, error)
	SetCurrent(i float64) (bool, error)
	ReadVoltage() (float64, error)
	ReadCurrent() (float64, error)
	SwitchOn() (bool, error)
	SwitchOff() (bool, error)
	IsRelayOn() (bool, error)

	// Disconnect releases the link. It must be safe to call on a link
	// that is already broken.
	Disconnect() error
}

// HardwareFactory opens hardware handles.
//
// Open wraps ErrHardwareNotFound when the device is absent; any other error
// is treated as a driver fault. The Manager guarantees at most one Open in
// flight per identity, so Open itself need not be idempotent.
type HardwareFactory interface {
	Open(ctx context.Context, identity string, limits DeviceLimits) (HardwareHandle, error)
}

// FactoryFunc adapts a function to the HardwareFactory interface.
type FactoryFunc func(ctx context.Context, identity string, limits DeviceLimits) (HardwareHandle, error)

// Open calls f.
func (f FactoryFunc) Open(ctx context.Context, identity string, limits DeviceLimits) (HardwareHandle, error) {
	return f(ctx, identity, limits)
}
