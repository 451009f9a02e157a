package psu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// RelayState is the output relay state of a Device.
type RelayState int32

const (
	// RelayUnsupported is the permanent state of PSU classes without a relay.
	RelayUnsupported RelayState = iota
	RelayOff
	RelayOn
)

func (s RelayState) String() string {
	switch s {
	case RelayOff:
		return "off"
	case RelayOn:
		return "on"
	default:
		return "unsupported"
	}
}

// MarshalText encodes the state as its string form.
func (s RelayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses "unsupported", "off" or "on".
func (s *RelayState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unsupported":
		*s = RelayUnsupported
	case "off":
		*s = RelayOff
	case "on":
		*s = RelayOn
	default:
		return fmt.Errorf("psu: invalid relay state %q", text)
	}
	return nil
}

// On reports whether the relay is known to be closed.
func (s RelayState) On() bool {
	return s == RelayOn
}

func relayFromBool(on bool) RelayState {
	if on {
		return RelayOn
	}
	return RelayOff
}

// Board is the interface board an identity is wired to, as configured.
// A non-empty USBPath takes precedence over Index.
type Board struct {
	Index   int    `json:"device_index"`
	USBPath string `json:"usb_path,omitempty"`
}

// Reading is one measurement of a PSU output.
type Reading struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	RelayOn bool    `json:"relay_on"`
}

// Device binds one PSU identity to its limits and, once connected, to a
// hardware handle.
//
// Lock ordering: connectMu before mu. mu is held for the duration of every
// hardware transaction, which serialises commands on the physical link.
type Device struct {
	identity string
	limits   DeviceLimits
	board    Board

	connectMu sync.Mutex

	mu     sync.Mutex
	handle HardwareHandle

	// Mirrors of handle/relay readable without waiting on a transaction.
	connected atomic.Bool
	relay     atomic.Int32

	// closed is set by Teardown and cleared only by an explicit Connect.
	closed atomic.Bool
}

// NewDevice creates a disconnected device.
func NewDevice(identity string, limits DeviceLimits) *Device {
	d := &Device{
		identity: identity,
		limits:   limits,
	}
	d.relay.Store(int32(d.defaultRelay()))
	return d
}

// Identity returns the logical PSU name.
func (d *Device) Identity() string {
	return d.identity
}

// Limits returns the device's safety envelope.
func (d *Device) Limits() DeviceLimits {
	return d.limits
}

// Board returns the configured board selector.
func (d *Device) Board() Board {
	return d.board
}

// Connected reports whether the device holds a hardware handle.
func (d *Device) Connected() bool {
	return d.connected.Load()
}

// Parked reports whether the device was torn down and stays disconnected
// until Connect is called explicitly.
func (d *Device) Parked() bool {
	return d.closed.Load()
}

// RelayState returns the cached relay state without touching hardware.
func (d *Device) RelayState() RelayState {
	return RelayState(d.relay.Load())
}

func (d *Device) defaultRelay() RelayState {
	if d.limits.HasRelay {
		return RelayOff
	}
	return RelayUnsupported
}

// Connect opens the hardware handle if the device has none and un-parks a
// torn-down device.
//
// For relay-capable devices the relay state is seeded from one best-effort
// IsRelayOn query; if that query fails the state starts as RelayOff.
//
// Returns:
//   - error: *ConnectError classified as HardwareUnavailable or DriverFault
func (d *Device) Connect(ctx context.Context, factory HardwareFactory) error {
	return d.connect(ctx, factory, false)
}

// connect opens the handle. A lazy connect never un-parks: once Teardown has
// set closed it fails with ErrNotConnected without calling the factory.
// Teardown sets closed before taking connectMu, so the check under the lock
// cannot miss a teardown that is already waiting.
func (d *Device) connect(ctx context.Context, factory HardwareFactory, lazy bool) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if lazy && d.closed.Load() {
		return d.notConnected()
	}
	if d.Connected() {
		if !lazy {
			d.closed.Store(false)
		}
		return nil
	}

	handle, err := factory.Open(ctx, d.identity, d.limits)
	if err != nil {
		return newConnectError(d.identity, err)
	}
	if handle == nil {
		return newConnectError(d.identity, errors.New("driver returned no handle"))
	}

	relay := d.defaultRelay()
	if d.limits.HasRelay {
		if on, qerr := handle.IsRelayOn(); qerr == nil {
			relay = relayFromBool(on)
		}
	}

	d.mu.Lock()
	d.handle = handle
	d.relay.Store(int32(relay))
	d.connected.Store(true)
	if !lazy {
		d.closed.Store(false)
	}
	d.mu.Unlock()

	return nil
}

// acquire locks the device for one hardware transaction.
// On success the caller owns d.mu and must unlock it.
func (d *Device) acquire() (HardwareHandle, error) {
	if d.closed.Load() {
		return nil, d.notConnected()
	}
	d.mu.Lock()
	if d.handle == nil || d.closed.Load() {
		d.mu.Unlock()
		return nil, d.notConnected()
	}
	return d.handle, nil
}

func (d *Device) notConnected() error {
	return fmt.Errorf("%w: %s", ErrNotConnected, d.identity)
}

// SetVoltage sends a voltage setpoint in volts.
//
// The range check runs before the connection check, so an out-of-range
// value is rejected even on a disconnected device. The returned bool is the
// hardware's own acceptance flag.
func (d *Device) SetVoltage(v float64) (bool, error) {
	if err := d.limits.CheckVoltage(v); err != nil {
		return false, err
	}
	h, err := d.acquire()
	if err != nil {
		return false, err
	}
	defer d.mu.Unlock()

	ok, err := h.SetVoltage(v)
	if err != nil {
		return false, &CommandRejectedError{Op: "set_voltage", Err: err}
	}
	return ok, nil
}

// SetCurrent sends a current-limit setpoint in milliamps.
func (d *Device) SetCurrent(i float64) (bool, error) {
	if err := d.limits.CheckCurrent(i); err != nil {
		return false, err
	}
	h, err := d.acquire()
	if err != nil {
		return false, err
	}
	defer d.mu.Unlock()

	ok, err := h.SetCurrent(i)
	if err != nil {
		return false, &CommandRejectedError{Op: "set_current", Err: err}
	}
	return ok, nil
}

// Read measures output voltage and current.
//
// Devices without a relay always report RelayOn false and the relay is never
// queried. Relay-capable devices query the relay live and refresh the cached
// state from the answer.
func (d *Device) Read() (Reading, error) {
	h, err := d.acquire()
	if err != nil {
		return Reading{}, err
	}
	defer d.mu.Unlock()

	v, err := h.ReadVoltage()
	if err != nil {
		return Reading{}, &CommandRejectedError{Op: "read_voltage", Err: err}
	}
	i, err := h.ReadCurrent()
	if err != nil {
		return Reading{}, &CommandRejectedError{Op: "read_current", Err: err}
	}

	r := Reading{Voltage: v, Current: i}
	if !d.limits.HasRelay {
		return r, nil
	}

	on, err := h.IsRelayOn()
	if err != nil {
		return Reading{}, &CommandRejectedError{Op: "read_relay", Err: err}
	}
	d.relay.Store(int32(relayFromBool(on)))
	r.RelayOn = on
	return r, nil
}

// SetRelay switches the output relay and returns the state the hardware
// reports afterwards.
//
// A rejected switch command leaves the cached state untouched. After an
// accepted command the relay is re-queried and the cache follows the
// hardware, which may differ from desired.
func (d *Device) SetRelay(desired bool) (bool, error) {
	if !d.limits.HasRelay {
		return false, fmt.Errorf("%w: %s", ErrRelayUnsupported, d.identity)
	}
	h, err := d.acquire()
	if err != nil {
		return false, err
	}
	defer d.mu.Unlock()

	op, switchFn := "switch_off", h.SwitchOff
	if desired {
		op, switchFn = "switch_on", h.SwitchOn
	}

	ok, err := switchFn()
	if err != nil {
		return false, &CommandRejectedError{Op: op, Err: err}
	}
	if !ok {
		return false, &CommandRejectedError{Op: op}
	}

	on, err := h.IsRelayOn()
	if err != nil {
		return false, &CommandRejectedError{Op: "read_relay", Err: err}
	}
	d.relay.Store(int32(relayFromBool(on)))
	return on, nil
}

// Teardown releases the hardware handle and resets the relay state.
//
// Callers arriving while teardown is in progress fail with ErrNotConnected;
// a transaction already holding the device finishes first. The device stays
// parked until the next explicit Connect. Safe to call repeatedly.
func (d *Device) Teardown() error {
	d.closed.Store(true)

	d.connectMu.Lock()
	defer d.connectMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	// An explicit Connect that finished while we waited cleared the flag.
	d.closed.Store(true)

	h := d.handle
	d.handle = nil
	d.connected.Store(false)
	d.relay.Store(int32(d.defaultRelay()))

	if h == nil {
		return nil
	}
	if err := h.Disconnect(); err != nil {
		return fmt.Errorf("psu: %s: disconnect: %w", d.identity, err)
	}
	return nil
}
