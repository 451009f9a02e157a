package psu

import (
	"errors"
	"fmt"
)

// Domain errors for the psu package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, psu.ErrRelayUnsupported) {
//	    // tell the operator to switch the output manually
//	}
var (
	// ErrUnknownIdentity is returned when a PSU identity is not configured.
	ErrUnknownIdentity = errors.New("psu: unknown identity")

	// ErrOutOfRange is matched by every *OutOfRangeError.
	ErrOutOfRange = errors.New("psu: setpoint out of range")

	// ErrNotConnected is returned when an operation needs a hardware handle
	// and the device has none (never connected, failed connect, or torn down).
	ErrNotConnected = errors.New("psu: not connected")

	// ErrRelayUnsupported is returned for relay commands on a PSU class
	// without remote output switching.
	ErrRelayUnsupported = errors.New("psu: relay not supported, operate output manually")

	// ErrCommandRejected is matched by every *CommandRejectedError.
	ErrCommandRejected = errors.New("psu: command rejected")

	// ErrConnect is matched by every *ConnectError.
	ErrConnect = errors.New("psu: connect failed")

	// ErrHardwareNotFound is the sentinel a driver wraps when the physical
	// device is absent. The Device classifies it as HardwareUnavailable.
	ErrHardwareNotFound = errors.New("psu: hardware not found")

	// ErrInvalidConfig is returned by NewManager for unusable device configs.
	ErrInvalidConfig = errors.New("psu: invalid configuration")
)

// OutOfRangeError reports a setpoint outside the device's safety envelope.
type OutOfRangeError struct {
	Quantity Quantity
	Value    float64
	Min      float64
	Max      float64
}

func (e *OutOfRangeError) Error() string {
	unit := e.Quantity.Unit()
	return fmt.Sprintf("psu: %s %g%s outside range [%g, %g%s]",
		e.Quantity, e.Value, unit, e.Min, e.Max, unit)
}

// Is makes errors.Is(err, ErrOutOfRange) true.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// CommandRejectedError reports that the hardware declined a command or that
// the driver failed while carrying it out. Err holds the driver error, if any.
type CommandRejectedError struct {
	Op  string
	Err error
}

func (e *CommandRejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("psu: %s rejected: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("psu: %s rejected by hardware", e.Op)
}

// Is makes errors.Is(err, ErrCommandRejected) true.
func (e *CommandRejectedError) Is(target error) bool {
	return target == ErrCommandRejected
}

func (e *CommandRejectedError) Unwrap() error {
	return e.Err
}

// ConnectErrorKind distinguishes an absent device from a faulty one.
type ConnectErrorKind int

const (
	// HardwareUnavailable means the device was not found.
	HardwareUnavailable ConnectErrorKind = iota
	// DriverFault means the device was found but the driver failed.
	DriverFault
)

func (k ConnectErrorKind) String() string {
	switch k {
	case HardwareUnavailable:
		return "hardware_unavailable"
	case DriverFault:
		return "driver_fault"
	default:
		return "unknown"
	}
}

// ConnectError is returned when opening a hardware handle fails.
type ConnectError struct {
	Identity string
	Kind     ConnectErrorKind
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Kind == HardwareUnavailable {
		return fmt.Sprintf("psu: %s: hardware unavailable: %v", e.Identity, e.Err)
	}
	return fmt.Sprintf("psu: %s: driver fault: %v", e.Identity, e.Err)
}

// Is makes errors.Is(err, ErrConnect) true, and errors.Is(err,
// ErrHardwareNotFound) true for the HardwareUnavailable kind.
func (e *ConnectError) Is(target error) bool {
	if target == ErrConnect {
		return true
	}
	return target == ErrHardwareNotFound && e.Kind == HardwareUnavailable
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// newConnectError classifies a factory error.
func newConnectError(identity string, err error) *ConnectError {
	kind := DriverFault
	if errors.Is(err, ErrHardwareNotFound) {
		kind = HardwareUnavailable
	}
	return &ConnectError{Identity: identity, Kind: kind, Err: err}
}

func unknownIdentity(identity string) error {
	return fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
}

// Error codes reported to remote callers over HTTP and MQTT.
const (
	CodeUnknownIdentity     = "unknown_identity"
	CodeOutOfRange          = "out_of_range"
	CodeRelayUnsupported    = "relay_unsupported"
	CodeNotConnected        = "not_connected"
	CodeCommandRejected     = "command_rejected"
	CodeHardwareUnavailable = "hardware_unavailable"
	CodeDriverFault         = "driver_fault"
	CodeInternal            = "internal_error"
)

// ErrorCode classifies err into one of the Code constants.
func ErrorCode(err error) string {
	var connErr *ConnectError
	switch {
	case errors.Is(err, ErrUnknownIdentity):
		return CodeUnknownIdentity
	case errors.Is(err, ErrOutOfRange):
		return CodeOutOfRange
	case errors.Is(err, ErrRelayUnsupported):
		return CodeRelayUnsupported
	case errors.As(err, &connErr):
		return connErr.Kind.String()
	case errors.Is(err, ErrCommandRejected):
		return CodeCommandRejected
	case errors.Is(err, ErrNotConnected):
		return CodeNotConnected
	default:
		return CodeInternal
	}
}
