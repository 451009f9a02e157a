package analogpsu

import (
	"errors"
	"fmt"
)

// Predefined errors for board communication
var (
	ErrShortFrame          = errors.New("analogpsu: short frame")
	ErrBadMagic            = errors.New("analogpsu: bad frame magic")
	ErrChecksum            = errors.New("analogpsu: frame checksum mismatch")
	ErrBoardFault          = errors.New("analogpsu: board reported fault")
	ErrBoardRange          = errors.New("analogpsu: board output range too small for PSU control input")
	ErrNoSelector          = errors.New("analogpsu: no board selector for identity")
	ErrInvalidConfig       = errors.New("analogpsu: invalid configuration")
	ErrPermissionDenied    = errors.New("analogpsu: permission denied accessing USB device")
	ErrInterfaceBusy       = errors.New("analogpsu: USB interface busy")
	ErrTimeout             = errors.New("analogpsu: USB transfer timed out")
	ErrDeviceGone          = errors.New("analogpsu: USB device disconnected")
	ErrClosed              = errors.New("analogpsu: device closed")
	ErrUnsupportedPlatform = errors.New("analogpsu: USB transport requires Linux usbfs")
)

// TransferError reports an incomplete bulk transfer.
type TransferError struct {
	Op       string // "write" or "read"
	Endpoint uint8
	Done     int
	Want     int
	Err      error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analogpsu: bulk %s ep 0x%02x: %d/%d bytes: %v", e.Op, e.Endpoint, e.Done, e.Want, e.Err)
	}
	return fmt.Sprintf("analogpsu: bulk %s ep 0x%02x: %d/%d bytes", e.Op, e.Endpoint, e.Done, e.Want)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
