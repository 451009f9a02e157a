package analogpsu

import (
	"encoding/binary"
	"fmt"
)

// USB identifiers of the interface board.
const (
	VendorID  = 0xA0A0
	ProductID = 0x000C
)

// Magic opens every frame in both directions.
const Magic uint32 = 0xA4A7051F

// FrameSize is the wire size of a Frame.
const FrameSize = 32

// SetMask selects which outputs a command frame writes.
// A zero mask is a pure readout.
type SetMask uint8

const (
	SetDACA SetMask = 1 << iota // voltage setpoint
	SetDACB                     // current setpoint
	SetRelay
)

// Response codes in the status frame.
const (
	ResponseOK = 0x0000
	// ResponseIgnored is reported by the firmware in normal operation and
	// does not indicate a failed command.
	ResponseIgnored = 0x0F00
)

// Frame is the fixed 32-byte little-endian exchange unit.
type Frame struct {
	Magic    uint32
	Checksum uint16
	Sequence uint16
	Response int16
	ADCA     [4]int16
	ADCB     [4]uint16
	DACA     uint16
	DACB     uint16
	Relay    uint8
	SetMask  SetMask
}

// Fault reports whether the board rejected the command.
func (f Frame) Fault() bool {
	return f.Response != ResponseOK && f.Response != ResponseIgnored
}

// RelayOn reports the relay readback.
func (f Frame) RelayOn() bool {
	return f.Relay != 0
}

// MarshalBinary encodes f with the Magic and a freshly computed checksum.
func (f Frame) MarshalBinary() ([]byte, error) {
	f.Magic = Magic
	f.Checksum = 0

	buf := make([]byte, FrameSize)
	if _, err := binary.Encode(buf, binary.LittleEndian, f); err != nil {
		return nil, fmt.Errorf("analogpsu: encode frame: %w", err)
	}
	binary.LittleEndian.PutUint16(buf[4:6], checksum(buf))
	return buf, nil
}

// UnmarshalBinary decodes and validates a status frame.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	data = data[:FrameSize]

	if magic := binary.LittleEndian.Uint32(data); magic != Magic {
		return fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}
	if sum := checksum(data); sum != 0 {
		return fmt.Errorf("%w: residue 0x%04X", ErrChecksum, sum)
	}
	if _, err := binary.Decode(data, binary.LittleEndian, f); err != nil {
		return fmt.Errorf("analogpsu: decode frame: %w", err)
	}
	return nil
}

// checksum XORs all 16-bit words into 0xFFFF. A frame carrying its own
// checksum folds to zero.
func checksum(b []byte) uint16 {
	sum := uint16(0xFFFF)
	for i := 0; i+1 < len(b); i += 2 {
		sum ^= binary.LittleEndian.Uint16(b[i:])
	}
	return sum
}
