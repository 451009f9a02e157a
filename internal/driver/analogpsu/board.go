package analogpsu

import "fmt"

// Bulk is a claimed USB interface with one bulk OUT and one bulk IN endpoint.
type Bulk interface {
	BulkOut(data []byte) error
	BulkIn(buf []byte) error
	Close() error
}

// Board exchanges frames with one interface board. It is not safe for
// concurrent use; the PSU device layer serialises access.
type Board struct {
	bulk Bulk
	last Frame
}

// NewBoard wraps an open bulk link.
func NewBoard(bulk Bulk) *Board {
	return &Board{bulk: bulk}
}

// Query sends cmd and returns the validated status frame. Board-level
// faults are reported through the frame's Response, not as an error.
func (b *Board) Query(cmd Frame) (Frame, error) {
	out, err := cmd.MarshalBinary()
	if err != nil {
		return Frame{}, err
	}
	if err := b.bulk.BulkOut(out); err != nil {
		return Frame{}, fmt.Errorf("analogpsu: send command: %w", err)
	}

	in := make([]byte, FrameSize)
	if err := b.bulk.BulkIn(in); err != nil {
		return Frame{}, fmt.Errorf("analogpsu: read status: %w", err)
	}

	var resp Frame
	if err := resp.UnmarshalBinary(in); err != nil {
		return Frame{}, err
	}
	b.last = resp
	return resp, nil
}

// Readout requests a status frame without changing any output.
func (b *Board) Readout() (Frame, error) {
	return b.Query(Frame{})
}

// SetDACA writes the voltage DAC.
func (b *Board) SetDACA(code uint16) (Frame, error) {
	return b.Query(Frame{SetMask: SetDACA, DACA: code})
}

// SetDACB writes the current DAC.
func (b *Board) SetDACB(code uint16) (Frame, error) {
	return b.Query(Frame{SetMask: SetDACB, DACB: code})
}

// SetRelay drives the relay line.
func (b *Board) SetRelay(on bool) (Frame, error) {
	f := Frame{SetMask: SetRelay}
	if on {
		f.Relay = 1
	}
	return b.Query(f)
}

// Last returns the most recent valid status frame.
func (b *Board) Last() Frame {
	return b.last
}

// Close releases the USB link.
func (b *Board) Close() error {
	return b.bulk.Close()
}
