package analogpsu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// fakeFirmware answers frames the way the board does: it applies the
// masked outputs and reflects its state in the status frame.
type fakeFirmware struct {
	daca, dacb uint16
	relay      uint8
	adcb       [4]uint16
	response   int16

	pending  []byte
	sent     []Frame
	outErr   error
	inErr    error
	corrupt  bool
	closed   int
	closeErr error
}

func (f *fakeFirmware) BulkOut(data []byte) error {
	if f.outErr != nil {
		return f.outErr
	}
	var cmd Frame
	if err := cmd.UnmarshalBinary(data); err != nil {
		return err
	}
	f.sent = append(f.sent, cmd)

	if cmd.SetMask&SetDACA != 0 {
		f.daca = cmd.DACA
	}
	if cmd.SetMask&SetDACB != 0 {
		f.dacb = cmd.DACB
	}
	if cmd.SetMask&SetRelay != 0 {
		f.relay = cmd.Relay
	}

	resp := Frame{
		Sequence: uint16(len(f.sent)),
		Response: f.response,
		ADCB:     f.adcb,
		DACA:     f.daca,
		DACB:     f.dacb,
		Relay:    f.relay,
	}
	out, err := resp.MarshalBinary()
	if err != nil {
		return err
	}
	if f.corrupt {
		out[10] ^= 0xFF
	}
	f.pending = out
	return nil
}

func (f *fakeFirmware) BulkIn(buf []byte) error {
	if f.inErr != nil {
		return f.inErr
	}
	copy(buf, f.pending)
	return nil
}

func (f *fakeFirmware) Close() error {
	f.closed++
	return f.closeErr
}

var heinzingerLimits = psu.DeviceLimits{MaxVoltage: 30000, MaxCurrent: 2, MaxInputVoltage: 10}

func newTestHandle(fw *fakeFirmware) *Handle {
	return NewHandle("heinzinger", NewBoard(fw), heinzingerLimits, nil)
}

func TestHandle_SetVoltageWritesDACA(t *testing.T) {
	fw := &fakeFirmware{}
	h := newTestHandle(fw)

	ok, err := h.SetVoltage(15000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(29589), fw.daca)
	assert.Zero(t, fw.dacb)
	require.Len(t, fw.sent, 1)
	assert.Equal(t, SetDACA, fw.sent[0].SetMask)
}

func TestHandle_SetCurrentWritesDACB(t *testing.T) {
	fw := &fakeFirmware{}
	h := newTestHandle(fw)

	ok, err := h.SetCurrent(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(57995), fw.dacb)
	assert.Zero(t, fw.daca)
}

func TestHandle_ResponseCodes(t *testing.T) {
	tests := []struct {
		name     string
		response int16
		want     bool
	}{
		{"ok", ResponseOK, true},
		{"ignored status word", ResponseIgnored, true},
		{"fault", 0x0002, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := &fakeFirmware{response: tt.response}
			h := newTestHandle(fw)

			ok, err := h.SetVoltage(100)
			require.NoError(t, err, "a board fault is a hardware false, not an error")
			assert.Equal(t, tt.want, ok)

			ok, err = h.SwitchOn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHandle_Readback(t *testing.T) {
	fw := &fakeFirmware{adcb: [4]uint16{0, 0, 10000, 20000}}
	h := newTestHandle(fw)

	v, err := h.ReadVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 5414.145113, v, 1e-6)

	i, err := h.ReadCurrent()
	require.NoError(t, err)
	assert.InDelta(t, 0.721886015, i, 1e-6)

	for _, f := range fw.sent {
		assert.Zero(t, f.SetMask, "readback never writes outputs")
	}
}

func TestHandle_ReadFaultIsError(t *testing.T) {
	fw := &fakeFirmware{response: 0x0100}
	h := newTestHandle(fw)

	_, err := h.ReadVoltage()
	assert.ErrorIs(t, err, ErrBoardFault)
	_, err = h.IsRelayOn()
	assert.ErrorIs(t, err, ErrBoardFault)
}

func TestHandle_Relay(t *testing.T) {
	fw := &fakeFirmware{}
	h := newTestHandle(fw)

	on, err := h.IsRelayOn()
	require.NoError(t, err)
	assert.False(t, on)

	ok, err := h.SwitchOn()
	require.NoError(t, err)
	assert.True(t, ok)
	on, err = h.IsRelayOn()
	require.NoError(t, err)
	assert.True(t, on)

	ok, err = h.SwitchOff()
	require.NoError(t, err)
	assert.True(t, ok)
	on, err = h.IsRelayOn()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestHandle_TransportErrors(t *testing.T) {
	errStall := errors.New("endpoint stalled")

	fw := &fakeFirmware{outErr: &TransferError{Op: "write", Endpoint: 0x01, Want: FrameSize, Err: ErrTimeout}}
	_, err := newTestHandle(fw).SetVoltage(10)
	assert.ErrorIs(t, err, ErrTimeout)

	fw = &fakeFirmware{inErr: errStall}
	_, err = newTestHandle(fw).ReadVoltage()
	assert.ErrorIs(t, err, errStall)

	fw = &fakeFirmware{corrupt: true}
	_, err = newTestHandle(fw).ReadCurrent()
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestHandle_Disconnect(t *testing.T) {
	fw := &fakeFirmware{}
	h := newTestHandle(fw)
	require.NoError(t, h.Disconnect())
	assert.Equal(t, 1, fw.closed)
}

func TestBoard_LastFrame(t *testing.T) {
	fw := &fakeFirmware{adcb: [4]uint16{9, 8, 7, 6}}
	b := NewBoard(fw)

	_, err := b.Readout()
	require.NoError(t, err)
	assert.Equal(t, [4]uint16{9, 8, 7, 6}, b.Last().ADCB)
	assert.Equal(t, uint16(1), b.Last().Sequence)
}
