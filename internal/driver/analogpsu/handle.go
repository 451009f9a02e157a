package analogpsu

import (
	"fmt"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// ADCB channels wired to the PSU monitor outputs.
const (
	voltageChannel = 2
	currentChannel = 3
)

// Logger is the logging interface used by the driver.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Handle implements psu.HardwareHandle on top of one Board.
type Handle struct {
	identity string
	board    *Board
	voltage  Scale
	current  Scale
	logger   Logger
}

var _ psu.HardwareHandle = (*Handle)(nil)

// NewHandle binds board to the limits of one PSU.
func NewHandle(identity string, board *Board, limits psu.DeviceLimits, logger Logger) *Handle {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Handle{
		identity: identity,
		board:    board,
		voltage:  Scale{Max: limits.MaxVoltage, MaxInput: limits.MaxInputVoltage},
		current:  Scale{Max: limits.MaxCurrent, MaxInput: limits.MaxInputVoltage},
		logger:   logger,
	}
}

// accepted maps the status word to the hardware accept flag.
func (h *Handle) accepted(op string, resp Frame) bool {
	if resp.Fault() {
		h.logger.Warn("board rejected command", "identity", h.identity, "op", op,
			"response", fmt.Sprintf("0x%04X", uint16(resp.Response)))
		return false
	}
	if resp.Response == ResponseIgnored {
		h.logger.Debug("board status 0x0F00 ignored", "identity", h.identity, "op", op)
	}
	return true
}

// SetVoltage writes the voltage DAC.
func (h *Handle) SetVoltage(v float64) (bool, error) {
	code := h.voltage.Register(v)
	resp, err := h.board.SetDACA(code)
	if err != nil {
		return false, err
	}
	h.logger.Debug("voltage DAC written", "identity", h.identity, "volts", v, "code", code)
	return h.accepted("set_voltage", resp), nil
}

// SetCurrent writes the current DAC.
func (h *Handle) SetCurrent(i float64) (bool, error) {
	code := h.current.Register(i)
	resp, err := h.board.SetDACB(code)
	if err != nil {
		return false, err
	}
	h.logger.Debug("current DAC written", "identity", h.identity, "milliamps", i, "code", code)
	return h.accepted("set_current", resp), nil
}

func (h *Handle) readout() (Frame, error) {
	resp, err := h.board.Readout()
	if err != nil {
		return Frame{}, err
	}
	if resp.Fault() {
		return Frame{}, fmt.Errorf("%w: 0x%04X", ErrBoardFault, uint16(resp.Response))
	}
	return resp, nil
}

// ReadVoltage samples the voltage monitor.
func (h *Handle) ReadVoltage() (float64, error) {
	resp, err := h.readout()
	if err != nil {
		return 0, err
	}
	return h.voltage.Value(resp.ADCB[voltageChannel]), nil
}

// ReadCurrent samples the current monitor.
func (h *Handle) ReadCurrent() (float64, error) {
	resp, err := h.readout()
	if err != nil {
		return 0, err
	}
	return h.current.Value(resp.ADCB[currentChannel]), nil
}

// SwitchOn closes the output relay.
func (h *Handle) SwitchOn() (bool, error) {
	resp, err := h.board.SetRelay(true)
	if err != nil {
		return false, err
	}
	return h.accepted("switch_on", resp), nil
}

// SwitchOff opens the output relay.
func (h *Handle) SwitchOff() (bool, error) {
	resp, err := h.board.SetRelay(false)
	if err != nil {
		return false, err
	}
	return h.accepted("switch_off", resp), nil
}

// IsRelayOn reads the relay line back from the board.
func (h *Handle) IsRelayOn() (bool, error) {
	resp, err := h.readout()
	if err != nil {
		return false, err
	}
	return resp.RelayOn(), nil
}

// Disconnect releases the board.
func (h *Handle) Disconnect() error {
	return h.board.Close()
}
