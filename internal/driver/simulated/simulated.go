// Package simulated provides an in-memory PSU for bench and development use.
//
// A simulated PSU stores its setpoints and reports them back as readings.
// It does not model slew, load or ripple. State survives reconnects, like a
// physical PSU that stays powered while its controller reconnects.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// ErrDisconnected is returned by a handle used after Disconnect.
var ErrDisconnected = errors.New("simulated: handle disconnected")

// State is the simulated output of one PSU.
type State struct {
	Voltage float64
	Current float64
	RelayOn bool
}

type unit struct {
	state State
	fault error
	opens int
}

// Factory hands out simulated handles. It is safe for concurrent use.
type Factory struct {
	mu     sync.Mutex
	units  map[string]*unit
	absent map[string]bool
}

var _ psu.HardwareFactory = (*Factory)(nil)

// NewFactory creates a factory. Identities listed in absent fail to open
// with psu.ErrHardwareNotFound until SetAbsent clears them.
func NewFactory(absent ...string) *Factory {
	f := &Factory{
		units:  make(map[string]*unit),
		absent: make(map[string]bool),
	}
	for _, id := range absent {
		f.absent[id] = true
	}
	return f
}

// SetAbsent marks identity as unplugged or plugged in.
func (f *Factory) SetAbsent(identity string, absent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.absent[identity] = absent
}

// SetFault makes every hardware call for identity fail with err.
// A nil err clears the fault.
func (f *Factory) SetFault(identity string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unit(identity).fault = err
}

// State returns the current simulated output for identity.
func (f *Factory) State(identity string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unit(identity).state
}

// Opens returns how many times identity was opened.
func (f *Factory) Opens(identity string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unit(identity).opens
}

// unit must be called with f.mu held.
func (f *Factory) unit(identity string) *unit {
	u, ok := f.units[identity]
	if !ok {
		u = &unit{}
		f.units[identity] = u
	}
	return u
}

// Open returns a handle bound to identity's simulated unit.
func (f *Factory) Open(ctx context.Context, identity string, limits psu.DeviceLimits) (psu.HardwareHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.absent[identity] {
		return nil, fmt.Errorf("%w: simulated %q is unplugged", psu.ErrHardwareNotFound, identity)
	}
	u := f.unit(identity)
	u.opens++
	return &handle{factory: f, unit: u, limits: limits}, nil
}

type handle struct {
	factory *Factory
	unit    *unit
	limits  psu.DeviceLimits
	closed  bool
}

// do runs fn against the unit under the factory lock.
func (h *handle) do(fn func(s *State) error) error {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	if h.closed {
		return ErrDisconnected
	}
	if h.unit.fault != nil {
		return h.unit.fault
	}
	return fn(&h.unit.state)
}

func (h *handle) SetVoltage(v float64) (bool, error) {
	err := h.do(func(s *State) error {
		s.Voltage = v
		return nil
	})
	return err == nil, err
}

func (h *handle) SetCurrent(i float64) (bool, error) {
	err := h.do(func(s *State) error {
		s.Current = i
		return nil
	})
	return err == nil, err
}

func (h *handle) ReadVoltage() (float64, error) {
	var v float64
	err := h.do(func(s *State) error {
		v = s.Voltage
		return nil
	})
	return v, err
}

func (h *handle) ReadCurrent() (float64, error) {
	var i float64
	err := h.do(func(s *State) error {
		i = s.Current
		return nil
	})
	return i, err
}

func (h *handle) switchTo(on bool) (bool, error) {
	if !h.limits.HasRelay {
		return false, nil
	}
	err := h.do(func(s *State) error {
		s.RelayOn = on
		return nil
	})
	return err == nil, err
}

func (h *handle) SwitchOn() (bool, error)  { return h.switchTo(true) }
func (h *handle) SwitchOff() (bool, error) { return h.switchTo(false) }

func (h *handle) IsRelayOn() (bool, error) {
	var on bool
	err := h.do(func(s *State) error {
		on = s.RelayOn
		return nil
	})
	return on, err
}

func (h *handle) Disconnect() error {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	h.closed = true
	return nil
}
