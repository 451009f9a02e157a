package psu

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeHandle records every hardware call.
type fakeHandle struct {
	mu sync.Mutex

	calls    []string
	voltages []float64
	currents []float64

	accept     bool
	switchOK   bool
	relayOn    bool
	ignoreOn   bool // SwitchOn accepted but relay stays off
	readV      float64
	readI      float64
	readErr    error
	setErr     error
	relayErr   error
	disconnErr error
	disconnect int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{accept: true, switchOK: true}
}

func (h *fakeHandle) record(call string) {
	h.calls = append(h.calls, call)
}

func (h *fakeHandle) SetVoltage(v float64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("set_voltage")
	if h.setErr != nil {
		return false, h.setErr
	}
	h.voltages = append(h.voltages, v)
	return h.accept, nil
}

func (h *fakeHandle) SetCurrent(i float64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("set_current")
	if h.setErr != nil {
		return false, h.setErr
	}
	h.currents = append(h.currents, i)
	return h.accept, nil
}

func (h *fakeHandle) ReadVoltage() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("read_voltage")
	return h.readV, h.readErr
}

func (h *fakeHandle) ReadCurrent() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("read_current")
	return h.readI, h.readErr
}

func (h *fakeHandle) SwitchOn() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("switch_on")
	if h.relayErr != nil {
		return false, h.relayErr
	}
	if h.switchOK && !h.ignoreOn {
		h.relayOn = true
	}
	return h.switchOK, nil
}

func (h *fakeHandle) SwitchOff() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("switch_off")
	if h.relayErr != nil {
		return false, h.relayErr
	}
	if h.switchOK {
		h.relayOn = false
	}
	return h.switchOK, nil
}

func (h *fakeHandle) IsRelayOn() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("is_relay_on")
	return h.relayOn, nil
}

func (h *fakeHandle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("disconnect")
	h.disconnect++
	return h.disconnErr
}

func (h *fakeHandle) callCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (h *fakeHandle) totalCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// fakeFactory hands out one prepared handle per identity.
type fakeFactory struct {
	mu      sync.Mutex
	handles map[string]*fakeHandle
	opens   map[string]int
	err     error
	delay   time.Duration
	inOpen  atomic.Int32
	maxOpen atomic.Int32
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		handles: make(map[string]*fakeHandle),
		opens:   make(map[string]int),
	}
}

func (f *fakeFactory) handle(identity string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.handles[identity]
	if !ok {
		h = newFakeHandle()
		f.handles[identity] = h
	}
	return h
}

func (f *fakeFactory) Open(ctx context.Context, identity string, _ DeviceLimits) (HardwareHandle, error) {
	n := f.inOpen.Add(1)
	defer f.inOpen.Add(-1)
	for {
		cur := f.maxOpen.Load()
		if n <= cur || f.maxOpen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.opens[identity]++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.handle(identity), nil
}

func (f *fakeFactory) openCount(identity string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[identity]
}

func (f *fakeFactory) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// gateLogger blocks the goroutine that logs msg until release is closed.
type gateLogger struct {
	noopLogger
	msg     string
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateLogger(msg string) *gateLogger {
	return &gateLogger{msg: msg, reached: make(chan struct{}), release: make(chan struct{})}
}

func (l *gateLogger) Info(msg string, _ ...any) {
	if msg != l.msg {
		return
	}
	l.once.Do(func() { close(l.reached) })
	<-l.release
}

var errBus = errors.New("usb: bulk transfer timed out")

var (
	alphaLimits = DeviceLimits{MaxVoltage: 30000, MaxCurrent: 2.0, MaxInputVoltage: 10}
	betaLimits  = DeviceLimits{MaxVoltage: 50000, MaxCurrent: 0.5, MaxInputVoltage: 10, HasRelay: true}
)

func testConfigs() []DeviceConfig {
	return []DeviceConfig{
		{Identity: "alpha", Limits: alphaLimits},
		{Identity: "beta", Limits: betaLimits},
	}
}
