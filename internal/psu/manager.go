package psu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Logger defines the logging interface used by the Manager.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// connectTimeout bounds one shared connect attempt. The attempt outlives
// the caller that started it, so it cannot use that caller's deadline.
const connectTimeout = 30 * time.Second

// Command operation names reported to a CommandObserver.
const (
	OpConnect    = "connect"
	OpSetVoltage = "set_voltage"
	OpSetCurrent = "set_current"
	OpSetRelay   = "set_relay"
	OpTeardown   = "teardown"
)

// CommandEvent describes one state-changing command after it completed.
type CommandEvent struct {
	Identity string
	Op       string
	Value    *float64
	Accepted bool
	Err      error
}

// CommandObserver is notified of every state-changing command, successful
// or not. It runs synchronously on the caller's goroutine.
type CommandObserver func(ctx context.Context, ev CommandEvent)

// ChainObservers returns an observer that calls each non-nil observer in
// order, or nil when there is none.
func ChainObservers(observers ...CommandObserver) CommandObserver {
	var chain []CommandObserver
	for _, o := range observers {
		if o != nil {
			chain = append(chain, o)
		}
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return func(ctx context.Context, ev CommandEvent) {
		for _, o := range chain {
			o(ctx, ev)
		}
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver registers a command observer at construction.
func WithObserver(observer CommandObserver) Option {
	return func(m *Manager) {
		m.observer = observer
	}
}

// DeviceConfig declares one PSU identity.
type DeviceConfig struct {
	Identity string
	Limits   DeviceLimits
	Board    Board
}

// Manager is the registry of PSU devices keyed by identity.
//
// Devices connect lazily on first use. Concurrent first uses of one identity
// share a single connect attempt; a failed attempt is not remembered and the
// next call tries again. After TeardownAll a device is parked: it reports
// ErrNotConnected until Connect is called for it explicitly.
//
// All public methods are thread-safe.
type Manager struct {
	devices    map[string]*Device
	identities []string
	factory    HardwareFactory
	connects   singleflight.Group

	mu       sync.RWMutex // protects logger and observer
	logger   Logger
	observer CommandObserver
}

// NewManager builds a Manager with one disconnected Device per config.
//
// Returns:
//   - *Manager: ready for use, nothing connected yet
//   - error: ErrInvalidConfig for a nil factory, empty or duplicate
//     identities, or invalid limits
func NewManager(configs []DeviceConfig, factory HardwareFactory, opts ...Option) (*Manager, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: hardware factory is required", ErrInvalidConfig)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: at least one PSU must be configured", ErrInvalidConfig)
	}

	m := &Manager{
		devices: make(map[string]*Device, len(configs)),
		factory: factory,
		logger:  noopLogger{},
	}
	for _, c := range configs {
		if c.Identity == "" {
			return nil, fmt.Errorf("%w: empty identity", ErrInvalidConfig)
		}
		if _, dup := m.devices[c.Identity]; dup {
			return nil, fmt.Errorf("%w: duplicate identity %q", ErrInvalidConfig, c.Identity)
		}
		if err := c.Limits.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Identity, err)
		}
		dev := NewDevice(c.Identity, c.Limits)
		dev.board = c.Board
		m.devices[c.Identity] = dev
		m.identities = append(m.identities, c.Identity)
	}
	sort.Strings(m.identities)

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// SetObserver registers a callback for state-changing commands.
func (m *Manager) SetObserver(observer CommandObserver) {
	m.mu.Lock()
	m.observer = observer
	m.mu.Unlock()
}

func (m *Manager) log() Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

func (m *Manager) notify(ctx context.Context, ev CommandEvent) {
	m.mu.RLock()
	observer := m.observer
	m.mu.RUnlock()
	if observer != nil {
		observer(ctx, ev)
	}
}

// Identities returns the configured identities in sorted order.
func (m *Manager) Identities() []string {
	out := make([]string, len(m.identities))
	copy(out, m.identities)
	return out
}

// Get returns the device for identity without connecting it.
func (m *Manager) Get(identity string) (*Device, error) {
	dev, ok := m.devices[identity]
	if !ok {
		return nil, unknownIdentity(identity)
	}
	return dev, nil
}

// GetOrConnect returns the device for identity, connecting it first if
// needed. Concurrent callers for the same unconnected identity wait for one
// shared attempt and receive its outcome. A caller whose ctx ends stops
// waiting; the attempt itself carries on for the others. A parked device
// fails with ErrNotConnected and is not reopened.
func (m *Manager) GetOrConnect(ctx context.Context, identity string) (*Device, error) {
	dev, err := m.Get(identity)
	if err != nil {
		return nil, err
	}
	if err := m.connect(ctx, dev, true); err != nil {
		return nil, err
	}
	return dev, nil
}

// connect runs the shared connect attempt for dev. Lazy and explicit
// attempts are separate flights so a lazy attempt refused by parking is
// never handed to an explicit Connect.
func (m *Manager) connect(ctx context.Context, dev *Device, lazy bool) error {
	if lazy {
		if dev.Connected() {
			return nil
		}
		if dev.Parked() {
			return dev.notConnected()
		}
	} else if dev.Connected() && !dev.Parked() {
		return nil
	}

	key := dev.identity
	if !lazy {
		key += "/connect"
	}
	ch := m.connects.DoChan(key, func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), connectTimeout)
		defer cancel()

		m.log().Info("connecting PSU", "identity", dev.identity)
		if cerr := dev.connect(attemptCtx, m.factory, lazy); cerr != nil {
			if errors.Is(cerr, ErrNotConnected) {
				m.log().Info("PSU parked, lazy connect skipped", "identity", dev.identity)
				return nil, cerr
			}
			m.log().Error("PSU connect failed", "identity", dev.identity, "error", cerr)
			return nil, cerr
		}
		m.log().Info("PSU connected", "identity", dev.identity, "relay", dev.RelayState().String())
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return newConnectError(dev.identity, ctx.Err())
	}
}

// ready returns a connected device, connecting lazily unless it is parked.
func (m *Manager) ready(ctx context.Context, dev *Device) (*Device, error) {
	if err := m.connect(ctx, dev, true); err != nil {
		return nil, err
	}
	return dev, nil
}

// Connect explicitly connects identity. It also un-parks a torn-down device.
func (m *Manager) Connect(ctx context.Context, identity string) error {
	dev, err := m.Get(identity)
	if err != nil {
		return err
	}
	err = m.connect(ctx, dev, false)
	m.notify(ctx, CommandEvent{Identity: identity, Op: OpConnect, Accepted: err == nil, Err: err})
	return err
}

// SetVoltage validates v against the identity's limits and forwards it.
// Out-of-range values never trigger a connect or a hardware call.
func (m *Manager) SetVoltage(ctx context.Context, identity string, v float64) (bool, error) {
	return m.setpoint(ctx, identity, OpSetVoltage, v)
}

// SetCurrent validates i against the identity's limits and forwards it.
func (m *Manager) SetCurrent(ctx context.Context, identity string, i float64) (bool, error) {
	return m.setpoint(ctx, identity, OpSetCurrent, i)
}

func (m *Manager) setpoint(ctx context.Context, identity, op string, value float64) (bool, error) {
	dev, err := m.Get(identity)
	if err != nil {
		return false, err
	}

	check, send := dev.limits.CheckVoltage, (*Device).SetVoltage
	if op == OpSetCurrent {
		check, send = dev.limits.CheckCurrent, (*Device).SetCurrent
	}

	ok, err := func() (bool, error) {
		if cerr := check(value); cerr != nil {
			return false, cerr
		}
		if _, rerr := m.ready(ctx, dev); rerr != nil {
			return false, rerr
		}
		return send(dev, value)
	}()

	if err != nil {
		m.log().Warn("PSU setpoint failed", "identity", identity, "op", op, "value", value, "error", err)
	} else {
		m.log().Info("PSU setpoint sent", "identity", identity, "op", op, "value", value, "accepted", ok)
	}
	m.notify(ctx, CommandEvent{Identity: identity, Op: op, Value: &value, Accepted: ok, Err: err})
	return ok, err
}

// Read measures the identity's output.
func (m *Manager) Read(ctx context.Context, identity string) (Reading, error) {
	dev, err := m.Get(identity)
	if err != nil {
		return Reading{}, err
	}
	if _, err := m.ready(ctx, dev); err != nil {
		return Reading{}, err
	}
	return dev.Read()
}

// GetRelay returns the cached relay state. It never touches hardware and
// never connects; a device that was never connected reports its reset state.
func (m *Manager) GetRelay(identity string) (RelayState, error) {
	dev, err := m.Get(identity)
	if err != nil {
		return RelayUnsupported, err
	}
	if dev.Parked() {
		return dev.RelayState(), dev.notConnected()
	}
	return dev.RelayState(), nil
}

// SetRelay switches the identity's output relay and returns the state the
// hardware confirmed. Devices without a relay fail with ErrRelayUnsupported
// before any connect attempt.
func (m *Manager) SetRelay(ctx context.Context, identity string, desired bool) (bool, error) {
	dev, err := m.Get(identity)
	if err != nil {
		return false, err
	}

	on, err := func() (bool, error) {
		if !dev.limits.HasRelay {
			return dev.SetRelay(desired)
		}
		if _, rerr := m.ready(ctx, dev); rerr != nil {
			return false, rerr
		}
		return dev.SetRelay(desired)
	}()

	value := 0.0
	if desired {
		value = 1
	}
	if err != nil {
		m.log().Warn("PSU relay command failed", "identity", identity, "desired", desired, "error", err)
	} else {
		m.log().Info("PSU relay switched", "identity", identity, "desired", desired, "on", on)
	}
	m.notify(ctx, CommandEvent{Identity: identity, Op: OpSetRelay, Value: &value, Accepted: err == nil && on == desired, Err: err})
	return on, err
}

// TeardownAll disconnects every device. Identities stay registered and are
// parked until explicitly reconnected. Safe to call repeatedly; disconnect
// errors are joined. ctx is handed to the command observer only.
func (m *Manager) TeardownAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.identities {
		dev := m.devices[id]
		wasConnected := dev.Connected()
		if err := dev.Teardown(); err != nil {
			m.log().Warn("PSU disconnect failed", "identity", id, "error", err)
			errs = append(errs, err)
			continue
		}
		if wasConnected {
			m.log().Info("PSU disconnected", "identity", id)
		}
	}
	err := errors.Join(errs...)
	m.notify(ctx, CommandEvent{Op: OpTeardown, Accepted: err == nil, Err: err})
	return err
}
