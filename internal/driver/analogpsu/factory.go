package analogpsu

import (
	"context"
	"fmt"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// Factory opens interface boards for configured identities.
type Factory struct {
	selectors map[string]Selector
	cfg       Config
	logger    Logger

	sysfsRoot string
	devRoot   string
	open      func(path string, cfg Config) (Bulk, error)
}

var _ psu.HardwareFactory = (*Factory)(nil)

// NewFactory creates a factory for the given identity-to-board selectors.
func NewFactory(selectors map[string]Selector, opts ...Option) (*Factory, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	sel := make(map[string]Selector, len(selectors))
	for id, s := range selectors {
		if s.Index < 0 {
			return nil, fmt.Errorf("%w: negative device index for %q", ErrInvalidConfig, id)
		}
		sel[id] = s
	}

	return &Factory{
		selectors: sel,
		cfg:       cfg,
		logger:    noopLogger{},
		sysfsRoot: defaultSysfsRoot,
		devRoot:   defaultDevRoot,
		open:      openUSBFS,
	}, nil
}

// SetLogger sets the logger passed to every opened handle.
func (f *Factory) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// Open locates the board selected for identity, claims it and returns a
// handle scaled to limits. A missing board wraps psu.ErrHardwareNotFound.
func (f *Factory) Open(ctx context.Context, identity string, limits psu.DeviceLimits) (psu.HardwareHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sel, ok := f.selectors[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSelector, identity)
	}
	if limits.MaxInputVoltage > BoardMaxVolt {
		return nil, fmt.Errorf("%w: need %gV, board provides %gV", ErrBoardRange, limits.MaxInputVoltage, BoardMaxVolt)
	}

	boards, err := findBoards(f.sysfsRoot, f.devRoot)
	if err != nil {
		return nil, err
	}
	info, ok := sel.pick(boards)
	if !ok {
		return nil, fmt.Errorf("%w: no board at %s (%d attached, VID 0x%04X PID 0x%04X)",
			psu.ErrHardwareNotFound, sel, len(boards), VendorID, ProductID)
	}

	bulk, err := f.open(info.DevNode, f.cfg)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("interface board opened", "identity", identity,
		"dev", info.DevNode, "port", info.Port, "serial", info.Serial)
	return NewHandle(identity, NewBoard(bulk), limits, f.logger), nil
}
