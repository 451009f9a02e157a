// Package driver builds the hardware factory named by the driver section of
// the configuration and converts the psus section into device declarations.
package driver

import (
	"fmt"

	"github.com/nerrad567/hvpsu/internal/driver/analogpsu"
	"github.com/nerrad567/hvpsu/internal/driver/simulated"
	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// Logger is the subset of logging.Logger used by the drivers.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewFactory returns the HardwareFactory selected by cfg.Driver.Type.
//
// Parameters:
//   - cfg: Loaded service configuration
//   - logger: Passed to the analog driver; may be nil
//
// Returns:
//   - psu.HardwareFactory: Factory for every identity in cfg.PSUs
//   - error: If the driver type is unknown or its settings are invalid
func NewFactory(cfg *config.Config, logger Logger) (psu.HardwareFactory, error) {
	switch cfg.Driver.Type {
	case config.DriverSimulated:
		return simulated.NewFactory(cfg.Driver.Absent...), nil

	case config.DriverAnalog:
		selectors := make(map[string]analogpsu.Selector, len(cfg.PSUs))
		for _, p := range cfg.PSUs {
			selectors[p.Identity] = analogpsu.Selector{Index: p.DeviceIndex, USBPath: p.USBPath}
		}

		var opts []analogpsu.Option
		if cfg.Driver.TimeoutMS > 0 {
			opts = append(opts, analogpsu.WithTimeout(cfg.GetDriverTimeout()))
		}
		if cfg.Driver.Attempts > 0 {
			defaults := analogpsu.DefaultConfig()
			opts = append(opts, analogpsu.WithRetries(cfg.Driver.Attempts, defaults.RetryDelay))
		}
		opts = append(opts, analogpsu.WithInterface(cfg.Driver.Interface))

		f, err := analogpsu.NewFactory(selectors, opts...)
		if err != nil {
			return nil, fmt.Errorf("analog driver: %w", err)
		}
		if logger != nil {
			f.SetLogger(logger)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown driver type %q", cfg.Driver.Type)
	}
}

// DeviceConfigs converts the psus section into manager device declarations.
func DeviceConfigs(psus []config.PSUConfig) []psu.DeviceConfig {
	out := make([]psu.DeviceConfig, 0, len(psus))
	for _, p := range psus {
		out = append(out, psu.DeviceConfig{
			Identity: p.Identity,
			Limits: psu.DeviceLimits{
				MaxVoltage:      p.MaxVoltage,
				MaxCurrent:      p.MaxCurrent,
				MaxInputVoltage: p.MaxInputVoltage,
				HasRelay:        p.HasRelay,
			},
			Board: psu.Board{Index: p.DeviceIndex, USBPath: p.USBPath},
		})
	}
	return out
}
