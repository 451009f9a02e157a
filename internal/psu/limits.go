package psu

import (
	"fmt"
	"math"
)

// Quantity names a controllable output quantity.
type Quantity string

const (
	QuantityVoltage Quantity = "voltage"
	QuantityCurrent Quantity = "current"
)

// Unit returns the unit the quantity is expressed in.
func (q Quantity) Unit() string {
	switch q {
	case QuantityVoltage:
		return "V"
	case QuantityCurrent:
		return "mA"
	default:
		return ""
	}
}

// DeviceLimits is the static safety envelope of one PSU class.
// Values are set once from configuration and never change.
type DeviceLimits struct {
	// MaxVoltage is the output ceiling in volts.
	MaxVoltage float64 `json:"max_voltage" yaml:"max_voltage"`

	// MaxCurrent is the current-limit ceiling in milliamps.
	MaxCurrent float64 `json:"max_current" yaml:"max_current"`

	// MaxInputVoltage is the full-scale control input of the PSU in volts.
	MaxInputVoltage float64 `json:"max_input_voltage" yaml:"max_input_voltage"`

	// HasRelay reports whether the output can be switched remotely.
	HasRelay bool `json:"has_relay" yaml:"has_relay"`
}

// Validate reports non-positive or non-finite limits.
func (l DeviceLimits) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"max_voltage", l.MaxVoltage},
		{"max_current", l.MaxCurrent},
		{"max_input_voltage", l.MaxInputVoltage},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return fmt.Errorf("%w: %s must be a positive number, got %g", ErrInvalidConfig, f.name, f.value)
		}
	}
	return nil
}

// CheckVoltage returns an *OutOfRangeError unless 0 <= v <= MaxVoltage.
func (l DeviceLimits) CheckVoltage(v float64) error {
	return checkRange(QuantityVoltage, v, l.MaxVoltage)
}

// CheckCurrent returns an *OutOfRangeError unless 0 <= i <= MaxCurrent.
func (l DeviceLimits) CheckCurrent(i float64) error {
	return checkRange(QuantityCurrent, i, l.MaxCurrent)
}

// NaN fails both comparisons, so it is rejected explicitly.
func checkRange(q Quantity, value, maxValue float64) error {
	if math.IsNaN(value) || value < 0 || value > maxValue {
		return &OutOfRangeError{Quantity: q, Value: value, Min: 0, Max: maxValue}
	}
	return nil
}
