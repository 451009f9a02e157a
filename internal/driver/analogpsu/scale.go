package analogpsu

import "math"

// BoardMaxVolt is the DAC output at full code.
const BoardMaxVolt = 11.3

const (
	// Setpoints are stretched by 2% so full scale is reachable despite the
	// PSU's input tolerance.
	setpointHeadroom = 0.98

	// Gain of the ADCB front end in volts per full-scale count.
	adcGain = 3.2 * 3.3 * 1.12

	// PSU monitor outputs are 0-10 V for 0-max.
	monitorFullScale = 10.0
)

// Scale converts one PSU quantity between engineering units and board codes.
type Scale struct {
	Max      float64 // PSU full scale (V or mA)
	MaxInput float64 // PSU control input full scale (V)
}

// Register returns the DAC code for value, clamped to [0, MaxInput].
func (s Scale) Register(value float64) uint16 {
	analog := s.MaxInput * value / setpointHeadroom / s.Max
	if analog > s.MaxInput {
		analog = s.MaxInput
	}
	if analog < 0 || math.IsNaN(analog) {
		analog = 0
	}
	return uint16(math.MaxUint16 * analog / BoardMaxVolt)
}

// Value converts an ADCB code to engineering units.
func (s Scale) Value(reg uint16) float64 {
	analog := adcGain * float64(reg) / math.MaxUint16
	return s.Max * analog / monitorFullScale
}
