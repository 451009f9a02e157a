package analogpsu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale_Register(t *testing.T) {
	heinzinger := Scale{Max: 30000, MaxInput: 10}
	fug := Scale{Max: 0.5, MaxInput: 10}

	tests := []struct {
		name  string
		scale Scale
		value float64
		want  uint16
	}{
		{"zero", heinzinger, 0, 0},
		{"1 kV", heinzinger, 1000, 1972},
		{"half scale", heinzinger, 15000, 29589},
		{"full scale clamps to control input", heinzinger, 30000, 57995},
		{"beyond full scale clamps", heinzinger, 40000, 57995},
		{"negative clamps to zero", heinzinger, -5, 0},
		{"NaN is zero", heinzinger, math.NaN(), 0},
		{"half current", fug, 0.25, 29589},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scale.Register(tt.value))
		})
	}
}

func TestScale_Value(t *testing.T) {
	heinzinger := Scale{Max: 30000, MaxInput: 10}

	assert.Equal(t, 0.0, heinzinger.Value(0))
	assert.InDelta(t, 35481.6, heinzinger.Value(math.MaxUint16), 1e-6)
	assert.InDelta(t, 5414.145113, heinzinger.Value(10000), 1e-6)
	assert.InDelta(t, 0.180471504, Scale{Max: 0.5, MaxInput: 10}.Value(20000), 1e-9)
}
