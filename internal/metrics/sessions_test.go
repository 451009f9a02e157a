package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sessionCount int

func (n *sessionCount) SessionCount() int { return int(*n) }

func TestSessionGauge(t *testing.T) {
	n := sessionCount(0)
	gauge := NewSessionGauge(&n)

	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
	n = 3
	if got := testutil.ToFloat64(gauge); got != 3 {
		t.Errorf("gauge = %v, want 3", got)
	}
}
