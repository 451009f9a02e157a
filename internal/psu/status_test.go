package psu

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SnapshotNeverConnects(t *testing.T) {
	m, f := newTestManager(t)

	snap := m.Snapshot(context.Background())
	require.Len(t, snap, 2)
	assert.Equal(t, StatusEntry{Limits: alphaLimits}, snap["alpha"])
	assert.Equal(t, StatusEntry{Limits: betaLimits}, snap["beta"])
	assert.Equal(t, 0, f.openCount("alpha"))
	assert.Equal(t, 0, f.openCount("beta"))
}

func TestManager_SnapshotIsolatesReadFailures(t *testing.T) {
	m, f := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, "alpha"))
	require.NoError(t, m.Connect(ctx, "beta"))

	f.handle("alpha").readErr = errBus
	beta := f.handle("beta")
	beta.readV = 20000
	beta.readI = 0.3
	beta.relayOn = true

	snap := m.Snapshot(ctx)

	alpha := snap["alpha"]
	assert.True(t, alpha.Connected)
	assert.Nil(t, alpha.Reading)
	assert.Nil(t, alpha.RelayOn)
	assert.Contains(t, alpha.Error, errBus.Error())

	b := snap["beta"]
	assert.True(t, b.Connected)
	assert.Empty(t, b.Error)
	require.NotNil(t, b.Reading)
	assert.Equal(t, 20000.0, b.Reading.Voltage)
	assert.Equal(t, 0.3, b.Reading.Current)
	require.NotNil(t, b.RelayOn)
	assert.True(t, *b.RelayOn)
}

func TestManager_SnapshotReportsBoard(t *testing.T) {
	f := newFakeFactory()
	m, err := NewManager([]DeviceConfig{
		{Identity: "alpha", Limits: alphaLimits},
		{Identity: "beta", Limits: betaLimits, Board: Board{Index: 1, USBPath: "1-1.4"}},
	}, f)
	require.NoError(t, err)

	snap := m.Snapshot(context.Background())
	assert.Equal(t, Board{}, snap["alpha"].Board)
	assert.Equal(t, Board{Index: 1, USBPath: "1-1.4"}, snap["beta"].Board)

	data, err := json.Marshal(snap["alpha"])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]any{"device_index": float64(0)}, got["board"])
}

func TestStatusEntry_JSONOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(StatusEntry{Limits: alphaLimits})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, false, got["connected"])
	assert.Contains(t, got, "limits")
	assert.NotContains(t, got, "reading")
	assert.NotContains(t, got, "relay_on")
	assert.NotContains(t, got, "error")
}

type staticSnapshotter map[string]StatusEntry

func (s staticSnapshotter) Snapshot(context.Context) map[string]StatusEntry {
	return s
}

func TestStatusAggregator(t *testing.T) {
	src := staticSnapshotter{"alpha": {Limits: alphaLimits}}
	agg := NewStatusAggregator("hvpsu", src)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	agg.now = func() time.Time { return fixed }

	st := agg.Status(context.Background())
	assert.Equal(t, "hvpsu", st.Service)
	assert.Equal(t, fixed.UTC(), st.Timestamp)
	assert.Equal(t, map[string]StatusEntry(src), st.PSUs)
}
