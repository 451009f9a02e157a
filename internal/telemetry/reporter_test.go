package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hvpsu/internal/driver/simulated"
	"github.com/nerrad567/hvpsu/internal/psu"
)

var (
	hzLimits  = psu.DeviceLimits{MaxVoltage: 30000, MaxCurrent: 2, MaxInputVoltage: 10}
	fugLimits = psu.DeviceLimits{MaxVoltage: 50000, MaxCurrent: 0.5, MaxInputVoltage: 10, HasRelay: true}
)

func newManager(t *testing.T) (*psu.Manager, *simulated.Factory) {
	t.Helper()
	f := simulated.NewFactory()
	m, err := psu.NewManager([]psu.DeviceConfig{
		{Identity: "heinzinger", Limits: hzLimits},
		{Identity: "fug", Limits: fugLimits},
	}, f)
	require.NoError(t, err)
	return m, f
}

func TestReporter_Tick(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.SetVoltage(ctx, "fug", 12000)
	require.NoError(t, err)
	_, err = m.SetRelay(ctx, "fug", true)
	require.NoError(t, err)

	bus, writer, hub := newFakeBus(), &fakeWriter{}, &fakeHub{}
	r := NewReporter(psu.NewStatusAggregator("lab-3", m), time.Second,
		WithBus(bus), WithPointWriter(writer), WithBroadcaster(hub))

	status := r.Tick(ctx)
	require.Len(t, status.PSUs, 2)

	require.Equal(t, 1, hub.count())
	assert.Equal(t, ChannelStatus, hub.events[0].channel)

	msgs := bus.messages()
	require.Len(t, msgs, 2)
	byTopic := map[string]published{}
	for _, p := range msgs {
		assert.True(t, p.retained)
		assert.Equal(t, byte(1), p.qos)
		byTopic[p.topic] = p
	}

	var fug StateMessage
	require.NoError(t, json.Unmarshal(byTopic["hvpsu/state/fug"].payload, &fug))
	assert.Equal(t, "fug", fug.Identity)
	assert.True(t, fug.Connected)
	require.NotNil(t, fug.Reading)
	assert.Equal(t, 12000.0, fug.Reading.Voltage)
	assert.True(t, fug.Reading.RelayOn)

	var hz StateMessage
	require.NoError(t, json.Unmarshal(byTopic["hvpsu/state/heinzinger"].payload, &hz))
	assert.False(t, hz.Connected)
	assert.Nil(t, hz.Reading)

	// Only the connected device produces a point.
	require.Len(t, writer.points, 1)
	assert.Equal(t, point{"fug", 12000, 0, true, status.Timestamp}, writer.points[0])
}

func TestReporter_ReadFailureSkipsPoint(t *testing.T) {
	m, f := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, "heinzinger"))
	f.SetFault("heinzinger", errors.New("stuck"))

	writer := &fakeWriter{}
	status := NewReporter(psu.NewStatusAggregator("lab-3", m), 0, WithPointWriter(writer)).Tick(ctx)

	assert.Contains(t, status.PSUs["heinzinger"].Error, "stuck")
	assert.Empty(t, writer.points)
}

func TestReporter_PublishErrorIsNotFatal(t *testing.T) {
	m, _ := newManager(t)
	bus := newFakeBus()
	bus.publishErr = errors.New("offline")
	hub := &fakeHub{}

	r := NewReporter(psu.NewStatusAggregator("lab-3", m), 0, WithBus(bus), WithBroadcaster(hub))
	r.Tick(context.Background())
	assert.Equal(t, 1, hub.count())
}

func TestReporter_RunStopsOnCancel(t *testing.T) {
	m, _ := newManager(t)
	hub := &fakeHub{}
	r := NewReporter(psu.NewStatusAggregator("lab-3", m), 10*time.Millisecond, WithBroadcaster(hub))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return hub.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewReporter_DefaultInterval(t *testing.T) {
	r := NewReporter(nil, -1)
	assert.Equal(t, DefaultInterval, r.interval)
}
