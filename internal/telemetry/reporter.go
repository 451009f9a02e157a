package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/hvpsu/internal/infrastructure/mqtt"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// DefaultInterval is used when NewReporter is given a non-positive interval.
const DefaultInterval = 5 * time.Second

// stateQoS is the QoS of retained state publications.
const stateQoS = 1

// Logger is the subset of logging.Logger used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// StatusSource produces status documents. *psu.StatusAggregator implements it.
type StatusSource interface {
	Status(ctx context.Context) psu.Status
}

// Bus is the subset of *mqtt.Client used by this package.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// PointWriter records readings. *influxdb.Client implements it.
type PointWriter interface {
	WritePSUReading(identity string, voltage, current float64, relayOn bool, ts time.Time)
}

// Broadcaster fans events out to WebSocket clients. *api.Hub implements it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithBus publishes retained state per identity.
func WithBus(bus Bus) Option {
	return func(r *Reporter) { r.bus = bus }
}

// WithPointWriter records every successful reading.
func WithPointWriter(w PointWriter) Option {
	return func(r *Reporter) { r.points = w }
}

// WithBroadcaster sends each status document to WebSocket subscribers.
func WithBroadcaster(b Broadcaster) Option {
	return func(r *Reporter) { r.hub = b }
}

// WithLogger sets the reporter's logger.
func WithLogger(l Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reporter periodically publishes PSU status to every configured sink.
type Reporter struct {
	source   StatusSource
	interval time.Duration
	bus      Bus
	points   PointWriter
	hub      Broadcaster
	logger   Logger
	topics   mqtt.Topics
}

// NewReporter creates a Reporter. It does nothing until Run or Tick is called.
func NewReporter(source StatusSource, interval time.Duration, opts ...Option) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Reporter{
		source:   source,
		interval: interval,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ticks immediately and then every interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	r.logger.Info("telemetry reporter started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("telemetry reporter stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick takes one snapshot, publishes it, and returns it.
func (r *Reporter) Tick(ctx context.Context) psu.Status {
	status := r.source.Status(ctx)

	if r.hub != nil {
		r.hub.Broadcast(ChannelStatus, status)
	}

	for identity, entry := range status.PSUs {
		if r.bus != nil {
			r.publishState(identity, status.Timestamp, entry)
		}
		if r.points != nil && entry.Reading != nil {
			rd := entry.Reading
			r.points.WritePSUReading(identity, rd.Voltage, rd.Current, rd.RelayOn, status.Timestamp)
		}
		if entry.Error != "" {
			r.logger.Warn("psu read failed", "identity", identity, "error", entry.Error)
		}
	}
	return status
}

func (r *Reporter) publishState(identity string, ts time.Time, entry psu.StatusEntry) {
	payload, err := json.Marshal(StateMessage{Identity: identity, Timestamp: ts, StatusEntry: entry})
	if err != nil {
		r.logger.Warn("failed to marshal state", "identity", identity, "error", err)
		return
	}
	if err := r.bus.Publish(r.topics.PSUState(identity), payload, stateQoS, true); err != nil {
		r.logger.Debug("state publish failed", "identity", identity, "error", err)
	}
}
