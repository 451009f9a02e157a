package telemetry

import (
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/hvpsu/internal/infrastructure/mqtt"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBus records publications and routes them to subscribed handlers.
type fakeBus struct {
	mu         sync.Mutex
	published  []published
	handlers   map[string]mqtt.MessageHandler
	publishErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{topic, payload, qos, retained})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[topic]; !ok {
		return errors.New("not subscribed")
	}
	delete(b.handlers, topic)
	return nil
}

// deliver invokes the handler registered for pattern.
func (b *fakeBus) deliver(pattern, topic string, payload []byte) error {
	b.mu.Lock()
	h, ok := b.handlers[pattern]
	b.mu.Unlock()
	if !ok {
		return errors.New("no handler for " + pattern)
	}
	return h(topic, payload)
}

func (b *fakeBus) messages() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

type point struct {
	identity         string
	voltage, current float64
	relayOn          bool
	ts               time.Time
}

type fakeWriter struct {
	mu       sync.Mutex
	points   []point
	commands []commandPoint
}

func (w *fakeWriter) WritePSUReading(identity string, voltage, current float64, relayOn bool, ts time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, point{identity, voltage, current, relayOn, ts})
}

type commandPoint struct {
	identity, op, code string
	value              *float64
	accepted           bool
}

func (w *fakeWriter) WritePSUCommand(identity, op string, value *float64, accepted bool, code string, _ time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = append(w.commands, commandPoint{identity, op, code, value, accepted})
}

type event struct {
	channel string
	payload any
}

type fakeHub struct {
	mu     sync.Mutex
	events []event
}

func (h *fakeHub) Broadcast(channel string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event{channel, payload})
}

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
