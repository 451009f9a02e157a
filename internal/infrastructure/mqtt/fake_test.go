package mqtt

import (
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct{ err error }

func (fakeToken) Wait() bool { return true }

func (fakeToken) WaitTimeout(time.Duration) bool { return true }

func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (fakeMessage) Duplicate() bool { return false }

func (fakeMessage) Qos() byte { return 1 }

func (fakeMessage) Retained() bool { return false }

func (m fakeMessage) Topic() string { return m.topic }

func (fakeMessage) MessageID() uint16 { return 1 }

func (m fakeMessage) Payload() []byte { return m.payload }

func (fakeMessage) Ack() {}

// fakePaho is an in-process stand-in for a broker connection.
type fakePaho struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	subscribeErr error
	published    []published
	handlers     map[string]pahomqtt.MessageHandler
	disconnects  int
}

var _ pahomqtt.Client = (*fakePaho)(nil)

func newFakePaho() *fakePaho {
	return &fakePaho{handlers: make(map[string]pahomqtt.MessageHandler)}
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) IsConnectionOpen() bool { return f.IsConnected() }

func (f *fakePaho) Connect() pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr == nil {
		f.connected = true
	}
	return fakeToken{err: f.connectErr}
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, qos: qos, retained: retained, payload: b})
	return fakeToken{}
}

func (f *fakePaho) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return fakeToken{err: f.subscribeErr}
	}
	f.handlers[topic] = callback
	return fakeToken{}
}

func (f *fakePaho) SubscribeMultiple(filters map[string]byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	for topic, qos := range filters {
		f.Subscribe(topic, qos, callback)
	}
	return fakeToken{}
}

func (f *fakePaho) Unsubscribe(topics ...string) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		delete(f.handlers, t)
	}
	return fakeToken{}
}

func (f *fakePaho) AddRoute(string, pahomqtt.MessageHandler) {}

func (f *fakePaho) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

// deliver invokes the handler subscribed to exactly topic.
func (f *fakePaho) deliver(subscribed, topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.handlers[subscribed]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(f, fakeMessage{topic: topic, payload: payload})
	return true
}

func (f *fakePaho) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}
