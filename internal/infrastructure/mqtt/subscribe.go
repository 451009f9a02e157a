package mqtt

import "fmt"

// MessageHandler receives one inbound message. Handlers run on paho's
// goroutines; a returned error is logged and the message is still
// acknowledged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Subscribe registers handler for topic, which may be a filter such as
// hvpsu/command/+/+. The subscription is remembered and restored on every
// reconnect. A handler panic is recovered and logged.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or ErrSubscribeFailed
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, true); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := await(c.client.Subscribe(topic, qos, c.dispatch(handler)), ErrSubscribeFailed); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe drops topic here and on the broker. Messages already in
// flight may still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if err := checkTopic(topic, true); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(topic)
	return await(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()
}

// resubscribe replays every remembered subscription after a reconnect.
// paho queues the requests until the session is up.
func (c *Client) resubscribe() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for topic, s := range c.subs {
		c.client.Subscribe(topic, s.qos, c.dispatch(s.handler))
	}
}
