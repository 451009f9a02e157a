package mqtt

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publish sends payload to a concrete topic.
//
// The telemetry reporter publishes PSU state retained on hvpsu/state/{id};
// command acks on hvpsu/ack/{id} are not retained. The call blocks until the
// broker acknowledges a QoS 1 or 2 publish, or the operation timeout passes.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, false); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// checkTopic rejects empty topics, and wildcards unless topic is a filter.
func checkTopic(topic string, filter bool) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if !filter && strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	}
	return nil
}

// await waits for a broker acknowledgement and wraps a timeout or failure
// in sentinel.
func await(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("%w: no broker response within %v", sentinel, opTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
