package mqtt

import "errors"

// Errors returned by Client. Broker-side failures wrap the sentinel of the
// operation, so errors.Is(err, ErrPublishFailed) holds for a publish that
// timed out as well as one the broker refused.
var (
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrNotConnected      = errors.New("mqtt: not connected to broker")
	ErrInvalidTopic      = errors.New("mqtt: invalid topic")
	ErrInvalidQoS        = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)
