package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
)

// Broker link settings.
const (
	connectTimeout    = 10 * time.Second
	opTimeout         = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second

	maxQoS = 2

	// maxPayloadSize caps a single publish at 1 MiB.
	maxPayloadSize = 1 << 20

	// presenceQoS is used for the retained presence message and the LWT.
	presenceQoS = 1
)

// Presence states published on hvpsu/system/status.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// buildClientOptions maps the mqtt config section onto paho options.
// Reconnects back off from Reconnect.InitialDelay up to Reconnect.MaxDelay.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// presence is the retained document on hvpsu/system/status.
type presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func presencePayload(clientID, status, reason string) []byte {
	payload, _ := json.Marshal(presence{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}

// configureLWT has the broker publish an offline presence when hvpsud drops
// off without Close, so a crash is distinguishable from a shutdown.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetBinaryWill(Topics{}.SystemStatus(),
		presencePayload(clientID, presenceOffline, "unexpected_disconnect"),
		presenceQoS, true)
}
