// Package mqtt provides MQTT client connectivity for hvpsud.
//
// The client keeps a retained presence document on hvpsu/system/status. It
// reads "online" while hvpsud runs, "offline" with reason graceful_shutdown
// after Close, and "offline" with reason unexpected_disconnect when the
// broker fires the LWT.
//
// # Topics
//
//	hvpsu/system/status              retained online/offline, LWT
//	hvpsu/state/{identity}           retained PSU status entry
//	hvpsu/command/{identity}/{op}    inbound commands
//	hvpsu/ack/{identity}             command results
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) whenever the broker is not on localhost
//   - The command topics drive high-voltage outputs; restrict them with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	payload, _ := json.Marshal(entry)
//	err = client.Publish(mqtt.Topics{}.PSUState("fug"), payload, 1, true)
package mqtt
