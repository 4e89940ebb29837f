// Package mqtt provides MQTT client connectivity for Gray Logic Media.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the flow transport of the media bridge. Inbound device updates
// arrive on graylogic/media/{id}/in[/{hint}], flow output leaves on
// graylogic/media/{id}/out and per-device status is retained on
// graylogic/media/{id}/status.
//
//	Device integrations ↔ MQTT Broker ↔ Gray Logic Media
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllMediaIn(), 1,
//	    func(topic string, payload []byte) error {
//	        id, hint, _ := mqtt.Topics{}.ParseMediaIn(topic)
//	        return registry.Deliver(ctx, id, media.Message{Topic: topic, Hint: hint, Payload: payload})
//	    })
package mqtt
