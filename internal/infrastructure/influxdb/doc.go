// Package influxdb provides InfluxDB connectivity for Gray Logic Media.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched writes and health monitoring.
//
// # Purpose
//
// Every state report that reaches the cloudsync telemetry sink is written
// as a "media_state" point tagged with device_id and device_type, giving
// a queryable history of power, volume, input and playback changes.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteMediaState("tv-lounge", "action.devices.types.TV",
//	    map[string]any{"on": true})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Writes are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
