package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementMediaState is the measurement holding reported media state.
const MeasurementMediaState = "media_state"

// WriteMediaState records a reported media device state.
//
// Each state key becomes a field; device_id and device_type are tags.
// The write is non-blocking; data is batched and sent asynchronously.
// Empty field sets are skipped since InfluxDB rejects points without fields.
//
// Parameters:
//   - deviceID: Media device identifier (e.g., "tv-lounge")
//   - deviceType: Advertised type (e.g., "action.devices.types.TV")
//   - fields: Scalar state values (bool, int64, float64, string)
//
// Example:
//
//	client.WriteMediaState("tv-lounge", "action.devices.types.TV",
//	    map[string]any{"on": true, "currentVolume": int64(30)})
func (c *Client) WriteMediaState(deviceID, deviceType string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}

	c.WritePoint(MeasurementMediaState,
		map[string]string{
			"device_id":   deviceID,
			"device_type": deviceType,
		},
		fields,
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
