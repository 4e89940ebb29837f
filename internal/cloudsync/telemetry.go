package cloudsync

import (
	"context"
	"encoding/json"
)

// StateWriter writes one media state point to a time-series store.
// Satisfied by *influxdb.Client.
type StateWriter interface {
	WriteMediaState(deviceID, deviceType string, fields map[string]any)
}

// Telemetry records reported states as time-series points.
//
// Booleans, numbers and strings become fields of the same name. Nested
// settings maps are stored as JSON strings. Writes are non-blocking.
type Telemetry struct {
	writer StateWriter
}

// NewTelemetry creates the telemetry sink.
func NewTelemetry(writer StateWriter) *Telemetry {
	return &Telemetry{writer: writer}
}

// Name implements Sink.
func (t *Telemetry) Name() string { return "telemetry" }

// Push implements Sink.
func (t *Telemetry) Push(_ context.Context, report Report) error {
	fields := StateFields(report.State)
	if len(fields) == 0 {
		return nil
	}
	t.writer.WriteMediaState(report.DeviceID, report.DeviceType, fields)
	return nil
}

// StateFields flattens a state into point fields. Values that cannot be
// represented are left out.
func StateFields(state map[string]any) map[string]any {
	fields := make(map[string]any, len(state))
	for key, value := range state {
		switch v := value.(type) {
		case bool, string:
			fields[key] = v
		case int:
			fields[key] = int64(v)
		case int64:
			fields[key] = v
		case float64:
			fields[key] = v
		case map[string]any, []any, []string:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fields[key] = string(encoded)
		}
	}
	return fields
}
