package influxdb

import "errors"

var (
	// ErrNotConnected is returned once the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed or unhealthy ping at connect time.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled means telemetry is switched off in config; callers run
	// without the telemetry sink rather than failing startup.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
