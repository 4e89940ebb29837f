package flow

import "errors"

// Sentinel errors for the flow transport.
var (
	// ErrMissingClient is returned when no MQTT client is supplied.
	ErrMissingClient = errors.New("flow: MQTT client is required")

	// ErrMissingDevices is returned when a binding has nowhere to deliver messages.
	ErrMissingDevices = errors.New("flow: device deliverer is required")

	// ErrNotConnected is returned when publishing while the broker is unreachable.
	ErrNotConnected = errors.New("flow: MQTT client not connected")

	// ErrInvalidTopic is returned for topics outside the media hierarchy.
	ErrInvalidTopic = errors.New("flow: invalid media topic")
)
