package cloudsync

import "errors"

// Domain errors for the cloudsync package.
var (
	// ErrQueueFull is returned when a report is dropped because the
	// delivery queue is full.
	ErrQueueFull = errors.New("cloudsync: report queue full")

	// ErrStopped is returned when a report is submitted after Stop.
	ErrStopped = errors.New("cloudsync: reporter stopped")

	// ErrPushRejected is returned when the report-state endpoint answers
	// with a non-success status.
	ErrPushRejected = errors.New("cloudsync: report rejected")

	// ErrMissingEndpoint is returned when the report-state endpoint is not configured.
	ErrMissingEndpoint = errors.New("cloudsync: endpoint is required")

	// ErrInvalidDeviceID is returned by the journal for an empty device ID.
	ErrInvalidDeviceID = errors.New("cloudsync: device id is required")
)
