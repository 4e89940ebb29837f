package media

import "errors"

// Domain errors for the media package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, media.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID is not registered.
	ErrDeviceNotFound = errors.New("media: device not found")

	// ErrDeviceExists is returned when registering an ID that is already registered.
	ErrDeviceExists = errors.New("media: device already registered")

	// ErrInvalidDevice is returned when a device configuration is unusable.
	ErrInvalidDevice = errors.New("media: invalid device")

	// ErrMissingConfig is returned when a device has no usable configuration.
	ErrMissingConfig = errors.New("media: missing config")

	// ErrMissingCloudSync is returned when no cloud-sync collaborator is wired.
	ErrMissingCloudSync = errors.New("media: missing cloud sync")

	// ErrInvalidFormat is returned when an inbound value cannot be coerced
	// to its field's type. The update carrying it is discarded.
	ErrInvalidFormat = errors.New("media: invalid value format")

	// ErrUnsupportedPayload is returned when a general update is not an object.
	ErrUnsupportedPayload = errors.New("media: payload is not an object")

	// ErrNodeClosed is returned when work is submitted to a stopped device.
	ErrNodeClosed = errors.New("media: device closed")
)
