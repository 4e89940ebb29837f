package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Gray Logic Media topic hierarchy.
//
// Media topics use the scheme: graylogic/media/{device_id}/{direction}[/{hint}]
const (
	// TopicPrefixMedia is the base for all media device topics.
	TopicPrefixMedia = "graylogic/media"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topic directions below a media device.
const (
	DirectionIn     = "in"
	DirectionOut    = "out"
	DirectionStatus = "status"
)

// Topics provides builders for Gray Logic Media MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.MediaOut("tv-lounge")
//	// Returns: "graylogic/media/tv-lounge/out"
type Topics struct{}

// =============================================================================
// Media Topics
// =============================================================================

// MediaOut returns the outbound flow topic for a device.
//
// Example: graylogic/media/tv-lounge/out
func (Topics) MediaOut(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixMedia, deviceID, DirectionOut)
}

// MediaStatus returns the retained status topic for a device.
//
// Example: graylogic/media/tv-lounge/status
func (Topics) MediaStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixMedia, deviceID, DirectionStatus)
}

// AllMediaIn returns a pattern matching every inbound media topic,
// with or without a hint segment.
//
// Pattern: graylogic/media/+/in/#
func (Topics) AllMediaIn() string {
	return fmt.Sprintf("%s/+/%s/#", TopicPrefixMedia, DirectionIn)
}

// ParseMediaIn splits an inbound media topic into its device id and hint.
// The hint is empty when the topic has no segment after "in".
//
// Returns false if the topic is not an inbound media topic.
func (Topics) ParseMediaIn(topic string) (deviceID, hint string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixMedia+"/")
	if !found {
		return "", "", false
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != DirectionIn {
		return "", "", false
	}
	if len(parts) == 3 {
		hint = parts[2]
	}
	return parts[0], hint, true
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the bridge status topic carrying the LWT.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
