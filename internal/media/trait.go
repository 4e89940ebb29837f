package media

import "strings"

// Type and trait name prefixes used on the wire.
const (
	deviceTypePrefix = "action.devices.types."
	traitPrefix      = "action.devices.traits."
)

// DeviceType is a media device category.
// The zero value is not a valid type.
type DeviceType string

// Media device types.
const (
	TypeAudioVideoReceiver DeviceType = "AUDIO_VIDEO_RECEIVER"
	TypeRemoteControl      DeviceType = "REMOTECONTROL"
	TypeSetTop             DeviceType = "SETTOP"
	TypeSoundbar           DeviceType = "SOUNDBAR"
	TypeSpeaker            DeviceType = "SPEAKER"
	TypeStreamingBox       DeviceType = "STREAMING_BOX"
	TypeStreamingSoundbar  DeviceType = "STREAMING_SOUNDBAR"
	TypeStreamingStick     DeviceType = "STREAMING_STICK"
	TypeTV                 DeviceType = "TV"
)

// AllDeviceTypes lists every known media device type.
var AllDeviceTypes = []DeviceType{
	TypeAudioVideoReceiver,
	TypeRemoteControl,
	TypeSetTop,
	TypeSoundbar,
	TypeSpeaker,
	TypeStreamingBox,
	TypeStreamingSoundbar,
	TypeStreamingStick,
	TypeTV,
}

// defaultNames maps each device type to the name advertised when the
// user has not named the device.
var defaultNames = map[DeviceType]string{
	TypeAudioVideoReceiver: "Audio-Video Receiver",
	TypeRemoteControl:      "Media Remote",
	TypeSetTop:             "Set-top Box",
	TypeSoundbar:           "Soundbar",
	TypeSpeaker:            "Speaker",
	TypeStreamingBox:       "Streaming Box",
	TypeStreamingSoundbar:  "Streaming Soundbar",
	TypeStreamingStick:     "Streaming Stick",
	TypeTV:                 "Television",
}

// ParseDeviceType accepts either the bare type ("TV") or the prefixed wire
// form ("action.devices.types.TV"), case-insensitively.
// Returns false if the type is not a known media device type.
func ParseDeviceType(s string) (DeviceType, bool) {
	name := strings.TrimSpace(s)
	if len(name) >= len(deviceTypePrefix) && strings.EqualFold(name[:len(deviceTypePrefix)], deviceTypePrefix) {
		name = name[len(deviceTypePrefix):]
	}
	t := DeviceType(strings.ToUpper(name))
	if _, ok := defaultNames[t]; !ok {
		return "", false
	}
	return t, true
}

// WireName returns the type as advertised to the assistant.
func (t DeviceType) WireName() string {
	return deviceTypePrefix + string(t)
}

// DefaultName returns the built-in display name for a device type,
// or "" for unknown types.
func DefaultName(t DeviceType) string {
	return defaultNames[t]
}

// Trait is a named capability contract.
type Trait string

// Media traits.
const (
	TraitAppSelector      Trait = "AppSelector"
	TraitInputSelector    Trait = "InputSelector"
	TraitMediaState       Trait = "MediaState"
	TraitOnOff            Trait = "OnOff"
	TraitTransportControl Trait = "TransportControl"
	TraitVolume           Trait = "Volume"
	TraitChannel          Trait = "Channel"
	TraitModes            Trait = "Modes"
	TraitToggles          Trait = "Toggles"
)

// WireName returns the trait as advertised to the assistant.
func (t Trait) WireName() string {
	return traitPrefix + string(t)
}

// baseTraits are supported by every media device, in advertised order.
var baseTraits = []Trait{
	TraitAppSelector,
	TraitInputSelector,
	TraitMediaState,
	TraitOnOff,
	TraitTransportControl,
	TraitVolume,
}

// ResolveTraits returns the ordered trait set for a device type.
//
// Every type gets the base six traits. Remote controls, set-top boxes and
// TVs add Channel; remote controls and TVs also add Modes and Toggles.
// Unknown types get the base set only. The returned slice is freshly
// allocated on every call.
func ResolveTraits(t DeviceType) []Trait {
	traits := make([]Trait, 0, len(baseTraits)+3)
	traits = append(traits, baseTraits...)

	switch t {
	case TypeRemoteControl, TypeSetTop, TypeTV:
		traits = append(traits, TraitChannel)
	}
	switch t {
	case TypeRemoteControl, TypeTV:
		traits = append(traits, TraitModes, TraitToggles)
	}

	return traits
}

// HasTrait reports whether traits contains t.
func HasTrait(traits []Trait, t Trait) bool {
	for _, have := range traits {
		if have == t {
			return true
		}
	}
	return false
}
