package media

import (
	"fmt"
	"strings"
)

// Descriptor is the capability and identity document advertised for a
// device. It is built once at registration and never mutated afterwards;
// use Clone before handing it to code that might modify it.
type Descriptor struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Traits          []string       `json:"traits"`
	Name            DeviceName     `json:"name"`
	WillReportState bool           `json:"willReportState"`
	Attributes      map[string]any `json:"attributes"`
	DeviceInfo      DeviceInfo     `json:"deviceInfo"`
	CustomData      map[string]any `json:"customData"`

	deviceType DeviceType
	traits     []Trait
}

// DeviceName carries the user-facing and built-in names of a device.
type DeviceName struct {
	DefaultNames []string `json:"defaultNames"`
	Name         string   `json:"name"`
}

// DeviceInfo carries manufacturer details.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HwVersion    string `json:"hwVersion"`
	SwVersion    string `json:"swVersion"`
}

// DeviceType returns the parsed device type.
func (d *Descriptor) DeviceType() DeviceType { return d.deviceType }

// HasTrait reports whether the device advertises t.
func (d *Descriptor) HasTrait(t Trait) bool { return HasTrait(d.traits, t) }

// ResolvedTraits returns a copy of the device's trait list.
func (d *Descriptor) ResolvedTraits() []Trait {
	out := make([]Trait, len(d.traits))
	copy(out, d.traits)
	return out
}

// Clone returns an independent copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	c.Traits = append([]string(nil), d.Traits...)
	c.Name.DefaultNames = append([]string(nil), d.Name.DefaultNames...)
	c.Attributes = deepCopyMap(d.Attributes)
	c.CustomData = deepCopyMap(d.CustomData)
	c.traits = d.ResolvedTraits()
	return &c
}

// StaticConfig holds the per-device attribute settings from configuration.
type StaticConfig struct {
	CommandOnlyInputSelector          bool
	OrderedInputs                     bool
	SupportActivityState              bool
	SupportPlaybackState              bool
	CommandOnlyOnOff                  bool
	QueryOnlyOnOff                    bool
	TransportControlSupportedCommands []string
	VolumeMaxLevel                    int
	VolumeCanMuteAndUnmute            bool
	VolumeDefaultPercentage           int
	LevelStepSize                     int
	CommandOnlyVolume                 bool
	CommandOnlyModes                  bool
	QueryOnlyModes                    bool
	CommandOnlyToggles                bool
	QueryOnlyToggles                  bool
}

// Manufacturer identifies the bridge in deviceInfo and default names.
type Manufacturer struct {
	// NamePrefix is prepended to the type's default name ("Gray Logic Television").
	NamePrefix   string
	Manufacturer string
	Model        string
	HwVersion    string
	SwVersion    string
}

// DefaultManufacturer is used when no manufacturer details are configured.
var DefaultManufacturer = Manufacturer{
	NamePrefix:   "Gray Logic",
	Manufacturer: "Gray Logic",
	Model:        "gl-media-v1",
	HwVersion:    "1.0",
	SwVersion:    "1.0",
}

// BuildRequest is the input to Build.
type BuildRequest struct {
	ID           string
	Type         DeviceType
	Name         string
	Static       StaticConfig
	Manufacturer Manufacturer
	Catalogs     CatalogLoader
	// OnCatalogError is called for each catalog that failed to load.
	OnCatalogError func(kind CatalogKind, err error)
}

// Build composes the descriptor and the initial state of a device.
//
// Attributes come only from the trait set, the static configuration and
// the catalogs; no runtime state is consulted. The request's static
// configuration is never modified.
//
// Returns:
//   - *Descriptor: The advertised device document
//   - State: The initial state, keyed exactly by StateFields(traits)
//   - error: ErrInvalidDevice if the id is empty
func Build(req BuildRequest) (*Descriptor, State, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, nil, fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	mfr := req.Manufacturer
	if mfr == (Manufacturer{}) {
		mfr = DefaultManufacturer
	}

	traits := ResolveTraits(req.Type)
	catalogs := loadCatalogs(req.Catalogs, traits, req.OnCatalogError)

	attributes := make(map[string]any)
	wireTraits := make([]string, 0, len(traits))
	for _, t := range traits {
		wireTraits = append(wireTraits, t.WireName())
		for k, v := range traitTable[t].attributes(req.Static, catalogs) {
			attributes[k] = v
		}
	}

	defaultName := strings.TrimSpace(mfr.NamePrefix + " " + DefaultName(req.Type))

	desc := &Descriptor{
		ID:     req.ID,
		Type:   req.Type.WireName(),
		Traits: wireTraits,
		Name: DeviceName{
			DefaultNames: []string{defaultName},
			Name:         req.Name,
		},
		WillReportState: true,
		Attributes:      attributes,
		DeviceInfo: DeviceInfo{
			Manufacturer: mfr.Manufacturer,
			Model:        mfr.Model,
			HwVersion:    mfr.HwVersion,
			SwVersion:    mfr.SwVersion,
		},
		CustomData: map[string]any{
			"nodeid": req.ID,
			"type":   "media",
		},
		deviceType: req.Type,
		traits:     traits,
	}

	fields := StateFields(traits)
	state := make(State, len(fields))
	for _, f := range fields {
		state[f.Key] = f.Initial(req.Static)
	}

	return desc, state, nil
}
