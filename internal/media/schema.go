package media

// Enumerated state values.
var (
	ActivityStates = []string{"INACTIVE", "STANDBY", "ACTIVE"}
	PlaybackStates = []string{"PAUSED", "PLAYING", "FAST_FORWARDING", "REWINDING", "BUFFERING", "STOPPED"}
)

// State keys.
const (
	KeyOnline                = "online"
	KeyOn                    = "on"
	KeyCurrentApplication    = "currentApplication"
	KeyCurrentInput          = "currentInput"
	KeyActivityState         = "activityState"
	KeyPlaybackState         = "playbackState"
	KeyCurrentVolume         = "currentVolume"
	KeyIsMuted               = "isMuted"
	KeyCurrentToggleSettings = "currentToggleSettings"
	KeyCurrentModeSettings   = "currentModeSettings"
)

// StateField declares one recognised state key.
type StateField struct {
	Key  string
	Kind Kind
	// Enum lists the accepted values for KindEnum fields.
	Enum []string
	// Initial produces the value the field starts with.
	Initial func(cfg StaticConfig) any
}

// traitSpec describes what a trait contributes to a device.
type traitSpec struct {
	attributes func(cfg StaticConfig, catalogs catalogSet) map[string]any
	state      []StateField
}

// onlineField is present on every media device regardless of traits.
var onlineField = StateField{
	Key:     KeyOnline,
	Kind:    KindBool,
	Initial: func(StaticConfig) any { return true },
}

func constant(v any) func(StaticConfig) any {
	return func(StaticConfig) any { return deepCopyValue(v) }
}

// traitTable is the single source of attribute and state keys per trait.
// Attribute names are consumed verbatim by the assistant's schema
// validator and must not be renamed.
var traitTable = map[Trait]traitSpec{
	TraitAppSelector: {
		attributes: func(_ StaticConfig, c catalogSet) map[string]any {
			return map[string]any{
				"availableApplications": c.get(CatalogApplications),
			}
		},
		state: []StateField{
			{Key: KeyCurrentApplication, Kind: KindString, Initial: constant("")},
		},
	},
	TraitInputSelector: {
		attributes: func(cfg StaticConfig, c catalogSet) map[string]any {
			return map[string]any{
				"availableInputs":          c.get(CatalogInputs),
				"commandOnlyInputSelector": cfg.CommandOnlyInputSelector,
				"orderedInputs":            cfg.OrderedInputs,
			}
		},
		state: []StateField{
			{Key: KeyCurrentInput, Kind: KindString, Initial: constant("")},
		},
	},
	TraitMediaState: {
		attributes: func(cfg StaticConfig, _ catalogSet) map[string]any {
			return map[string]any{
				"supportActivityState": cfg.SupportActivityState,
				"supportPlaybackState": cfg.SupportPlaybackState,
			}
		},
		state: []StateField{
			{Key: KeyActivityState, Kind: KindEnum, Enum: ActivityStates, Initial: constant("INACTIVE")},
			{Key: KeyPlaybackState, Kind: KindEnum, Enum: PlaybackStates, Initial: constant("STOPPED")},
		},
	},
	TraitOnOff: {
		attributes: func(cfg StaticConfig, _ catalogSet) map[string]any {
			return map[string]any{
				"commandOnlyOnOff": cfg.CommandOnlyOnOff,
				"queryOnlyOnOff":   cfg.QueryOnlyOnOff,
			}
		},
		state: []StateField{
			{Key: KeyOn, Kind: KindBool, Initial: constant(false)},
		},
	},
	TraitTransportControl: {
		attributes: func(cfg StaticConfig, _ catalogSet) map[string]any {
			commands := make([]string, len(cfg.TransportControlSupportedCommands))
			copy(commands, cfg.TransportControlSupportedCommands)
			return map[string]any{
				"transportControlSupportedCommands": commands,
			}
		},
	},
	TraitVolume: {
		attributes: func(cfg StaticConfig, _ catalogSet) map[string]any {
			return map[string]any{
				"volumeMaxLevel":          cfg.VolumeMaxLevel,
				"volumeCanMuteAndUnmute":  cfg.VolumeCanMuteAndUnmute,
				"volumeDefaultPercentage": cfg.VolumeDefaultPercentage,
				"levelStepSize":           cfg.LevelStepSize,
				"commandOnlyVolume":       cfg.CommandOnlyVolume,
			}
		},
		state: []StateField{
			{Key: KeyCurrentVolume, Kind: KindInt, Initial: func(cfg StaticConfig) any { return cfg.VolumeDefaultPercentage }},
			{Key: KeyIsMuted, Kind: KindBool, Initial: constant(false)},
		},
	},
	TraitToggles: {
		attributes: func(cfg StaticConfig, c catalogSet) map[string]any {
			return map[string]any{
				"availableToggles":   c.get(CatalogToggles),
				"commandOnlyToggles": cfg.CommandOnlyToggles,
				"queryOnlyToggles":   cfg.QueryOnlyToggles,
			}
		},
		state: []StateField{
			{Key: KeyCurrentToggleSettings, Kind: KindMap, Initial: constant(map[string]any{})},
		},
	},
	TraitModes: {
		attributes: func(cfg StaticConfig, c catalogSet) map[string]any {
			return map[string]any{
				"availableModes":   c.get(CatalogModes),
				"commandOnlyModes": cfg.CommandOnlyModes,
				"queryOnlyModes":   cfg.QueryOnlyModes,
			}
		},
		state: []StateField{
			{Key: KeyCurrentModeSettings, Kind: KindMap, Initial: constant(map[string]any{})},
		},
	},
	TraitChannel: {
		attributes: func(_ StaticConfig, c catalogSet) map[string]any {
			return map[string]any{
				"availableChannels": c.get(CatalogChannels),
			}
		},
	},
}

// StateFields returns the recognised state keys for a trait set:
// online first, then each trait's fields in trait order.
func StateFields(traits []Trait) []StateField {
	fields := []StateField{onlineField}
	for _, t := range traits {
		fields = append(fields, traitTable[t].state...)
	}
	return fields
}

// catalogKindsFor returns the catalogs a trait set needs.
func catalogKindsFor(traits []Trait) []CatalogKind {
	var kinds []CatalogKind
	for _, t := range traits {
		switch t {
		case TraitAppSelector:
			kinds = append(kinds, CatalogApplications)
		case TraitInputSelector:
			kinds = append(kinds, CatalogInputs)
		case TraitChannel:
			kinds = append(kinds, CatalogChannels)
		case TraitModes:
			kinds = append(kinds, CatalogModes)
		case TraitToggles:
			kinds = append(kinds, CatalogToggles)
		}
	}
	return kinds
}
