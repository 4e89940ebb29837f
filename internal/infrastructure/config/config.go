package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

// Config is the root configuration structure for Gray Logic Media.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	CloudSync CloudSyncConfig `yaml:"cloud_sync"`
	Media     MediaConfig     `yaml:"media"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CloudSyncConfig contains the assistant report-state settings.
type CloudSyncConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	AgentUserID string  `yaml:"agent_user_id"`
	APIKey      string  `yaml:"api_key"`
	Timeout     int     `yaml:"timeout"`    // seconds
	RateLimit   float64 `yaml:"rate_limit"` // pushes per second, 0 = unlimited
	Burst       int     `yaml:"burst"`
	QueueSize   int     `yaml:"queue_size"`

	Journal JournalConfig `yaml:"journal"`
}

// JournalConfig contains the local report-state journal settings.
type JournalConfig struct {
	Enabled        bool `yaml:"enabled"`
	RetentionHours int  `yaml:"retention_hours"`
	PruneInterval  int  `yaml:"prune_interval"` // minutes
}

// MediaConfig contains the manufacturer details and the media devices.
type MediaConfig struct {
	NamePrefix   string              `yaml:"name_prefix"`
	Manufacturer string              `yaml:"manufacturer"`
	Model        string              `yaml:"model"`
	SwVersion    string              `yaml:"sw_version"`
	HwVersion    string              `yaml:"hw_version"`
	Devices      []MediaDeviceConfig `yaml:"devices"`
}

// MediaDeviceConfig configures one media device.
type MediaDeviceConfig struct {
	ID         string                    `yaml:"id"`
	Name       string                    `yaml:"name"`
	DeviceType string                    `yaml:"device_type"`
	Topic      string                    `yaml:"topic"`
	Passthru   bool                      `yaml:"passthru"`
	AuthToken  string                    `yaml:"auth_token"`
	Streams    map[string]string         `yaml:"streams"`
	Attributes MediaAttributesConfig     `yaml:"attributes"`
	Catalogs   map[string]map[string]any `yaml:"catalogs"`
}

// MediaAttributesConfig holds the static attribute settings of a device.
type MediaAttributesConfig struct {
	CommandOnlyInputSelector          bool     `yaml:"command_only_input_selector"`
	OrderedInputs                     bool     `yaml:"ordered_inputs"`
	SupportActivityState              bool     `yaml:"support_activity_state"`
	SupportPlaybackState              bool     `yaml:"support_playback_state"`
	CommandOnlyOnOff                  bool     `yaml:"command_only_on_off"`
	QueryOnlyOnOff                    bool     `yaml:"query_only_on_off"`
	TransportControlSupportedCommands []string `yaml:"transport_control_supported_commands"`
	VolumeMaxLevel                    int      `yaml:"volume_max_level"`
	VolumeCanMuteAndUnmute            bool     `yaml:"volume_can_mute_and_unmute"`
	VolumeDefaultPercentage           int      `yaml:"volume_default_percentage"`
	LevelStepSize                     int      `yaml:"level_step_size"`
	CommandOnlyVolume                 bool     `yaml:"command_only_volume"`
	CommandOnlyModes                  bool     `yaml:"command_only_modes"`
	QueryOnlyModes                    bool     `yaml:"query_only_modes"`
	CommandOnlyToggles                bool     `yaml:"command_only_toggles"`
	QueryOnlyToggles                  bool     `yaml:"query_only_toggles"`
}

// validCatalogs lists the catalog names accepted under media.devices[].catalogs.
var validCatalogs = map[string]bool{
	"applications": true,
	"channels":     true,
	"inputs":       true,
	"modes":        true,
	"toggles":      true,
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_CLOUD_SYNC_API_KEY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/graymedia.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-media",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		CloudSync: CloudSyncConfig{
			Enabled:   true,
			Timeout:   10,
			Burst:     1,
			QueueSize: 256,
			Journal: JournalConfig{
				Enabled:        true,
				RetentionHours: 168,
				PruneInterval:  60,
			},
		},
		Media: MediaConfig{
			NamePrefix:   media.DefaultManufacturer.NamePrefix,
			Manufacturer: media.DefaultManufacturer.Manufacturer,
			Model:        media.DefaultManufacturer.Model,
			SwVersion:    media.DefaultManufacturer.SwVersion,
			HwVersion:    media.DefaultManufacturer.HwVersion,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Cloud sync
	if v := os.Getenv("GRAYLOGIC_CLOUD_SYNC_ENDPOINT"); v != "" {
		cfg.CloudSync.Endpoint = v
	}
	if v := os.Getenv("GRAYLOGIC_CLOUD_SYNC_AGENT_USER_ID"); v != "" {
		cfg.CloudSync.AgentUserID = v
	}
	if v := os.Getenv("GRAYLOGIC_CLOUD_SYNC_API_KEY"); v != "" {
		cfg.CloudSync.APIKey = v
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.CloudSync.Enabled {
		if c.CloudSync.Endpoint == "" {
			errs = append(errs, "cloud_sync.endpoint is required when cloud_sync is enabled (set GRAYLOGIC_CLOUD_SYNC_ENDPOINT)")
		}
		if c.CloudSync.RateLimit < 0 {
			errs = append(errs, "cloud_sync.rate_limit must not be negative")
		}
		if c.CloudSync.Journal.Enabled && c.CloudSync.Journal.RetentionHours < 0 {
			errs = append(errs, "cloud_sync.journal.retention_hours must not be negative")
		}
	}

	errs = append(errs, c.Media.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validate checks the media devices.
func (m *MediaConfig) validate() []string {
	var errs []string
	seen := make(map[string]bool, len(m.Devices))

	for i, d := range m.Devices {
		prefix := fmt.Sprintf("media.devices[%d]", i)

		id := strings.TrimSpace(d.ID)
		switch {
		case id == "":
			errs = append(errs, prefix+".id is required")
		case seen[id]:
			errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, id))
		default:
			seen[id] = true
		}

		if _, ok := media.ParseDeviceType(d.DeviceType); !ok {
			errs = append(errs, fmt.Sprintf("%s.device_type %q is not a media device type", prefix, d.DeviceType))
		}

		a := d.Attributes
		if a.VolumeMaxLevel < 0 {
			errs = append(errs, prefix+".attributes.volume_max_level must not be negative")
		}
		if a.VolumeDefaultPercentage < 0 || a.VolumeDefaultPercentage > 100 {
			errs = append(errs, prefix+".attributes.volume_default_percentage must be between 0 and 100")
		}
		if a.LevelStepSize < 0 {
			errs = append(errs, prefix+".attributes.level_step_size must not be negative")
		}

		for name := range d.Catalogs {
			if !validCatalogs[name] {
				errs = append(errs, fmt.Sprintf("%s.catalogs.%s is not a known catalog", prefix, name))
			}
		}
	}

	return errs
}

// ReadTimeout returns the HTTP read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the HTTP keep-alive timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// GetCloudSyncTimeout returns the report-state request timeout as a Duration.
func (c *Config) GetCloudSyncTimeout() time.Duration {
	return time.Duration(c.CloudSync.Timeout) * time.Second
}

// GetJournalRetention returns how long journal entries are kept.
// Zero disables pruning.
func (c *Config) GetJournalRetention() time.Duration {
	return time.Duration(c.CloudSync.Journal.RetentionHours) * time.Hour
}

// GetJournalPruneInterval returns how often the journal is pruned.
func (c *Config) GetJournalPruneInterval() time.Duration {
	return time.Duration(c.CloudSync.Journal.PruneInterval) * time.Minute
}

// ManufacturerInfo returns the manufacturer details advertised for every device.
func (m MediaConfig) ManufacturerInfo() media.Manufacturer {
	return media.Manufacturer{
		NamePrefix:   m.NamePrefix,
		Manufacturer: m.Manufacturer,
		Model:        m.Model,
		HwVersion:    m.HwVersion,
		SwVersion:    m.SwVersion,
	}
}

// DeviceConfig converts a configured device into the registry's form.
// The device type must already have passed Validate.
func (d MediaDeviceConfig) DeviceConfig() media.DeviceConfig {
	deviceType, _ := media.ParseDeviceType(d.DeviceType)

	var streams media.StreamSource
	if len(d.Streams) > 0 {
		streams = media.NewStaticStreams(d.Streams)
	}

	catalogs := make(media.StaticCatalog, len(d.Catalogs))
	for name, entries := range d.Catalogs {
		catalogs[media.CatalogKind(name)] = entries
	}

	a := d.Attributes
	return media.DeviceConfig{
		ID:        strings.TrimSpace(d.ID),
		Name:      d.Name,
		Type:      deviceType,
		Topic:     d.Topic,
		Passthru:  d.Passthru,
		AuthToken: d.AuthToken,
		Streams:   streams,
		Catalogs:  catalogs,
		Static: media.StaticConfig{
			CommandOnlyInputSelector:          a.CommandOnlyInputSelector,
			OrderedInputs:                     a.OrderedInputs,
			SupportActivityState:              a.SupportActivityState,
			SupportPlaybackState:              a.SupportPlaybackState,
			CommandOnlyOnOff:                  a.CommandOnlyOnOff,
			QueryOnlyOnOff:                    a.QueryOnlyOnOff,
			TransportControlSupportedCommands: append([]string(nil), a.TransportControlSupportedCommands...),
			VolumeMaxLevel:                    a.VolumeMaxLevel,
			VolumeCanMuteAndUnmute:            a.VolumeCanMuteAndUnmute,
			VolumeDefaultPercentage:           a.VolumeDefaultPercentage,
			LevelStepSize:                     a.LevelStepSize,
			CommandOnlyVolume:                 a.CommandOnlyVolume,
			CommandOnlyModes:                  a.CommandOnlyModes,
			QueryOnlyModes:                    a.QueryOnlyModes,
			CommandOnlyToggles:                a.CommandOnlyToggles,
			QueryOnlyToggles:                  a.QueryOnlyToggles,
		},
	}
}
