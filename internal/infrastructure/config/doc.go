// Package config handles loading and validating Gray Logic Media configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and media device definitions
//   - Conversion of configured devices into media.DeviceConfig values
//
// Security Considerations:
//   - Sensitive values (MQTT password, cloud sync API key, InfluxDB token)
//     should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range cfg.Media.Devices {
//	    registry.Register(d.DeviceConfig())
//	}
package config
