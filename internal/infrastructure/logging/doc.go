// Package logging provides structured logging for Gray Logic Media.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the bridge.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version, site) on all log entries
//   - Per-component child loggers (media, cloudsync, flow, api)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version, cfg.Site.ID)
//	registry.SetLogger(logger.Component("media"))
//
// # Security
//
// Never log the cloud sync API key or stream auth tokens.
package logging
