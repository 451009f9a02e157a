// Package logging provides structured logging for the hvpsu service.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the daemon and its drivers.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for bench work (human-readable)
//   - Default fields (service, version) on all log entries
//   - Per-component child loggers
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
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 5001)
//	manager.SetLogger(logger.Component("psu"))
//
// Never log secrets, tokens or passwords.
package logging
