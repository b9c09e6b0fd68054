// Package logging provides structured logging for the IR HVAC controller.
//
// This package wraps Go's standard log/slog package so that every
// component logs with the same default fields and level filtering.
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
//	logger.Info("line listener started", "port", 4998)
//
// Never log the web password or broker credentials.
package logging
