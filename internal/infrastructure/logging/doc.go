// Package logging provides structured logging for the Coursebook gateway.
//
// It wraps log/slog so every component logs with the same shape. Loggers are
// built once in main and handed to each component explicitly; there is no
// package-level logger.
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
//	logger.Info("gateway started", "port", 8080)
//	logger.Error("publish failed", "routing_key", "mongo", "error", err)
//
// # Security
//
// Never log passwords or tokens. Request bodies for /register and /login carry
// credentials and are not logged.
package logging
