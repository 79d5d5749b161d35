// Package logging provides structured logging for clinicauth.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
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
//	logger.Info("user registered", "user_id", user.ID)
//
// # Security
//
// Never log passwords, salts, derived hashes or session tokens. Log user IDs
// rather than email addresses where an identifier is enough.
package logging
