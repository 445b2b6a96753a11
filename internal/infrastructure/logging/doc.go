// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Socket connect/disconnect messages go through Lifecycle, which logs at
// info level only when the bridge runs in debug mode and at debug level
// otherwise. Loggers are written to stderr so stdout stays free for
// editor integrations that speak over it.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Socket("preview", socketID)
//	log.Lifecycle("socket registered", zap.Int("count", n))
package logging
