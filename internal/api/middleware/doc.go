// Package middleware provides the HTTP middleware of the webview bridge.
//
// Middleware stack includes:
//   - Recovery: a panicking handler yields 500 with the panic message
//   - CORS: loopback origins may read bridge resources
//   - RateLimit: optional per-IP token bucket rate limiting
//   - RequestLogger: debug-level request logging through zap
//
// Rate Limiting:
//   - Per-IP tracking with idle client cleanup
//   - Configurable RPS and burst capacity
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
