// Package config provides 12-factor configuration for the webview bridge.
//
// Configuration is loaded from environment variables with defaults. A YAML
// or TOML file named by WEBVIEW_CONFIG is applied on top of the environment.
//
// Configuration Sections:
//   - Bridge: host and port range the bridge binds to, debug mode
//   - Page: colour strategy, primary colours, title panel
//   - Resources: glob patterns that are never served
//   - Opener: command used to open route URLs externally
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting of the HTTP surface
//   - Metrics: the opt-in /metrics endpoint
//
// Environment Variables:
//   - WEBVIEW_HOST, WEBVIEW_MIN_PORT, WEBVIEW_MAX_PORT, WEBVIEW_DEBUG
//   - WEBVIEW_COLOR_STRATEGY, WEBVIEW_PRIMARY_LIGHT, WEBVIEW_PRIMARY_DARK, WEBVIEW_TITLE_PANEL
//   - WEBVIEW_RESOURCE_EXCLUDE, WEBVIEW_OPEN_COMMAND, WEBVIEW_METRICS_ENABLED
//   - LOG_LEVEL, LOG_DEV, RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
