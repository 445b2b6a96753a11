package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge" toml:"bridge"`
	Page      PageConfig      `yaml:"page" toml:"page"`
	Resources ResourceConfig  `yaml:"resources" toml:"resources"`
	Opener    OpenerConfig    `yaml:"opener" toml:"opener"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`

	// File is an optional YAML or TOML file overlaid on top of the environment.
	File string `envconfig:"WEBVIEW_CONFIG" yaml:"-" toml:"-"`
}

// BridgeConfig holds the port range and host the bridge binds to.
type BridgeConfig struct {
	Host    string `envconfig:"WEBVIEW_HOST" default:"localhost" yaml:"host" toml:"host"`
	MinPort int    `envconfig:"WEBVIEW_MIN_PORT" default:"9000" yaml:"min_port" toml:"min_port"`
	MaxPort int    `envconfig:"WEBVIEW_MAX_PORT" default:"9100" yaml:"max_port" toml:"max_port"`
	Debug   bool   `envconfig:"WEBVIEW_DEBUG" default:"false" yaml:"debug" toml:"debug"`
}

// PageConfig controls how route pages are rendered.
type PageConfig struct {
	ColorStrategy string `envconfig:"WEBVIEW_COLOR_STRATEGY" default:"system" yaml:"color_strategy" toml:"color_strategy"`
	PrimaryLight  string `envconfig:"WEBVIEW_PRIMARY_LIGHT" default:"#2288ff" yaml:"primary_light" toml:"primary_light"`
	PrimaryDark   string `envconfig:"WEBVIEW_PRIMARY_DARK" default:"#2288ff" yaml:"primary_dark" toml:"primary_dark"`
	TitlePanel    bool   `envconfig:"WEBVIEW_TITLE_PANEL" default:"true" yaml:"title_panel" toml:"title_panel"`
}

// ResourceConfig holds resource serving restrictions.
type ResourceConfig struct {
	Exclude []string `envconfig:"WEBVIEW_RESOURCE_EXCLUDE" yaml:"exclude" toml:"exclude"`
}

// OpenerConfig configures how URLs are opened externally.
type OpenerConfig struct {
	Command string `envconfig:"WEBVIEW_OPEN_COMMAND" yaml:"command" toml:"command"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false" yaml:"enabled" toml:"enabled"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"WEBVIEW_METRICS_ENABLED" default:"false" yaml:"enabled" toml:"enabled"`
}

// Color strategies understood by the page renderer.
const (
	ColorSystem = "system"
	ColorDark   = "dark"
	ColorLight  = "light"
)

// Load loads configuration from environment variables, then overlays the
// config file named by WEBVIEW_CONFIG if set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.File != "" {
		if err := cfg.LoadFile(cfg.File); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays a YAML (.yaml, .yml) or TOML (.toml) file onto cfg.
// Keys absent from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the bridge binding settings and page options.
func (c *Config) Validate() error {
	b := c.Bridge
	if b.Host == "" {
		return errors.New("bridge host cannot be empty")
	}
	if b.MinPort < 1 || b.MaxPort > 65535 {
		return fmt.Errorf("port range %d-%d outside 1-65535", b.MinPort, b.MaxPort)
	}
	if b.MinPort > b.MaxPort {
		return fmt.Errorf("min port %d greater than max port %d", b.MinPort, b.MaxPort)
	}
	switch c.Page.ColorStrategy {
	case ColorSystem, ColorDark, ColorLight:
	default:
		return fmt.Errorf("unknown color strategy %q", c.Page.ColorStrategy)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Host:    "localhost",
			MinPort: 9000,
			MaxPort: 9100,
		},
		Page: PageConfig{
			ColorStrategy: ColorSystem,
			PrimaryLight:  "#2288ff",
			PrimaryDark:   "#2288ff",
			TitlePanel:    true,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
		},
	}
}
