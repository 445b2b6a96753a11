package bridge

import (
	"github.com/GriffinCanCode/AgentOS/webview/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webview/internal/resource"
)

// URLOpener opens a URL outside the editor, usually in a browser.
type URLOpener interface {
	Open(url string) error
}

// Options configure a Bridge. Zero values fall back to the defaults of
// DefaultOptions.
type Options struct {
	Host    string
	MinPort int
	MaxPort int
	// Debug keeps closed tabs open and logs socket lifecycle at info.
	Debug bool

	Page PageOptions

	// Exclude lists glob patterns that are never served as resources.
	Exclude []string

	CORS            middleware.CORSConfig
	RateLimit       *middleware.RateLimitConfig
	MetricsEndpoint bool

	Logger     *logging.Logger
	Metrics    *monitoring.Metrics
	Opener     URLOpener
	Listen     ListenFunc
	FileSystem resource.FileSystem
}

// PageOptions control how route pages are rendered.
type PageOptions struct {
	ColorStrategy string
	PrimaryLight  string
	PrimaryDark   string
	TitlePanel    bool
}

// DefaultOptions returns the options of an unconfigured bridge.
func DefaultOptions() Options {
	return Options{
		Host:    "localhost",
		MinPort: 9000,
		MaxPort: 9100,
		Page: PageOptions{
			ColorStrategy: config.ColorSystem,
			PrimaryLight:  "#2288ff",
			PrimaryDark:   "#2288ff",
			TitlePanel:    true,
		},
		CORS: middleware.DefaultCORSConfig(),
	}
}

// OptionsFromConfig maps loaded configuration onto bridge options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Host = cfg.Bridge.Host
	opts.MinPort = cfg.Bridge.MinPort
	opts.MaxPort = cfg.Bridge.MaxPort
	opts.Debug = cfg.Bridge.Debug
	opts.Page = PageOptions{
		ColorStrategy: cfg.Page.ColorStrategy,
		PrimaryLight:  cfg.Page.PrimaryLight,
		PrimaryDark:   cfg.Page.PrimaryDark,
		TitlePanel:    cfg.Page.TitlePanel,
	}
	opts.Exclude = cfg.Resources.Exclude
	opts.MetricsEndpoint = cfg.Metrics.Enabled
	if cfg.RateLimit.Enabled {
		opts.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
	}
	return opts
}

func (o *Options) setDefaults() {
	def := DefaultOptions()
	if o.Host == "" {
		o.Host = def.Host
	}
	if o.MinPort == 0 && o.MaxPort == 0 {
		o.MinPort, o.MaxPort = def.MinPort, def.MaxPort
	}
	if o.Page.ColorStrategy == "" {
		o.Page = def.Page
	}
	if o.Page.PrimaryLight == "" {
		o.Page.PrimaryLight = def.Page.PrimaryLight
	}
	if o.Page.PrimaryDark == "" {
		o.Page.PrimaryDark = def.Page.PrimaryDark
	}
	if len(o.CORS.AllowMethods) == 0 {
		o.CORS = def.CORS
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = monitoring.NewMetrics()
	}
}
