package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/opener"
	"github.com/GriffinCanCode/AgentOS/webview/internal/webview"
)

const shutdownTimeout = 5 * time.Second

const demoHTML = `<h1>Webview bridge</h1>
<p>Pass <code>--html page.html</code> to show your own content.</p>
<button onclick="vscode.postMessage({command: 'hello', at: Date.now()})">Say hello</button>
<pre id="log"></pre>
<script>
  const vscode = acquireVsCodeApi();
  window.addEventListener('message', (e) => {
    document.getElementById('log').textContent += JSON.stringify(e.data) + '\n';
  });
</script>`

type flags struct {
	html       string
	title      string
	route      string
	viewType   string
	open       bool
	watch      bool
	configFile string
	roots      []string
	debug      bool
	dev        bool
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var f flags
	flagSet := pflag.NewFlagSet("webview-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&f.html, "html", "", "HTML file to show in the panel")
	flagSet.StringVar(&f.title, "title", "Webview", "panel title")
	flagSet.StringVar(&f.route, "route", "", "route name (default: generated)")
	flagSet.StringVar(&f.viewType, "view-type", "webview.bridge", "panel view type")
	flagSet.BoolVar(&f.open, "open", true, "open the panel in a browser")
	flagSet.BoolVar(&f.watch, "watch", false, "re-send the HTML file when it changes")
	flagSet.StringVar(&f.configFile, "config", "", "YAML or TOML config file")
	flagSet.StringSliceVar(&f.roots, "root", nil, "local resource root (repeatable)")
	flagSet.BoolVar(&f.debug, "debug", false, "keep closed tabs open and log socket lifecycle")
	flagSet.BoolVar(&f.dev, "dev", false, "development logging")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Verbose:     cfg.Bridge.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, f, cfg, logger, stop)
	if err != nil {
		return err
	}

	go pushHTML(ctx, a.panel, f.html, logger)

	if f.watch && f.html != "" {
		w, err := newFileWatcher(f.html, logger)
		if err != nil {
			logger.Warn("File watching disabled", zap.Error(err))
		} else {
			defer w.Close()
			go w.Run(ctx, func() { pushHTML(ctx, a.panel, f.html, logger) })
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")
	a.shutdown()
	return nil
}

// app is one bridge showing a single panel.
type app struct {
	bridge  *bridge.Bridge
	manager *webview.Manager
	panel   *webview.Panel
	logger  *logging.Logger
}

// newApp starts the bridge and creates the panel. onDispose runs when the
// panel goes away, whichever side closed it.
func newApp(ctx context.Context, f flags, cfg *config.Config, logger *logging.Logger, onDispose func(), mutate ...func(*bridge.Options)) (*app, error) {
	roots, err := resourceRoots(f)
	if err != nil {
		return nil, err
	}

	opts := bridge.OptionsFromConfig(cfg)
	opts.Logger = logger
	opts.Opener = opener.New(cfg.Opener.Command)
	for _, fn := range mutate {
		fn(&opts)
	}
	b, err := bridge.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	manager := webview.NewManager(b, logger)
	panel, err := manager.CreateWebviewPanel(ctx, f.viewType, f.title,
		webview.OpenOptions{OpenURL: f.open, RouteName: f.route},
		webview.Options{LocalResourceRoots: roots},
	)
	if err != nil {
		_ = b.Close(context.Background())
		return nil, fmt.Errorf("failed to create panel: %w", err)
	}

	binding, _ := b.Binding()
	logger.Info("Webview bridge ready",
		zap.String("addr", binding.Addr()),
		zap.String("url", panel.URL()),
	)

	panel.OnDidReceiveMessage(func(msg json.RawMessage) {
		logger.Info("Message from panel", zap.String("route", panel.RouteName()), zap.ByteString("data", msg))
	})
	panel.OnDidChangeViewState(func(p *webview.Panel) {
		logger.Debug("Panel view state changed",
			zap.Bool("active", p.Active()),
			zap.Bool("visible", p.Visible()),
		)
	})
	panel.OnDidDispose(func() {
		logger.Info("Panel disposed", zap.String("route", panel.RouteName()))
		if onDispose != nil {
			onDispose()
		}
	})

	return &app{bridge: b, manager: manager, panel: panel, logger: logger}, nil
}

// shutdown disposes every panel and closes the bridge.
func (a *app) shutdown() {
	a.manager.DisposeAll()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.bridge.Close(ctx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.configFile != "" {
		if err := cfg.LoadFile(f.configFile); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if f.debug {
		cfg.Bridge.Debug = true
		cfg.Logging.Level = "debug"
	}
	if f.dev {
		cfg.Logging.Development = true
	}
	return cfg, nil
}

// resourceRoots defaults to the HTML file's directory when no root is given.
func resourceRoots(f flags) ([]string, error) {
	roots := f.roots
	if len(roots) == 0 && f.html != "" {
		roots = []string{filepath.Dir(f.html)}
	}
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("invalid resource root %q: %w", r, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// pushHTML blocks until a tab attaches, then sends the page content.
func pushHTML(ctx context.Context, panel *webview.Panel, path string, logger *logging.Logger) {
	html := demoHTML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read HTML", zap.String("path", path), zap.Error(err))
			return
		}
		html = string(data)
	}
	if err := panel.SetHTML(ctx, html); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Failed to send HTML", zap.Error(err))
	}
}
