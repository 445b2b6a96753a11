package webview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
)

// ErrOutsideResourceRoots is returned by AsWebviewURI for paths that are
// not inside any of the panel's resource roots.
var ErrOutsideResourceRoots = errors.New("webview: resource is not inside the local resource roots")

// OpenOptions control how a panel is launched.
type OpenOptions struct {
	// OpenURL opens the panel page externally once created.
	OpenURL bool
	// RouteName names the panel route. Generated when empty.
	RouteName string
}

// Options configure the webview content of a panel.
type Options struct {
	// LocalResourceRoots are directories the panel may load files from.
	LocalResourceRoots []string
}

// RevealOptions control Reveal.
type RevealOptions struct {
	OpenURL bool
}

// Panel is an editor-side webview panel rendered in browser tabs.
type Panel struct {
	viewType  string
	options   Options
	route     bridge.Route
	bridge    *bridge.Bridge
	connector *bridge.Connector
	logger    *logging.Logger

	mu       sync.RWMutex
	title    string              // Protected by mu
	iconPath *protocol.IconPaths // Protected by mu
	active   bool                // Protected by mu
	visible  bool                // Protected by mu
	disposed bool                // Protected by mu

	messages    emitter[json.RawMessage]
	viewState   emitter[*Panel]
	onDispose   emitter[struct{}]
	unsubscribe func()
}

func newPanel(b *bridge.Bridge, conn *bridge.Connector, route bridge.Route, viewType string, opts Options, logger *logging.Logger) *Panel {
	p := &Panel{
		viewType:  viewType,
		options:   opts,
		route:     route,
		bridge:    b,
		connector: conn,
		logger:    logger.Route(route.Name),
		title:     route.Title,
	}
	p.unsubscribe = conn.Subscribe(p.handle)

	// A tab may have registered before the subscription existed.
	if conn.State() == bridge.StateActive {
		p.mu.Lock()
		p.active, p.visible = true, true
		p.mu.Unlock()
	}
	return p
}

// handle applies a connector event to the panel.
func (p *Panel) handle(ev bridge.Event) {
	switch ev.Kind {
	case protocol.EventRegister:
		p.setViewState(true, true)
	case bridge.EventUnregister:
		if ev.Sockets <= 0 {
			p.setViewState(false, false)
		}
	case protocol.EventVisible:
		p.mu.RLock()
		active := p.active
		p.mu.RUnlock()
		p.setViewState(active, ev.Visible)
	case protocol.EventSetState:
		p.viewState.fire(p)
	case protocol.EventPostMessage:
		p.messages.fire(ev.Data)
	case protocol.EventDispose:
		p.mu.Lock()
		p.disposed, p.active, p.visible = true, false, false
		p.mu.Unlock()
		p.onDispose.fire(struct{}{})
		p.messages.clear()
		p.viewState.clear()
		p.onDispose.clear()
	}
}

func (p *Panel) setViewState(active, visible bool) {
	p.mu.Lock()
	changed := p.active != active || p.visible != visible
	p.active, p.visible = active, visible
	p.mu.Unlock()

	if changed {
		p.viewState.fire(p)
	}
}

// ViewType returns the identifier the panel was created with.
func (p *Panel) ViewType() string { return p.viewType }

// RouteName returns the name of the panel route.
func (p *Panel) RouteName() string { return p.route.Name }

// URL returns the page address of the panel.
func (p *Panel) URL() string { return p.route.URL() }

// Options returns the webview options of the panel.
func (p *Panel) Options() Options { return p.options }

// Title returns the current title.
func (p *Panel) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// IconPath returns the icon last set with SetIconPath.
func (p *Panel) IconPath() (protocol.IconPaths, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.iconPath == nil {
		return protocol.IconPaths{}, false
	}
	return *p.iconPath, true
}

// Active reports whether at least one tab shows the panel.
func (p *Panel) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Visible reports whether the panel's tab is visible.
func (p *Panel) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}

// Disposed reports whether the panel has been disposed.
func (p *Panel) Disposed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.disposed
}

// SetTitle changes the title. It waits until a tab is connected.
func (p *Panel) SetTitle(ctx context.Context, title string) error {
	p.mu.Lock()
	p.title = title
	p.mu.Unlock()
	return p.connector.SetTitle(ctx, title)
}

// SetIconPath changes the icon. It waits until a tab is connected.
func (p *Panel) SetIconPath(ctx context.Context, paths protocol.IconPaths) error {
	p.mu.Lock()
	p.iconPath = &paths
	p.mu.Unlock()
	return p.connector.SetIconPath(ctx, paths)
}

// SetHTML replaces the panel content. It waits until a tab is connected.
func (p *Panel) SetHTML(ctx context.Context, html string) error {
	return p.connector.SetHTML(ctx, html)
}

// PostMessage sends msg to the panel content. It reports whether every
// tab received it.
func (p *Panel) PostMessage(ctx context.Context, msg any) (bool, error) {
	return p.connector.PostMessage(ctx, msg)
}

// AsWebviewURI converts a local path into a URL the panel content can
// load. The path must be inside one of the panel's resource roots.
func (p *Panel) AsWebviewURI(localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("webview: resolve %s: %w", localPath, err)
	}
	if !p.insideRoots(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideResourceRoots, localPath)
	}
	return p.bridge.AsWebviewURI(abs)
}

func (p *Panel) insideRoots(abs string) bool {
	for _, root := range p.options.LocalResourceRoots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if strings.HasPrefix(abs, rootAbs) {
			return true
		}
	}
	return false
}

// OnDidReceiveMessage registers fn for messages posted by the panel
// content. The returned function removes it.
func (p *Panel) OnDidReceiveMessage(fn func(msg json.RawMessage)) func() {
	return p.messages.on(fn)
}

// OnDidChangeViewState registers fn for changes of Active or Visible and
// for state snapshots stored by the content.
func (p *Panel) OnDidChangeViewState(fn func(*Panel)) func() {
	return p.viewState.on(fn)
}

// OnDidDispose registers fn to run once when the panel is disposed, by
// the editor or by the user closing the tab.
func (p *Panel) OnDidDispose(fn func()) func() {
	return p.onDispose.on(func(struct{}) { fn() })
}

// Reveal draws attention to the panel's tabs.
func (p *Panel) Reveal(ctx context.Context, opts RevealOptions) (bool, error) {
	return p.connector.Reveal(ctx, opts.OpenURL)
}

// Dispose closes the panel's tabs and removes its route. Safe to call
// more than once.
func (p *Panel) Dispose() {
	p.connector.Dispose()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.logger.Debug("Panel disposed", zap.String("view_type", p.viewType))
}
