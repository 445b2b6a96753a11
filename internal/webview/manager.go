package webview

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
)

// Item describes a live panel for list views.
type Item struct {
	Title     string
	RouteName string
	URL       string
	ViewType  string
	Active    bool
	Visible   bool
}

// Manager creates panels on a bridge and tracks the live ones.
type Manager struct {
	bridge *bridge.Bridge
	logger *logging.Logger

	mu     sync.RWMutex
	panels map[string]*Panel // Protected by mu
}

// NewManager creates a panel manager for b.
func NewManager(b *bridge.Bridge, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		bridge: b,
		logger: logger,
		panels: make(map[string]*Panel),
	}
}

// CreateWebviewPanel adds a route for a new panel and, if requested,
// opens its page externally. Bridge startup errors abort creation.
func (m *Manager) CreateWebviewPanel(ctx context.Context, viewType, title string, open OpenOptions, opts Options) (*Panel, error) {
	route, conn, err := m.bridge.Add(ctx, bridge.RouteParams{
		Name:               open.RouteName,
		Title:              title,
		LocalResourceRoots: opts.LocalResourceRoots,
	})
	if err != nil {
		return nil, err
	}

	panel := newPanel(m.bridge, conn, route, viewType, opts, m.logger)

	m.mu.Lock()
	m.panels[route.Name] = panel
	m.mu.Unlock()
	panel.OnDidDispose(func() {
		m.mu.Lock()
		delete(m.panels, route.Name)
		m.mu.Unlock()
	})

	m.logger.Info("Launched webview panel",
		zap.String("route", route.Name),
		zap.String("view_type", viewType),
		zap.String("url", route.URL()),
	)

	if open.OpenURL {
		if err := m.bridge.OpenRoute(route); err != nil {
			m.logger.Warn("Failed to open panel", zap.String("route", route.Name), zap.Error(err))
		}
	}
	return panel, nil
}

// Get returns a live panel by route name.
func (m *Manager) Get(routeName string) (*Panel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.panels[routeName]
	return p, ok
}

// List returns the live panels ordered by route name.
func (m *Manager) List() []Item {
	m.mu.RLock()
	panels := make([]*Panel, 0, len(m.panels))
	for _, p := range m.panels {
		panels = append(panels, p)
	}
	m.mu.RUnlock()

	items := make([]Item, 0, len(panels))
	for _, p := range panels {
		items = append(items, Item{
			Title:     p.Title(),
			RouteName: p.RouteName(),
			URL:       p.URL(),
			ViewType:  p.ViewType(),
			Active:    p.Active(),
			Visible:   p.Visible(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].RouteName < items[j].RouteName })
	return items
}

// Open opens a live panel's page externally.
func (m *Manager) Open(routeName string) error {
	return m.bridge.OpenByRouteName(routeName)
}

// URL returns a live panel's page address, e.g. for copying.
func (m *Manager) URL(routeName string) (string, error) {
	return m.bridge.URL(routeName)
}

// Close disposes one live panel.
func (m *Manager) Close(routeName string) bool {
	p, ok := m.Get(routeName)
	if !ok {
		return false
	}
	p.Dispose()
	return true
}

// DisposeAll disposes every live panel.
func (m *Manager) DisposeAll() {
	m.mu.RLock()
	panels := make([]*Panel, 0, len(m.panels))
	for _, p := range m.panels {
		panels = append(panels, p)
	}
	m.mu.RUnlock()

	for _, p := range panels {
		p.Dispose()
	}
}

// Len returns the number of live panels.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.panels)
}
