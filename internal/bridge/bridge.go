package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webview/internal/opener"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
	"github.com/GriffinCanCode/AgentOS/webview/internal/resource"
	"github.com/GriffinCanCode/AgentOS/webview/internal/shared/id"
)

// Bridge is the single HTTP and WebSocket server that connects editor-side
// connectors with browser tabs. It owns the route table, the socket
// registry and the resource guard; nothing about it is global.
type Bridge struct {
	opts     Options
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	opener   URLOpener
	guard    *resource.Guard
	binder   *PortBinder
	routes   *RouteTable
	sockets  *SocketRegistry
	router   *gin.Engine
	upgrader websocket.Upgrader

	// mu serializes route add and remove with the allow-list update.
	mu         sync.RWMutex
	connectors map[string]*Connector      // Protected by mu
	states     map[string]json.RawMessage // Protected by mu
	conns      map[string]*wsSocket       // Protected by mu
	closed     bool                       // Protected by mu

	serveMu sync.Mutex
	server  *http.Server  // Protected by serveMu
	served  chan struct{} // closed when Serve returns
}

// New creates a bridge. It does not listen until the first route is added.
func New(opts Options) (*Bridge, error) {
	opts.setDefaults()

	guardOpts := []resource.Option{resource.WithExclude(opts.Exclude...)}
	if opts.FileSystem != nil {
		guardOpts = append(guardOpts, resource.WithFileSystem(opts.FileSystem))
	}
	guard, err := resource.NewGuard(guardOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource guard: %w", err)
	}

	urlOpener := opts.Opener
	if urlOpener == nil {
		urlOpener = opener.New("")
	}

	b := &Bridge{
		opts:       opts,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		opener:     urlOpener,
		guard:      guard,
		binder:     NewPortBinder(opts.Listen, opts.Logger).WithMetrics(opts.Metrics),
		routes:     NewRouteTable(),
		sockets:    NewSocketRegistry(),
		connectors: make(map[string]*Connector),
		states:     make(map[string]json.RawMessage),
		conns:      make(map[string]*wsSocket),
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     b.checkOrigin,
	}
	b.router, err = b.newRouter()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Add creates a route and its connector. The first call binds the bridge;
// a PortRangeError from binding aborts the call.
func (b *Bridge) Add(ctx context.Context, params RouteParams) (Route, *Connector, error) {
	if params.Name == "" {
		params.Name = id.NewRouteName().String()
	}
	if !id.ValidRouteName(params.Name) {
		return Route{}, nil, fmt.Errorf("%w: %q", ErrInvalidRouteName, params.Name)
	}
	if b.isClosed() {
		return Route{}, nil, ErrBridgeClosed
	}

	binding, err := b.ensureServing(ctx)
	if err != nil {
		return Route{}, nil, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Route{}, nil, ErrBridgeClosed
	}
	route, err := b.routes.Add(params, binding)
	if err != nil {
		b.mu.Unlock()
		return Route{}, nil, fmt.Errorf("%w: %s", err, params.Name)
	}
	conn := newConnector(b, route.Name)
	b.connectors[route.Name] = conn
	b.guard.SetRoots(b.routes.Roots())
	b.metrics.SetRoutesActive(b.routes.Len())
	b.mu.Unlock()

	b.metrics.IncRoutesTotal()
	b.logger.Info("Added route", zap.String("route", route.Name), zap.String("url", route.URL()))
	return route, conn, nil
}

// Remove disposes the route with the given name. It reports false if the
// route was not live.
func (b *Bridge) Remove(name string) bool {
	return b.removeAndDispose(name, nil)
}

// Lookup returns a live route.
func (b *Bridge) Lookup(name string) (Route, bool) {
	return b.routes.Lookup(name)
}

// Routes returns all live routes ordered by name.
func (b *Bridge) Routes() []Route {
	return b.routes.List()
}

// Connector returns the connector of a live route.
func (b *Bridge) Connector(name string) (*Connector, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.connectors[name]
	return c, ok
}

// Binding returns the bound address, if any.
func (b *Bridge) Binding() (Binding, bool) {
	return b.binder.Binding()
}

// URL returns the page URL of a live route.
func (b *Bridge) URL(name string) (string, error) {
	route, ok := b.routes.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}
	return route.URL(), nil
}

// OpenRoute opens the route's page externally.
func (b *Bridge) OpenRoute(route Route) error {
	return b.opener.Open(route.URL())
}

// OpenByRouteName opens a live route's page externally.
func (b *Bridge) OpenByRouteName(name string) error {
	route, ok := b.routes.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}
	return b.OpenRoute(route)
}

// State returns the last state a tab of the route stored with setState.
func (b *Bridge) State(name string) (json.RawMessage, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	state, ok := b.states[name]
	return state, ok
}

// AsWebviewURI returns the URL under which a tab can load localPath and
// makes that path servable.
func (b *Bridge) AsWebviewURI(localPath string) (string, error) {
	return b.guard.URI(localPath)
}

// ParseResourceURI maps a resource URL produced by AsWebviewURI back to
// its local path.
func (b *Bridge) ParseResourceURI(rawURL string) (string, error) {
	return b.guard.Parse(rawURL)
}

// Handler exposes the HTTP surface, for tests and embedding.
func (b *Bridge) Handler() http.Handler {
	return b.router
}

// Close disposes every route, stops the server and closes all sockets.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	names := make([]string, 0, len(b.connectors))
	for name := range b.connectors {
		names = append(names, name)
	}
	b.mu.Unlock()

	for _, name := range names {
		b.removeAndDispose(name, nil)
	}

	var err error
	b.serveMu.Lock()
	server, served := b.server, b.served
	b.serveMu.Unlock()
	if server != nil {
		err = server.Shutdown(ctx)
	}

	b.mu.Lock()
	conns := make([]*wsSocket, 0, len(b.conns))
	for _, s := range b.conns {
		conns = append(conns, s)
	}
	b.mu.Unlock()
	for _, s := range conns {
		s.Close()
	}

	if served != nil {
		select {
		case <-served:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.logger.Info("Bridge closed")
	return err
}

func (b *Bridge) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// ensureServing binds on first use and starts serving HTTP.
func (b *Bridge) ensureServing(ctx context.Context) (Binding, error) {
	b.serveMu.Lock()
	defer b.serveMu.Unlock()

	if b.server != nil {
		binding, _ := b.binder.Binding()
		return binding, nil
	}

	binding, err := b.binder.Bind(ctx, b.opts.Host, b.opts.MinPort, b.opts.MaxPort)
	if err != nil {
		return Binding{}, err
	}
	b.guard.SetBinding(binding.Host, binding.Port)

	b.server = &http.Server{
		Handler:           b.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	b.served = make(chan struct{})
	go func(server *http.Server, served chan struct{}) {
		defer close(served)
		if err := server.Serve(b.binder.Listener()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("Server stopped", zap.Error(err))
		}
	}(b.server, b.served)

	return binding, nil
}

// removeAndDispose tears a route down. origin is the socket that asked for
// it, which closes itself and is not told again.
func (b *Bridge) removeAndDispose(name string, origin Socket) bool {
	b.mu.Lock()
	conn, ok := b.connectors[name]
	if !ok {
		b.mu.Unlock()
		return false
	}
	delete(b.connectors, name)
	delete(b.states, name)
	b.routes.Remove(name)
	b.guard.SetRoots(b.routes.Roots())
	b.metrics.SetRoutesActive(b.routes.Len())
	b.mu.Unlock()

	socks, ok := conn.teardown()
	if !ok {
		return false
	}
	if len(socks) > 0 {
		b.metrics.AddSockets(-len(socks))
	}
	for _, s := range socks {
		if origin != nil && s.ID() == origin.ID() {
			continue
		}
		if err := s.Emit(protocol.EventDispose, nil); err != nil {
			b.metrics.RecordSendFailure(protocol.EventDispose)
			conn.logger.Debug("Send failed",
				zap.Error(&TransportError{Socket: s.ID(), Event: protocol.EventDispose, Err: err}))
			continue
		}
		b.metrics.RecordWSMessage("out", protocol.EventDispose)
	}

	conn.fire(Event{Kind: protocol.EventDispose})
	b.logger.Info("Disposed route", zap.String("route", name))
	return true
}
