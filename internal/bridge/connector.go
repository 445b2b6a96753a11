package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
)

// EventUnregister is delivered to subscribers when a socket of the route
// disconnects. It never travels over the wire.
const EventUnregister = "unregister"

// Event is an inbound event of one route.
type Event struct {
	Route string
	// Kind is one of protocol.EventRegister, EventUnregister,
	// protocol.EventDispose, protocol.EventPostMessage,
	// protocol.EventSetState or protocol.EventVisible.
	Kind string
	// Sockets is the live socket count after register and unregister.
	Sockets int
	// Visible is set for protocol.EventVisible.
	Visible bool
	// Data is the postMessage payload or the new state.
	Data json.RawMessage
}

// RouteState is the lifecycle state of a route.
type RouteState int

const (
	// StateUnregistered: no socket has registered yet.
	StateUnregistered RouteState = iota
	// StateActive: at least one socket is registered.
	StateActive
	// StateInactive: every socket disconnected, the route still exists.
	StateInactive
	// StateDisposed is terminal.
	StateDisposed
)

func (s RouteState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Connector is the editor-side handle of one route. It holds no sockets;
// every send looks the route's sockets up in the registry, so it survives
// reconnects unchanged.
//
// Sends suspend until the route has at least one socket. Disposing the
// route releases every suspended send with ErrRouteDisposed.
type Connector struct {
	route    string
	bridge   *Bridge
	registry *SocketRegistry
	logger   *logging.Logger

	mu        sync.Mutex
	ready     chan struct{}       // closed while the route has sockets; Protected by mu
	done      chan struct{}       // closed on dispose
	disposed  bool                // Protected by mu
	sawSocket bool                // Protected by mu
	subs      map[int]func(Event) // Protected by mu
	nextSub   int                 // Protected by mu
}

func newConnector(b *Bridge, route string) *Connector {
	return &Connector{
		route:    route,
		bridge:   b,
		registry: b.sockets,
		logger:   b.logger.Route(route),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		subs:     make(map[int]func(Event)),
	}
}

// RouteName returns the route this connector talks to.
func (c *Connector) RouteName() string {
	return c.route
}

// State returns the route's lifecycle state.
func (c *Connector) State() RouteState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.disposed:
		return StateDisposed
	case c.registry.Count(c.route) > 0:
		return StateActive
	case c.sawSocket:
		return StateInactive
	default:
		return StateUnregistered
	}
}

// Done is closed when the route is disposed.
func (c *Connector) Done() <-chan struct{} {
	return c.done
}

func (c *Connector) disposedNow() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Subscribe registers fn for the route's inbound events and returns a
// function that removes it. fn runs on the goroutine reading the socket
// that produced the event, in the order the socket delivered them; it must
// not block on sends that wait for a socket.
func (c *Connector) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// SetHTML replaces the page content in every tab of the route.
func (c *Connector) SetHTML(ctx context.Context, html string) error {
	_, err := c.broadcast(ctx, protocol.EventHTML, html)
	return err
}

// SetTitle updates the title of the route and of every open tab.
func (c *Connector) SetTitle(ctx context.Context, title string) error {
	c.bridge.routes.SetTitle(c.route, title)
	_, err := c.broadcast(ctx, protocol.EventTitle, title)
	return err
}

// SetIconPath pushes the panel icon to every tab.
func (c *Connector) SetIconPath(ctx context.Context, paths protocol.IconPaths) error {
	_, err := c.broadcast(ctx, protocol.EventIconPath, paths)
	return err
}

// PostMessage delivers msg to every tab. It reports true only if every
// socket accepted the message.
func (c *Connector) PostMessage(ctx context.Context, msg any) (bool, error) {
	return c.broadcast(ctx, protocol.EventPostMessage, msg)
}

// Reveal asks every tab to draw attention to itself, optionally opening
// the route URL externally first.
func (c *Connector) Reveal(ctx context.Context, openURL bool) (bool, error) {
	if openURL {
		if err := c.bridge.OpenByRouteName(c.route); err != nil {
			c.logger.Warn("Failed to open route", zap.Error(err))
		}
	}
	return c.broadcast(ctx, protocol.EventReveal, nil)
}

// Dispose tells every tab to close and removes the route. Calling it more
// than once is a no-op.
func (c *Connector) Dispose() {
	c.bridge.removeAndDispose(c.route, nil)
}

// sockets returns the route's sockets, suspending until one registers.
func (c *Connector) sockets(ctx context.Context) ([]Socket, error) {
	for {
		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			return nil, ErrRouteDisposed
		}
		if socks := c.registry.Get(c.route); len(socks) > 0 {
			c.mu.Unlock()
			return socks, nil
		}
		ready := c.ready
		c.mu.Unlock()

		select {
		case <-ready:
		case <-c.done:
			return nil, ErrRouteDisposed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// broadcast emits event to every socket of the route. Failed legs are
// logged and make the result false; successful legs are not rolled back.
func (c *Connector) broadcast(ctx context.Context, event string, data any) (bool, error) {
	socks, err := c.sockets(ctx)
	if err != nil {
		return false, err
	}

	ok := true
	for _, s := range socks {
		if err := s.Emit(event, data); err != nil {
			ok = false
			c.bridge.metrics.RecordSendFailure(event)
			c.logger.Debug("Send failed",
				zap.Error(&TransportError{Socket: s.ID(), Event: event, Err: err}))
			continue
		}
		c.bridge.metrics.RecordWSMessage("out", event)
		c.logger.Debug("Server "+event, zap.String("socket", s.ID()))
	}
	return ok, nil
}

// attach registers s and wakes suspended sends on the first socket.
func (c *Connector) attach(s Socket) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return 0, ErrRouteDisposed
	}
	n := c.registry.Register(c.route, s)
	if n == 1 {
		select {
		case <-c.ready:
		default:
			close(c.ready)
		}
	}
	c.sawSocket = true
	return n, nil
}

// detach unregisters the socket. removed is false if it was already gone.
func (c *Connector) detach(socketID string) (live int, removed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return 0, false
	}
	live, removed = c.registry.Unregister(c.route, socketID)
	if removed && live == 0 {
		c.ready = make(chan struct{})
	}
	return live, removed
}

// teardown marks the connector disposed, releases waiters and returns the
// sockets that were registered. It reports false if already disposed.
func (c *Connector) teardown() ([]Socket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, false
	}
	c.disposed = true
	close(c.done)
	return c.registry.UnregisterAll(c.route), true
}

// fire delivers ev to the subscribers registered at call time.
func (c *Connector) fire(ev Event) {
	ev.Route = c.route

	c.mu.Lock()
	if c.disposed && ev.Kind != protocol.EventDispose {
		c.mu.Unlock()
		return
	}
	handlers := make([]func(Event), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			handlers = append(handlers, fn)
		}
	}
	if ev.Kind == protocol.EventDispose {
		c.subs = make(map[int]func(Event))
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
