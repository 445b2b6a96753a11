package bridge

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
	"github.com/GriffinCanCode/AgentOS/webview/internal/shared/id"
)

// checkOrigin accepts tabs served by this bridge and non-browser clients.
// Pages of other local servers are rejected even on loopback.
func (b *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if binding, ok := b.Binding(); ok && strings.EqualFold(origin, binding.Origin()) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// handleSocket upgrades the request and reads events until the tab goes
// away.
func (b *Bridge) handleSocket(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sock := newWSSocket(id.NewSocketID().String(), conn)
	if !b.track(sock) {
		sock.Close()
		return
	}
	go sock.keepalive()

	b.readLoop(sock)
}

func (b *Bridge) track(s *wsSocket) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.conns[s.id] = s
	return true
}

func (b *Bridge) untrack(s *wsSocket) {
	b.mu.Lock()
	delete(b.conns, s.id)
	b.mu.Unlock()
}

// readLoop dispatches the socket's events in arrival order. A socket is
// inert until it registers a route.
func (b *Bridge) readLoop(sock *wsSocket) {
	var (
		route string
		conn  *Connector
		log   = b.logger.Socket("", sock.ID())
	)

	defer func() {
		sock.Close()
		b.untrack(sock)
		if conn != nil {
			b.unregister(conn, sock, log)
		}
	}()

	for {
		frame, err := sock.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		env, err := protocol.Decode(frame)
		if err != nil {
			log.Debug("Dropping malformed frame", zap.Error(err))
			continue
		}
		b.metrics.RecordWSMessage("in", env.Event)

		// The editor may have disposed the route since the last frame.
		if conn != nil && conn.disposedNow() {
			route, conn = "", nil
		}

		if env.Event == protocol.EventRegister {
			var name string
			if err := env.Bind(&name); err != nil {
				log.Debug("Dropping register without route", zap.Error(err))
				continue
			}
			if conn != nil {
				if name == route {
					continue
				}
				b.unregister(conn, sock, log)
			}
			route, conn = "", nil
			log = b.logger.Socket(name, sock.ID())
			if c, ok := b.register(name, sock, log); ok {
				route, conn = name, c
			}
			continue
		}

		if conn == nil {
			log.Debug("Ignoring event from unregistered socket", zap.String("event", env.Event))
			continue
		}

		switch env.Event {
		case protocol.EventDispose:
			log.Lifecycle("Client dispose")
			b.removeAndDispose(route, sock)
			route, conn = "", nil

		case protocol.EventPostMessage:
			log.Debug("Client postMessage", zap.ByteString("message", env.Payload()))
			conn.fire(Event{Kind: protocol.EventPostMessage, Data: env.Payload()})

		case protocol.EventSetState:
			state := env.Payload()
			log.Debug("Client setState", zap.ByteString("state", state))
			b.setState(conn, state)
			conn.fire(Event{Kind: protocol.EventSetState, Data: state})

		case protocol.EventVisible:
			var visible bool
			if err := env.Bind(&visible); err != nil {
				log.Debug("Dropping malformed visible", zap.Error(err))
				continue
			}
			log.Debug("Client visible", zap.Bool("visible", visible))
			conn.fire(Event{Kind: protocol.EventVisible, Visible: visible})

		default:
			log.Debug("Ignoring unknown event", zap.String("event", env.Event))
		}
	}
}

// register attaches sock to a live route. Unknown or disposed routes get
// a dispose so the tab closes itself.
func (b *Bridge) register(name string, sock Socket, log *logging.Logger) (*Connector, bool) {
	conn, ok := b.Connector(name)
	if ok {
		n, err := conn.attach(sock)
		if err == nil {
			b.metrics.AddSockets(1)
			log.Lifecycle("Socket connected", zap.Int("sockets", n))
			conn.fire(Event{Kind: protocol.EventRegister, Sockets: n})
			return conn, true
		}
	}

	log.Debug("Register for unknown route")
	if err := sock.Emit(protocol.EventDispose, nil); err == nil {
		b.metrics.RecordWSMessage("out", protocol.EventDispose)
	}
	return nil, false
}

func (b *Bridge) unregister(conn *Connector, sock Socket, log *logging.Logger) {
	n, removed := conn.detach(sock.ID())
	if !removed {
		return
	}
	b.metrics.AddSockets(-1)
	log.Lifecycle("Socket disconnected", zap.Int("sockets", n))
	conn.fire(Event{Kind: EventUnregister, Sockets: n})
}

// setState stores the snapshot only while conn is the live connector for
// its route name, so a tab of a disposed route cannot write into a new
// route that reuses the name.
func (b *Bridge) setState(conn *Connector, state []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	route := conn.RouteName()
	if b.connectors[route] == conn {
		b.states[route] = append([]byte(nil), state...)
	}
}
