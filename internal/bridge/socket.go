package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Largest frame accepted from a tab; postMessage payloads can be big.
	maxMessageSize = 16 << 20
)

// wsSocket is a browser tab connected over WebSocket. Emit may be called
// from any goroutine; reads happen only on the connection's handler.
type wsSocket struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newWSSocket(socketID string, conn *websocket.Conn) *wsSocket {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsSocket{
		id:   socketID,
		conn: conn,
		done: make(chan struct{}),
	}
}

func (s *wsSocket) ID() string { return s.id }

// Emit writes one event frame.
func (s *wsSocket) Emit(event string, data any) error {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return errSocketClosed
	default:
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame and closes the connection. Safe to call more
// than once.
func (s *wsSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = s.conn.Close()
	})
	return err
}

// read returns the next data frame.
func (s *wsSocket) read() ([]byte, error) {
	_, frame, err := s.conn.ReadMessage()
	return frame, err
}

// keepalive pings the tab until the socket closes. A failed ping closes
// the socket, which ends the read loop.
func (s *wsSocket) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
