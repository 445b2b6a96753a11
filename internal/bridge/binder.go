package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/monitoring"
)

// ListenFunc opens a listener. net.Listen in production.
type ListenFunc func(network, address string) (net.Listener, error)

// Binding is the address the bridge serves on.
type Binding struct {
	Host string
	Port int
}

// Addr returns host:port.
func (b Binding) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// Origin returns the http origin of the binding.
func (b Binding) Origin() string {
	return "http://" + b.Addr()
}

// PortBinder finds a free port in a range and listens on it. Once bound it
// keeps returning the same binding.
type PortBinder struct {
	listen  ListenFunc
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	listener net.Listener // Protected by mu
	binding  Binding      // Protected by mu
}

// NewPortBinder creates a binder. A nil listen uses net.Listen.
func NewPortBinder(listen ListenFunc, logger *logging.Logger) *PortBinder {
	if listen == nil {
		listen = net.Listen
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PortBinder{listen: listen, logger: logger}
}

// WithMetrics counts every listen attempt.
func (b *PortBinder) WithMetrics(metrics *monitoring.Metrics) *PortBinder {
	b.metrics = metrics
	return b
}

// Bind listens on the first free port in [minPort, maxPort]. Only "address
// in use" moves on to the next port; any other listen error is returned
// as is. An exhausted range yields a *PortRangeError.
func (b *PortBinder) Bind(ctx context.Context, host string, minPort, maxPort int) (Binding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listener != nil {
		return b.binding, nil
	}

	for port := minPort; port <= maxPort; port++ {
		if err := ctx.Err(); err != nil {
			return Binding{}, err
		}
		if b.metrics != nil {
			b.metrics.IncBindAttempts()
		}

		ln, err := b.listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			if addrInUse(err) {
				b.logger.Info("Port is in use, trying another one", zap.Int("port", port))
				continue
			}
			return Binding{}, fmt.Errorf("bridge: listen on %s:%d: %w", host, port, err)
		}

		bound := port
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok && tcp.Port != 0 {
			bound = tcp.Port
		}
		b.listener = ln
		b.binding = Binding{Host: host, Port: bound}
		b.logger.Info("Server started", zap.String("addr", b.binding.Addr()))
		return b.binding, nil
	}

	return Binding{}, &PortRangeError{Host: host, Min: minPort, Max: maxPort}
}

// Binding returns the current binding and whether Bind has succeeded.
func (b *PortBinder) Binding() (Binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binding, b.listener != nil
}

// Listener returns the bound listener, or nil before Bind.
func (b *PortBinder) Listener() net.Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listener
}

func addrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// WSAEADDRINUSE does not map onto syscall.EADDRINUSE on windows.
	msg := err.Error()
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "Only one usage of each socket address")
}
