package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrPortRangeExhausted is wrapped by PortRangeError.
	ErrPortRangeExhausted = errors.New("bridge: port range exhausted")
	// ErrRouteNotFound is returned for route names that are not live.
	ErrRouteNotFound = errors.New("bridge: route not found")
	// ErrRouteExists is returned when adding a route whose name is live.
	ErrRouteExists = errors.New("bridge: route already exists")
	// ErrRouteDisposed completes connector calls that were waiting for a
	// socket when their route was disposed.
	ErrRouteDisposed = errors.New("bridge: route disposed")
	// ErrBridgeClosed is returned once Close has run.
	ErrBridgeClosed = errors.New("bridge: closed")
	// ErrInvalidRouteName is returned for names that cannot be used in a URL path segment.
	ErrInvalidRouteName = errors.New("bridge: invalid route name")

	errSocketClosed = errors.New("socket closed")
)

// PortRangeError reports that every port in [Min, Max] on Host was taken.
type PortRangeError struct {
	Host string
	Min  int
	Max  int
}

func (e *PortRangeError) Error() string {
	return fmt.Sprintf("bridge: all ports in use on %s (%d~%d)", e.Host, e.Min, e.Max)
}

func (e *PortRangeError) Unwrap() error { return ErrPortRangeExhausted }

// TransportError is one failed leg of a fan-out send. It is logged and
// counted, never returned: connector calls report it as a false result.
type TransportError struct {
	Socket string
	Event  string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bridge: emit %s to socket %s: %v", e.Event, e.Socket, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
