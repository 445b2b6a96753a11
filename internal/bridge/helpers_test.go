package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestBridge creates a bridge listening on an ephemeral loopback port.
func newTestBridge(t *testing.T, mutate ...func(*Options)) *Bridge {
	t.Helper()

	opts := DefaultOptions()
	opts.Host = "127.0.0.1"
	opts.Listen = func(network, _ string) (net.Listener, error) {
		return net.Listen(network, "127.0.0.1:0")
	}
	opts.Opener = testutil.NewMockOpener(t)
	for _, fn := range mutate {
		fn(&opts)
	}

	b, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Close(ctx)
	})
	return b
}

func addRoute(t *testing.T, b *Bridge, params RouteParams) (Route, *Connector) {
	t.Helper()
	route, conn, err := b.Add(context.Background(), params)
	require.NoError(t, err)
	return route, conn
}

// attachFake registers a fake socket the way the read loop does.
func attachFake(t *testing.T, b *Bridge, route, socketID string) *testutil.FakeSocket {
	t.Helper()
	sock := testutil.NewFakeSocket(socketID)
	_, ok := b.register(route, sock, logging.NewNop())
	require.True(t, ok, "register %s on %s", socketID, route)
	return sock
}

func detachFake(b *Bridge, conn *Connector, sock *testutil.FakeSocket) {
	b.unregister(conn, sock, logging.NewNop())
}

// result of a connector call run in the background.
type result struct {
	ok  bool
	err error
}

func goCall(fn func() (bool, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		ok, err := fn()
		ch <- result{ok: ok, err: err}
	}()
	return ch
}

func waitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("connector call did not complete")
		return result{}
	}
}

func assertPending(t *testing.T, ch <-chan result) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("call completed early: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}
