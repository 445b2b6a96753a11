package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webview/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func loopbackListener(o *bridge.Options) {
	o.Host = "127.0.0.1"
	o.Listen = func(network, _ string) (net.Listener, error) {
		return net.Listen(network, "127.0.0.1:0")
	}
}

func TestAppServesPanel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disposed := make(chan struct{})
	var once sync.Once
	onDispose := func() { once.Do(func() { close(disposed) }) }

	a, err := newApp(ctx, flags{title: "CLI", route: "cli", viewType: "test.view"},
		config.Default(), logging.NewNop(), onDispose, loopbackListener)
	require.NoError(t, err)
	defer a.shutdown()

	binding, ok := a.bridge.Binding()
	require.True(t, ok)
	assert.Equal(t, binding.Origin()+"/webview/cli", a.panel.URL())

	resp, err := http.Get(a.panel.URL())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	go pushHTML(ctx, a.panel, "", logging.NewNop())

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+binding.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	write := func(event string, data any) {
		frame, err := protocol.Encode(event, data)
		require.NoError(t, err)
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
	}
	write(protocol.EventRegister, "cli")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventHTML, env.Event)
	var html string
	require.NoError(t, env.Bind(&html))
	assert.Equal(t, demoHTML, html)

	// Closing the tab disposes the panel, which stops the process.
	write(protocol.EventDispose, nil)
	select {
	case <-disposed:
	case <-time.After(5 * time.Second):
		t.Fatal("panel dispose did not reach the app")
	}
	assert.Zero(t, a.manager.Len())
}

func TestNewAppRejectsBadRoute(t *testing.T) {
	_, err := newApp(context.Background(), flags{route: "a/b"},
		config.Default(), logging.NewNop(), nil, loopbackListener)
	assert.ErrorIs(t, err, bridge.ErrInvalidRouteName)
}

func TestResourceRoots(t *testing.T) {
	dir := t.TempDir()

	roots, err := resourceRoots(flags{html: filepath.Join(dir, "page.html")})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, roots)

	roots, err = resourceRoots(flags{})
	require.NoError(t, err)
	assert.Empty(t, roots)

	roots, err = resourceRoots(flags{html: "page.html", roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, roots)
}

func TestLoadConfigFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge:\n  min_port: 9500\n  max_port: 9510\n"), 0o644))

	cfg, err := loadConfig(flags{configFile: path, debug: true, dev: true})
	require.NoError(t, err)
	assert.Equal(t, 9500, cfg.Bridge.MinPort)
	assert.Equal(t, 9510, cfg.Bridge.MaxPort)
	assert.True(t, cfg.Bridge.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestFileWatcherSettled(t *testing.T) {
	w := &fileWatcher{path: "/tmp/page.html", logger: logging.NewNop(), debounce: 100 * time.Millisecond}

	w.handleEvent(fsnotify.Event{Name: "/tmp/other.html", Op: fsnotify.Write})
	assert.False(t, w.settled(time.Now().Add(time.Second)))

	w.handleEvent(fsnotify.Event{Name: "/tmp/page.html", Op: fsnotify.Chmod})
	assert.False(t, w.settled(time.Now().Add(time.Second)))

	w.handleEvent(fsnotify.Event{Name: "/tmp/page.html", Op: fsnotify.Write})
	assert.False(t, w.settled(time.Now()))
	assert.True(t, w.settled(time.Now().Add(time.Second)))
	assert.False(t, w.settled(time.Now().Add(time.Second)), "a change is reported once")
}

func TestFileWatcherRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>one</p>"), 0o644))

	w, err := newFileWatcher(path, logging.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	go w.Run(ctx, func() { changes.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("<p>two</p>"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("<p>three</p>"), 0o644))

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
}
