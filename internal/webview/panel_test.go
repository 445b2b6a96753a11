package webview

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webview/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
	"github.com/GriffinCanCode/AgentOS/webview/internal/testutil"
)

func setupManager(t *testing.T, opener bridge.URLOpener) (*Manager, *bridge.Bridge) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opts := bridge.DefaultOptions()
	opts.Host = "127.0.0.1"
	opts.Listen = func(network, _ string) (net.Listener, error) {
		return net.Listen(network, "127.0.0.1:0")
	}
	if opener == nil {
		opener = testutil.NewMockOpener(t)
	}
	opts.Opener = opener

	b, err := bridge.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Close(ctx)
	})
	return NewManager(b, nil), b
}

// connectTab dials the bridge and registers routeName like a browser tab.
func connectTab(t *testing.T, b *bridge.Bridge, routeName string) *websocket.Conn {
	t.Helper()
	binding, ok := b.Binding()
	require.True(t, ok)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+binding.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	tabSend(t, ws, protocol.EventRegister, routeName)
	return ws
}

func tabSend(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := protocol.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

func tabReceive(t *testing.T, ws *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(frame)
	require.NoError(t, err)
	return env
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 5*time.Second, 10*time.Millisecond, msg)
}

func TestCreateWebviewPanel(t *testing.T) {
	opener := new(testutil.MockOpener)
	opener.On("Open", mock.Anything).Return(nil)
	m, _ := setupManager(t, opener)

	panel, err := m.CreateWebviewPanel(context.Background(), "markdown.preview", "README.md",
		OpenOptions{OpenURL: true, RouteName: "preview"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "markdown.preview", panel.ViewType())
	assert.Equal(t, "preview", panel.RouteName())
	assert.Equal(t, "README.md", panel.Title())
	assert.False(t, panel.Active())
	assert.False(t, panel.Visible())
	opener.AssertCalled(t, "Open", panel.URL())

	_, err = m.CreateWebviewPanel(context.Background(), "x", "dup", OpenOptions{RouteName: "preview"}, Options{})
	assert.ErrorIs(t, err, bridge.ErrRouteExists)
	assert.Equal(t, 1, m.Len())
	opener.AssertNumberOfCalls(t, "Open", 1)
}

func TestAsWebviewURI(t *testing.T) {
	m, b := setupManager(t, nil)
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte("png"), 0o644))

	panel, err := m.CreateWebviewPanel(context.Background(), "v", "t", OpenOptions{},
		Options{LocalResourceRoots: []string{root}})
	require.NoError(t, err)

	uri, err := panel.AsWebviewURI(filepath.Join(root, "logo.png"))
	require.NoError(t, err)
	local, err := b.ParseResourceURI(uri)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "logo.png"), local)

	_, err = panel.AsWebviewURI(filepath.Join(outside, "secret.txt"))
	assert.ErrorIs(t, err, ErrOutsideResourceRoots)

	noRoots, err := m.CreateWebviewPanel(context.Background(), "v", "t", OpenOptions{}, Options{})
	require.NoError(t, err)
	_, err = noRoots.AsWebviewURI(filepath.Join(root, "logo.png"))
	assert.ErrorIs(t, err, ErrOutsideResourceRoots)
}

func TestViewStateFollowsTabs(t *testing.T) {
	m, b := setupManager(t, nil)
	panel, err := m.CreateWebviewPanel(context.Background(), "v", "t", OpenOptions{RouteName: "preview"}, Options{})
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		changes int
	)
	panel.OnDidChangeViewState(func(p *Panel) {
		mu.Lock()
		changes++
		mu.Unlock()
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return changes
	}

	ws := connectTab(t, b, "preview")
	eventually(t, func() bool { return panel.Active() && panel.Visible() }, "tab never registered")
	assert.Equal(t, 1, count())

	tabSend(t, ws, protocol.EventVisible, false)
	eventually(t, func() bool { return !panel.Visible() }, "visibility not applied")
	assert.True(t, panel.Active())
	assert.Equal(t, 2, count())

	tabSend(t, ws, protocol.EventSetState, map[string]int{"page": 2})
	eventually(t, func() bool { return count() == 3 }, "setState did not fire")

	ws.Close()
	eventually(t, func() bool { return !panel.Active() }, "disconnect not applied")
	assert.False(t, panel.Visible())
	assert.False(t, panel.Disposed(), "disconnect is not disposal")
}

func TestMessagesBothWays(t *testing.T) {
	m, b := setupManager(t, nil)
	panel, err := m.CreateWebviewPanel(context.Background(), "v", "t", OpenOptions{RouteName: "preview"}, Options{})
	require.NoError(t, err)

	received := make(chan json.RawMessage, 1)
	panel.OnDidReceiveMessage(func(msg json.RawMessage) { received <- msg })

	ws := connectTab(t, b, "preview")

	ok, err := panel.PostMessage(context.Background(), map[string]string{"type": "render"})
	require.NoError(t, err)
	assert.True(t, ok)
	env := tabReceive(t, ws)
	assert.Equal(t, protocol.EventPostMessage, env.Event)
	assert.JSONEq(t, `{"type":"render"}`, string(env.Data))

	tabSend(t, ws, protocol.EventPostMessage, map[string]string{"type": "clicked"})
	select {
	case msg := <-received:
		assert.JSONEq(t, `{"type":"clicked"}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	require.NoError(t, panel.SetHTML(context.Background(), "<h1>hi</h1>"))
	assert.Equal(t, protocol.EventHTML, tabReceive(t, ws).Event)

	require.NoError(t, panel.SetIconPath(context.Background(), protocol.IconPaths{Light: "l", Dark: "d"}))
	assert.Equal(t, protocol.EventIconPath, tabReceive(t, ws).Event)
	icon, ok := panel.IconPath()
	assert.True(t, ok)
	assert.Equal(t, "d", icon.Dark)

	ok, err = panel.Reveal(context.Background(), RevealOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, protocol.EventReveal, tabReceive(t, ws).Event)
}

func TestSetTitleWithoutTab(t *testing.T) {
	m, b := setupManager(t, nil)
	panel, err := m.CreateWebviewPanel(context.Background(), "v", "Old", OpenOptions{RouteName: "preview"}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = panel.SetTitle(ctx, "New")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, "New", panel.Title())
	route, ok := b.Lookup("preview")
	require.True(t, ok)
	assert.Equal(t, "New", route.Title, "the page renders the latest title")
}

func TestTabCloseDisposesPanel(t *testing.T) {
	m, b := setupManager(t, nil)
	panel, err := m.CreateWebviewPanel(context.Background(), "v", "t", OpenOptions{RouteName: "preview"}, Options{})
	require.NoError(t, err)

	disposed := make(chan struct{})
	panel.OnDidDispose(func() { close(disposed) })

	ws := connectTab(t, b, "preview")
	eventually(t, panel.Active, "tab never registered")
	tabSend(t, ws, protocol.EventDispose, nil)

	select {
	case <-disposed:
	case <-time.After(5 * time.Second):
		t.Fatal("panel not disposed")
	}
	assert.True(t, panel.Disposed())
	eventually(t, func() bool { return m.Len() == 0 }, "manager kept the panel")

	_, err = panel.PostMessage(context.Background(), "late")
	assert.ErrorIs(t, err, bridge.ErrRouteDisposed)
}

func TestManagerListAndDisposeAll(t *testing.T) {
	m, _ := setupManager(t, nil)
	ctx := context.Background()

	var disposed int
	for _, name := range []string{"b-route", "a-route"} {
		p, err := m.CreateWebviewPanel(ctx, "v", "Title "+name, OpenOptions{RouteName: name}, Options{})
		require.NoError(t, err)
		p.OnDidDispose(func() { disposed++ })
	}

	items := m.List()
	require.Len(t, items, 2)
	assert.Equal(t, "a-route", items[0].RouteName)
	assert.Equal(t, "Title a-route", items[0].Title)
	assert.Contains(t, items[0].URL, "/webview/a-route")

	u, err := m.URL("b-route")
	require.NoError(t, err)
	assert.Equal(t, items[1].URL, u)

	assert.True(t, m.Close("b-route"))
	assert.False(t, m.Close("b-route"))
	assert.Equal(t, 1, m.Len())

	m.DisposeAll()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 2, disposed)
	assert.Empty(t, m.List())
}
