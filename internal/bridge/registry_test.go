package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/webview/internal/testutil"
)

func TestSocketRegistry(t *testing.T) {
	r := NewSocketRegistry()
	a := testutil.NewFakeSocket("a")
	b := testutil.NewFakeSocket("b")

	assert.Equal(t, 1, r.Register("preview", a))
	assert.Equal(t, 2, r.Register("preview", b))
	assert.Equal(t, 2, r.Register("preview", b), "re-register keeps the set")
	assert.Equal(t, 1, r.Register("other", testutil.NewFakeSocket("c")))
	assert.Equal(t, 3, r.Total())

	socks := r.Get("preview")
	if assert.Len(t, socks, 2) {
		assert.Equal(t, "a", socks[0].ID())
		assert.Equal(t, "b", socks[1].ID())
	}

	live, removed := r.Unregister("preview", "a")
	assert.Equal(t, 1, live)
	assert.True(t, removed)

	live, removed = r.Unregister("preview", "a")
	assert.Equal(t, 1, live)
	assert.False(t, removed, "second unregister is a no-op")

	live, removed = r.Unregister("preview", "b")
	assert.Equal(t, 0, live)
	assert.True(t, removed)
	assert.Empty(t, r.Get("preview"))

	live, removed = r.Unregister("missing", "b")
	assert.Equal(t, 0, live)
	assert.False(t, removed)
}

func TestSocketRegistryUnregisterAll(t *testing.T) {
	r := NewSocketRegistry()
	r.Register("preview", testutil.NewFakeSocket("a"))
	r.Register("preview", testutil.NewFakeSocket("b"))

	dropped := r.UnregisterAll("preview")
	assert.Len(t, dropped, 2)
	assert.Equal(t, 0, r.Count("preview"))
	assert.Empty(t, r.UnregisterAll("preview"))
}
