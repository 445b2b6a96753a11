package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteTable(t *testing.T) {
	table := NewRouteTable()
	binding := Binding{Host: "localhost", Port: 9000}

	route, err := table.Add(RouteParams{
		Name:               "preview",
		Title:              "Preview",
		LocalResourceRoots: []string{"/work/site"},
	}, binding)
	require.NoError(t, err)
	assert.Equal(t, binding, route.Binding())
	assert.Equal(t, "http://localhost:9000/webview/preview", route.URL())

	_, err = table.Add(RouteParams{Name: "preview"}, binding)
	assert.ErrorIs(t, err, ErrRouteExists)

	found, ok := table.Lookup("preview")
	require.True(t, ok)
	assert.Equal(t, route, found)

	assert.True(t, table.SetTitle("preview", "Renamed"))
	assert.False(t, table.SetTitle("missing", "x"))
	found, _ = table.Lookup("preview")
	assert.Equal(t, "Renamed", found.Title)

	removed, ok := table.Remove("preview")
	assert.True(t, ok)
	assert.Equal(t, "preview", removed.Name)
	_, ok = table.Remove("preview")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}

func TestRouteTableRoots(t *testing.T) {
	table := NewRouteTable()
	binding := Binding{Host: "localhost", Port: 9000}

	_, _ = table.Add(RouteParams{Name: "a", LocalResourceRoots: []string{"/work/b", "/work/a"}}, binding)
	_, _ = table.Add(RouteParams{Name: "b", LocalResourceRoots: []string{"/work/a", "/srv"}}, binding)

	assert.Equal(t, []string{"/srv", "/work/a", "/work/b"}, table.Roots())

	table.Remove("a")
	assert.Equal(t, []string{"/srv", "/work/a"}, table.Roots())
}

func TestRouteCopiesAreIsolated(t *testing.T) {
	table := NewRouteTable()
	roots := []string{"/work"}
	route, _ := table.Add(RouteParams{Name: "a", LocalResourceRoots: roots}, Binding{Host: "h", Port: 1})

	roots[0] = "/changed"
	route.LocalResourceRoots[0] = "/mutated"

	found, _ := table.Lookup("a")
	assert.Equal(t, []string{"/work"}, found.LocalResourceRoots)
}

func TestRouteURLEscapesName(t *testing.T) {
	route := Route{Name: "my page", Host: "localhost", Port: 9000}
	assert.Equal(t, "http://localhost:9000/webview/my%20page", route.URL())
}
