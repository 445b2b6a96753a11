package bridge

import (
	"net/url"
	"sort"
	"sync"
)

// RouteParams describe a route to add.
type RouteParams struct {
	// Name is the route name. A name is generated when empty.
	Name  string
	Title string
	// LocalResourceRoots are directories the route's page may load
	// resources from.
	LocalResourceRoots []string
}

// Route is a live route. Host and Port are copied from the bridge binding
// when the route is added.
type Route struct {
	Name               string
	Title              string
	LocalResourceRoots []string
	Host               string
	Port               int
}

// Binding returns the address the route is served on.
func (r Route) Binding() Binding {
	return Binding{Host: r.Host, Port: r.Port}
}

// URL returns the address of the route's page.
func (r Route) URL() string {
	return r.Binding().Origin() + "/webview/" + url.PathEscape(r.Name)
}

// RouteTable maps route names to routes. It is the only writer of route
// metadata.
type RouteTable struct {
	mu     sync.RWMutex
	routes map[string]*Route // Protected by mu
}

// NewRouteTable creates an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[string]*Route)}
}

// Add stamps params with binding and stores the route.
func (t *RouteTable) Add(params RouteParams, binding Binding) (Route, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.routes[params.Name]; exists {
		return Route{}, ErrRouteExists
	}
	route := &Route{
		Name:               params.Name,
		Title:              params.Title,
		LocalResourceRoots: append([]string(nil), params.LocalResourceRoots...),
		Host:               binding.Host,
		Port:               binding.Port,
	}
	t.routes[params.Name] = route
	return route.clone(), nil
}

// Remove deletes the route and returns it.
func (t *RouteTable) Remove(name string) (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	route, ok := t.routes[name]
	if !ok {
		return Route{}, false
	}
	delete(t.routes, name)
	return route.clone(), true
}

// Lookup returns the route with the given name.
func (t *RouteTable) Lookup(name string) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	route, ok := t.routes[name]
	if !ok {
		return Route{}, false
	}
	return route.clone(), true
}

// SetTitle updates the title rendered in the route's page.
func (t *RouteTable) SetTitle(name, title string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	route, ok := t.routes[name]
	if ok {
		route.Title = title
	}
	return ok
}

// List returns all routes ordered by name.
func (t *RouteTable) List() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Route, 0, len(t.routes))
	for _, route := range t.routes {
		out = append(out, route.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Roots returns the union of the resource roots of all routes.
func (t *RouteTable) Roots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	var roots []string
	for _, route := range t.routes {
		for _, root := range route.LocalResourceRoots {
			if _, dup := seen[root]; dup {
				continue
			}
			seen[root] = struct{}{}
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)
	return roots
}

// Len returns the number of routes.
func (t *RouteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

func (r *Route) clone() Route {
	c := *r
	c.LocalResourceRoots = append([]string(nil), r.LocalResourceRoots...)
	return c
}
