// Package bridge connects editor-side webview panels with browser tabs.
//
// One Bridge serves every panel ("route") of the process over a single
// HTTP and WebSocket listener. A tab opens /webview/{route}, loads the
// bootstrap script from /static/, connects to /ws and registers its route.
// From then on the route's Connector pushes html, title, icon, messages and
// reveal requests to every tab of the route, and the tab reports messages,
// state snapshots, visibility and user disposal back.
//
// Key Components:
//   - PortBinder: binds the first free port of a range, once
//   - SocketRegistry: live sockets per route, N tabs per route
//   - RouteTable: route metadata stamped with the bound address
//   - Connector: per-route handle; sends wait for the first socket
//   - Bridge: HTTP routes, WebSocket events, guarded resources
//
// Route lifecycle:
//
//	UNREGISTERED -> ACTIVE (>= 1 socket) -> INACTIVE (0 sockets) -> DISPOSED
//
// DISPOSED is terminal. Disposing a route completes every send still
// waiting for a socket with ErrRouteDisposed.
//
// Example Usage:
//
//	b, err := bridge.New(bridge.OptionsFromConfig(cfg))
//	route, conn, err := b.Add(ctx, bridge.RouteParams{Name: "preview", Title: "Preview"})
//	_ = b.OpenRoute(route)
//	err = conn.SetHTML(ctx, "<h1>hello</h1>")
//	ok, err := conn.PostMessage(ctx, map[string]any{"type": "refresh"})
//	conn.Dispose()
package bridge
