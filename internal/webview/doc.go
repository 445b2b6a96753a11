// Package webview is the editor-facing API of the bridge.
//
// A Manager creates panels with CreateWebviewPanel. Each Panel owns one
// bridge route: setters push to the panel's browser tabs, OnDidReceiveMessage
// and OnDidChangeViewState report what the tabs do, and OnDidDispose fires
// when either side closes the panel.
//
// Example Usage:
//
//	manager := webview.NewManager(b, logger)
//	panel, err := manager.CreateWebviewPanel(ctx, "markdown.preview", "README.md",
//	    webview.OpenOptions{OpenURL: true},
//	    webview.Options{LocalResourceRoots: []string{workspace}})
//	panel.OnDidReceiveMessage(func(msg json.RawMessage) { ... })
//	err = panel.SetHTML(ctx, html)
package webview
