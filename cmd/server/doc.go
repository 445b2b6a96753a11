// Package main runs a standalone webview bridge with a single panel.
//
// The server binds the first free port in the configured range, opens the
// panel's page in a browser and forwards messages posted by the page to the
// log. Closing the tab disposes the panel and stops the process.
//
// Usage:
//
//	# Demo page
//	./server
//
//	# Serve a page and re-send it on every save
//	./server --html ./page.html --watch --root ./assets
//
//	# Development mode (console logs, socket lifecycle at info)
//	./server --dev --debug
//
// Configuration is read from WEBVIEW_* environment variables, then from the
// file named by --config or WEBVIEW_CONFIG.
//
// Signals:
//   - SIGINT, SIGTERM: dispose the panel and shut down
package main
