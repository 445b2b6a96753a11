// Package protocol defines the frames exchanged between the bridge and
// browser pages over WebSocket.
//
// Every frame is a JSON object {"event": name, "data": payload}. Payloads
// are opaque JSON; the bridge never interprets postMessage or setState
// bodies, it only forwards them.
//
// Message Types (Browser → Bridge):
//   - register: route name the page belongs to
//   - dispose: the user closed the page
//   - postMessage: payload for the editor
//   - setState: state snapshot to restore on reload
//   - visible: page visibility changed
//
// Message Types (Bridge → Browser):
//   - html, title, iconPath: panel content
//   - postMessage: payload from the editor
//   - reveal: draw attention to the page
//   - dispose: close the page
package protocol
