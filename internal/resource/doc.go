// Package resource implements the bridge's filesystem authorization
// boundary.
//
// Pages may only load local files through URLs of the form
//
//	http://<host>:<port>/resources/<escaped absolute path>
//
// and only when the path is on the allow-list:
//   - explicitly exposed by editor code through Guard.URI, or
//   - textually prefixed by a resource root of a live route.
//
// Explicitly exposed paths are never removed: once a URI has been handed
// out, the file stays servable until the process exits, even after the
// route that exposed it is disposed. Roots follow the live routes.
//
// The allow-list check always runs before any filesystem access, so a
// forbidden request cannot probe for file existence.
package resource
