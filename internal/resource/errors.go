package resource

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrForbidden is returned for paths outside the allow-list. No
	// filesystem access happens before it is returned.
	ErrForbidden = errors.New("resource: forbidden")
	// ErrNotResource is returned by Resolve for URLs that do not address
	// the bridge's resource endpoint.
	ErrNotResource = errors.New("resource: not a resource request")
	// ErrNotBound is returned when building URIs before the bridge is bound.
	ErrNotBound = errors.New("resource: bridge address not bound yet")

	errIsDirectory = errors.New("is a directory")
)

// IOError reports a failed read of an authorized path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("resource: read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Missing reports whether the file is absent or unreadable, as opposed to
// an unexpected I/O failure.
func (e *IOError) Missing() bool {
	return errors.Is(e.Err, fs.ErrNotExist) ||
		errors.Is(e.Err, fs.ErrPermission) ||
		errors.Is(e.Err, errIsDirectory)
}
