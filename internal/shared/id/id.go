// Package id provides identifiers for bridge sockets and routes.
//
// Socket ids are prefixed ULIDs: unique for the lifetime of the process and
// sortable by connection time, which keeps interleaved socket logs readable.
// Route names are normally chosen by the editor; when it passes none a
// random UUID-based name is generated instead.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SocketID identifies one WebSocket connection.
type SocketID string

// RouteName identifies a webview route.
type RouteName string

const (
	SocketPrefix = "sock"
	RoutePrefix  = "webview"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand. The
// monotonic reader keeps ids strictly increasing within one millisecond.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSocketID generates a new socket connection id.
func NewSocketID() SocketID {
	return SocketID(Default().GenerateWithPrefix(SocketPrefix))
}

// NewRouteName generates a random route name.
func NewRouteName() RouteName {
	return RouteName(RoutePrefix + "-" + uuid.NewString())
}

func (id SocketID) String() string { return string(id) }
func (r RouteName) String() string { return string(r) }

// ConnectedAt extracts the connection time from a socket id.
func (id SocketID) ConnectedAt() (time.Time, error) {
	raw, ok := strings.CutPrefix(string(id), SocketPrefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("socket id %q has no %s prefix", id, SocketPrefix)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// ValidRouteName reports whether name can be used as a single URL path
// segment once escaped.
func ValidRouteName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 256 {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
