package resource

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

// PathPrefix is the URL path segment that marks resource requests.
const PathPrefix = "/resources/"

// sniffLen is how many bytes are buffered for content sniffing when the
// extension does not map to a MIME type.
const sniffLen = 3072

// FileSystem opens files for reading. OSFileSystem is used in production;
// tests substitute a recording implementation.
type FileSystem interface {
	Open(name string) (fs.File, error)
}

// OSFileSystem reads from the host filesystem.
type OSFileSystem struct{}

// Open implements FileSystem.
func (OSFileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// Guard decides which local files the bridge may serve and serves them.
//
// Two allow-lists are kept: explicit paths registered through MarkServable
// (retained for the process lifetime) and the resource roots of all live
// routes (replaced wholesale by SetRoots). A path is servable when it equals
// an explicit path or is textually prefixed by a root.
type Guard struct {
	mu       sync.RWMutex
	host     string
	port     int
	servable map[string]struct{} // Protected by mu
	roots    []string            // Protected by mu

	exclude []string
	fs      FileSystem
	goos    string
}

// Option configures a Guard.
type Option func(*Guard)

// WithFileSystem replaces the host filesystem.
func WithFileSystem(fsys FileSystem) Option {
	return func(g *Guard) { g.fs = fsys }
}

// WithExclude adds glob patterns (doublestar syntax) that are never served,
// even under a registered root.
func WithExclude(patterns ...string) Option {
	return func(g *Guard) { g.exclude = append(g.exclude, patterns...) }
}

// WithGOOS overrides the path separator rules, for tests.
func WithGOOS(goos string) Option {
	return func(g *Guard) { g.goos = goos }
}

// NewGuard creates a guard with empty allow-lists.
func NewGuard(opts ...Option) (*Guard, error) {
	g := &Guard{
		servable: make(map[string]struct{}),
		fs:       OSFileSystem{},
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, pattern := range g.exclude {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("resource: invalid exclude pattern %q", pattern)
		}
	}
	return g, nil
}

// SetBinding records the address the bridge is bound to.
func (g *Guard) SetBinding(host string, port int) {
	g.mu.Lock()
	g.host = host
	g.port = port
	g.mu.Unlock()
}

// SetRoots replaces the set of resource roots.
func (g *Guard) SetRoots(roots []string) {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		cleaned = append(cleaned, g.clean(g.absolute(root)))
	}

	g.mu.Lock()
	g.roots = cleaned
	g.mu.Unlock()
}

// Roots returns a copy of the current resource roots.
func (g *Guard) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.roots...)
}

// MarkServable adds a path to the explicit allow-list.
func (g *Guard) MarkServable(localPath string) {
	p := g.clean(g.absolute(localPath))
	g.mu.Lock()
	g.servable[p] = struct{}{}
	g.mu.Unlock()
}

// URI returns the URL under which localPath is served and marks the path
// servable. This is the only way explicit paths enter the allow-list.
func (g *Guard) URI(localPath string) (string, error) {
	g.mu.RLock()
	host, port := g.host, g.port
	g.mu.RUnlock()
	if host == "" {
		return "", ErrNotBound
	}

	p := g.clean(g.absolute(localPath))
	g.MarkServable(p)

	u := url.URL{
		Scheme:  "http",
		Host:    net.JoinHostPort(host, strconv.Itoa(port)),
		Path:    PathPrefix + p,
		RawPath: PathPrefix + url.PathEscape(p),
	}
	return u.String(), nil
}

// Resolve maps a request URL to the local path it addresses. URLs whose
// host differs from the bound host or whose path lacks the resources
// segment yield ErrNotResource.
func (g *Guard) Resolve(u *url.URL) (string, error) {
	g.mu.RLock()
	host := g.host
	g.mu.RUnlock()

	if host == "" || !strings.EqualFold(u.Hostname(), host) {
		return "", ErrNotResource
	}

	rest, ok := strings.CutPrefix(u.EscapedPath(), PathPrefix)
	if !ok || rest == "" {
		return "", ErrNotResource
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotResource, err)
	}
	return g.clean(decoded), nil
}

// Parse resolves a raw URL string, for editor code that intercepts links
// clicked inside a webview.
func (g *Guard) Parse(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotResource, err)
	}
	return g.Resolve(u)
}

// Authorize reports whether localPath may be served. It never touches the
// filesystem.
func (g *Guard) Authorize(localPath string) error {
	p := g.clean(localPath)
	if g.excluded(p) {
		return ErrForbidden
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.servable[p]; ok {
		return nil
	}
	for _, root := range g.roots {
		if strings.HasPrefix(p, root) {
			return nil
		}
	}
	return ErrForbidden
}

// Resource is an opened, authorized file.
type Resource struct {
	io.Reader
	Path        string
	ContentType string
	Size        int64

	file fs.File
}

// Close releases the underlying file.
func (r *Resource) Close() error {
	return r.file.Close()
}

// Open authorizes localPath and opens it for streaming. Forbidden paths
// fail before the filesystem is consulted.
func (g *Guard) Open(localPath string) (*Resource, error) {
	p := g.clean(localPath)
	if err := g.Authorize(p); err != nil {
		return nil, err
	}

	f, err := g.fs.Open(p)
	if err != nil {
		return nil, &IOError{Path: p, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Path: p, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &IOError{Path: p, Err: errIsDirectory}
	}

	res := &Resource{Reader: f, Path: p, Size: info.Size(), file: f}
	res.ContentType = mime.TypeByExtension(g.ext(p))
	if res.ContentType == "" {
		if err := res.sniff(); err != nil {
			f.Close()
			return nil, &IOError{Path: p, Err: err}
		}
	}
	return res, nil
}

// ReadFile returns the whole content of an authorized file.
func (g *Guard) ReadFile(localPath string) ([]byte, error) {
	res, err := g.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, &IOError{Path: res.Path, Err: err}
	}
	return data, nil
}

func (r *Resource) sniff() error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r.file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	head = head[:n]
	r.ContentType = mimetype.Detect(head).String()
	r.Reader = io.MultiReader(bytes.NewReader(head), r.file)
	return nil
}

func (g *Guard) excluded(p string) bool {
	if len(g.exclude) == 0 {
		return false
	}
	slashed := filepath.ToSlash(p)
	relative := strings.TrimLeft(slashed, "/")
	for _, pattern := range g.exclude {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, relative); ok {
			return true
		}
	}
	return false
}

// clean normalizes a local path. On Windows the leading separator that
// precedes a drive letter in URLs is dropped; elsewhere the path is rooted.
func (g *Guard) clean(p string) string {
	if g.goos == "windows" {
		slashed := strings.ReplaceAll(p, `\`, "/")
		if len(slashed) >= 3 && slashed[0] == '/' && slashed[2] == ':' {
			slashed = slashed[1:]
		}
		return strings.ReplaceAll(path.Clean(slashed), "/", `\`)
	}
	return path.Clean("/" + strings.TrimLeft(p, "/"))
}

// absolute resolves editor-supplied relative paths against the working
// directory. URL-derived paths never go through here: they are always rooted.
func (g *Guard) absolute(p string) string {
	if g.goos != runtime.GOOS || filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func (g *Guard) ext(p string) string {
	if g.goos == "windows" {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	return path.Ext(p)
}
