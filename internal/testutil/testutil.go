// Package testutil provides fakes shared by the bridge test suites.
package testutil

import (
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
	"github.com/stretchr/testify/mock"
)

// ErrSocketClosed is returned by FakeSocket.Emit after Close.
var ErrSocketClosed = errors.New("fake socket closed")

// Frame is one event recorded by FakeSocket.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// FakeSocket records emitted events instead of writing to a connection.
type FakeSocket struct {
	id string

	mu      sync.Mutex
	frames  []Frame
	closed  bool
	failing error
}

// NewFakeSocket creates a fake socket with the given id.
func NewFakeSocket(id string) *FakeSocket {
	return &FakeSocket{id: id}
}

// ID returns the socket id.
func (s *FakeSocket) ID() string { return s.id }

// Emit records the event. It fails once the socket is closed or after Fail.
func (s *FakeSocket) Emit(event string, data any) error {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}
	env, err := protocol.Decode(frame)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	if s.failing != nil {
		return s.failing
	}
	s.frames = append(s.frames, Frame{Event: env.Event, Data: env.Data})
	return nil
}

// Close marks the socket closed.
func (s *FakeSocket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Fail makes every later Emit return err.
func (s *FakeSocket) Fail(err error) {
	s.mu.Lock()
	s.failing = err
	s.mu.Unlock()
}

// Frames returns a copy of the recorded frames.
func (s *FakeSocket) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// Count returns how many frames with the given event were recorded.
func (s *FakeSocket) Count(event string) int {
	n := 0
	for _, f := range s.Frames() {
		if f.Event == event {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (s *FakeSocket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RecordingFS is an in-memory filesystem that remembers every Open call.
// Paths are absolute; the leading separator is dropped before lookup.
type RecordingFS struct {
	Files fstest.MapFS

	mu     sync.Mutex
	opened []string
}

// NewRecordingFS creates a filesystem holding the given absolute paths.
func NewRecordingFS(files map[string]string) *RecordingFS {
	m := fstest.MapFS{}
	for name, content := range files {
		m[strings.TrimPrefix(name, "/")] = &fstest.MapFile{Data: []byte(content), Mode: 0o644}
	}
	return &RecordingFS{Files: m}
}

// Open records the access and opens the file.
func (r *RecordingFS) Open(name string) (fs.File, error) {
	r.mu.Lock()
	r.opened = append(r.opened, name)
	r.mu.Unlock()
	return r.Files.Open(strings.TrimPrefix(name, "/"))
}

// Opened returns every path passed to Open, in order.
func (r *RecordingFS) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

// MockOpener is a testify mock for the URL opener collaborator.
type MockOpener struct {
	mock.Mock
}

// Open mocks opening a URL externally.
func (m *MockOpener) Open(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

// NewMockOpener returns an opener that accepts any URL.
func NewMockOpener(t *testing.T) *MockOpener {
	t.Helper()
	m := new(MockOpener)
	m.On("Open", mock.Anything).Return(nil).Maybe()
	return m
}
