package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Browser to bridge events.
const (
	EventRegister    = "register"
	EventDispose     = "dispose"
	EventPostMessage = "postMessage"
	EventSetState    = "setState"
	EventVisible     = "visible"
)

// Bridge to browser events. EventPostMessage and EventDispose travel in
// both directions.
const (
	EventHTML     = "html"
	EventTitle    = "title"
	EventIconPath = "iconPath"
	EventReveal   = "reveal"
)

// ErrEmptyEvent is returned when a frame carries no event name.
var ErrEmptyEvent = errors.New("protocol: frame has no event name")

// codec mirrors encoding/json semantics (HTML escaping, sorted map keys) so
// payloads posted by editor code reach the page unchanged.
var codec = sonic.ConfigStd

// Envelope is one WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// IconPaths holds the panel icon for light and dark colour schemes.
type IconPaths struct {
	Light string `json:"light"`
	Dark  string `json:"dark"`
}

// Encode builds a frame for event carrying data. A nil data yields a frame
// without payload.
func Encode(event string, data any) ([]byte, error) {
	if event == "" {
		return nil, ErrEmptyEvent
	}
	env := Envelope{Event: event}
	if data != nil {
		raw, err := codec.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %s payload: %w", event, err)
		}
		env.Data = raw
	}
	return codec.Marshal(env)
}

// Decode parses a frame received from a browser socket.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	return env, nil
}

// Bind unmarshals the payload into v.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("protocol: %s frame has no payload", e.Event)
	}
	if err := codec.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", e.Event, err)
	}
	return nil
}

// Payload returns the raw payload, substituting JSON null when absent.
func (e Envelope) Payload() json.RawMessage {
	if len(e.Data) == 0 {
		return json.RawMessage("null")
	}
	return e.Data
}

// Marshal exposes the protocol codec to other packages that embed JSON
// into pages.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}
