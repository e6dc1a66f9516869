package schema

import "encoding/json"

// EventType tags an outbound event.
type EventType string

const (
	EventInit            EventType = "init"
	EventRefresh         EventType = "refresh"
	EventArrange         EventType = "arrange"
	EventRedraw          EventType = "redraw"
	EventLine            EventType = "line"
	EventChar            EventType = "char"
	EventHyperlink       EventType = "hyperlink"
	EventMouse           EventType = "mouse"
	EventExternal        EventType = "external"
	EventTimer           EventType = "timer"
	EventSpecialResponse EventType = "specialresponse"
	EventDebugInput      EventType = "debuginput"
)

// CarriesPartial reports whether uncommitted line input from other windows
// is attached to events of this type.
func (t EventType) CarriesPartial() bool {
	switch t {
	case EventInit, EventRefresh, EventSpecialResponse, EventDebugInput:
		return false
	default:
		return true
	}
}

// hasValue reports whether the value key is always written for this type,
// even when the value is null.
func (t EventType) hasValue() bool {
	switch t {
	case EventLine, EventChar, EventHyperlink, EventExternal, EventSpecialResponse, EventDebugInput:
		return true
	default:
		return false
	}
}

// Event is one message from the client to the peer.
type Event struct {
	Type       EventType
	Gen        int
	Window     *WindowID
	Value      any
	Terminator string
	X          *int
	Y          *int
	Response   string
	Partial    map[WindowID]string
	Metrics    *Metrics
	Support    []string
}

type wireEvent struct {
	Type       EventType           `json:"type"`
	Gen        int                 `json:"gen"`
	Window     *WindowID           `json:"window,omitempty"`
	Value      json.RawMessage     `json:"value,omitempty"`
	Terminator string              `json:"terminator,omitempty"`
	X          *int                `json:"x,omitempty"`
	Y          *int                `json:"y,omitempty"`
	Response   string              `json:"response,omitempty"`
	Partial    map[WindowID]string `json:"partial,omitempty"`
	Metrics    *Metrics            `json:"metrics,omitempty"`
	Support    []string            `json:"support,omitempty"`
}

// MarshalJSON encodes the event. Value is written for every type that
// carries one, so an empty line or a failed file prompt is still explicit.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := wireEvent{
		Type:       e.Type,
		Gen:        e.Gen,
		Window:     e.Window,
		Terminator: e.Terminator,
		X:          e.X,
		Y:          e.Y,
		Response:   e.Response,
		Partial:    e.Partial,
		Metrics:    e.Metrics,
		Support:    e.Support,
	}
	if e.Type.hasValue() || e.Value != nil {
		raw, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		wire.Value = raw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes an event; Value is left as the generic JSON value.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var value any
	if len(wire.Value) > 0 {
		if err := json.Unmarshal(wire.Value, &value); err != nil {
			return err
		}
	}
	*e = Event{
		Type:       wire.Type,
		Gen:        wire.Gen,
		Window:     wire.Window,
		Value:      value,
		Terminator: wire.Terminator,
		X:          wire.X,
		Y:          wire.Y,
		Response:   wire.Response,
		Partial:    wire.Partial,
		Metrics:    wire.Metrics,
		Support:    wire.Support,
	}
	return nil
}

// WindowRef returns a pointer suitable for Event.Window.
func WindowRef(id WindowID) *WindowID {
	return &id
}
