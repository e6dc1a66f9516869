package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UpdateType tags an inbound message.
type UpdateType string

const (
	UpdateTypeUpdate UpdateType = "update"
	UpdateTypeError  UpdateType = "error"
	UpdateTypePass   UpdateType = "pass"
	UpdateTypeRetry  UpdateType = "retry"
)

// Update is one message from the peer. Slice fields distinguish absent (nil)
// from present-but-empty: an empty Windows list closes every window.
type Update struct {
	Type    UpdateType `json:"type"`
	Gen     int        `json:"gen,omitempty"`
	Message string     `json:"message,omitempty"`
	Disable bool       `json:"disable,omitempty"`

	Input   []InputRequest `json:"input,omitzero"`
	Windows []WindowArg    `json:"windows,omitzero"`
	Content []ContentArg   `json:"content,omitzero"`
	// Timer is nil when the message says nothing about the timer.
	Timer        *TimerRequest        `json:"-"`
	SpecialInput *SpecialInputRequest `json:"specialinput,omitempty"`
	Autorestore  *AllState            `json:"autorestore,omitempty"`
	DebugOutput  []string             `json:"debugoutput,omitempty"`
}

// TimerRequest arms (Interval > 0) or cancels (Interval == 0, sent as null)
// the repeating timer. The interval is in milliseconds.
type TimerRequest struct {
	Interval int
}

type updateAlias Update

// UnmarshalJSON decodes an update, recording whether the timer key was present.
func (u *Update) UnmarshalJSON(data []byte) error {
	var alias updateAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	*u = Update(alias)
	if raw, ok := keys["timer"]; ok {
		req := &TimerRequest{}
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &req.Interval); err != nil {
				return fmt.Errorf("%w: timer: %v", ErrInvalidMessage, err)
			}
		}
		u.Timer = req
	}
	return nil
}

// MarshalJSON encodes an update, writing a null timer for cancellations.
func (u Update) MarshalJSON() ([]byte, error) {
	if u.Timer == nil {
		return json.Marshal(updateAlias(u))
	}
	var interval *int
	if u.Timer.Interval > 0 {
		v := u.Timer.Interval
		interval = &v
	}
	return json.Marshal(struct {
		updateAlias
		Timer *int `json:"timer"`
	}{updateAlias: updateAlias(u), Timer: interval})
}

// DecodeUpdate parses one update message.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			return Update{}, err
		}
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if u.Type == "" {
		return Update{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	return u, nil
}

// WindowArg describes one window that should be open.
type WindowArg struct {
	ID          WindowID   `json:"id"`
	Type        WindowKind `json:"type"`
	Rock        int64      `json:"rock"`
	Left        float64    `json:"left"`
	Top         float64    `json:"top"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	GridWidth   int        `json:"gridwidth,omitempty"`
	GridHeight  int        `json:"gridheight,omitempty"`
	GraphWidth  int        `json:"graphwidth,omitempty"`
	GraphHeight int        `json:"graphheight,omitempty"`
}

// ContentArg is the content delta for one window.
type ContentArg struct {
	ID    WindowID    `json:"id"`
	Clear bool        `json:"clear,omitempty"`
	Lines []GridLine  `json:"lines,omitempty"`
	Text  []Paragraph `json:"text,omitempty"`
	Draw  []DrawOp    `json:"draw,omitempty"`
}

// GridLine replaces one row of a grid window. Empty content blanks the row.
type GridLine struct {
	Line    int  `json:"line"`
	Content Runs `json:"content,omitempty"`
}

// Paragraph is one entry of buffer window text. Append merges the content
// into the previous paragraph instead of starting a new one.
type Paragraph struct {
	Append    bool `json:"append,omitempty"`
	FlowBreak bool `json:"flowbreak,omitempty"`
	Content   Runs `json:"content,omitempty"`
}

// InputRequest opens input (Type set) or only carries capability flags.
type InputRequest struct {
	ID          WindowID  `json:"id"`
	Gen         int       `json:"gen,omitempty"`
	Type        InputKind `json:"type,omitempty"`
	MaxLen      int       `json:"maxlen,omitempty"`
	Initial     string    `json:"initial,omitempty"`
	Terminators []string  `json:"terminators,omitempty"`
	XPos        int       `json:"xpos,omitempty"`
	YPos        int       `json:"ypos,omitempty"`
	Hyperlink   bool      `json:"hyperlink,omitempty"`
	Mouse       bool      `json:"mouse,omitempty"`
}

// SpecialInputFileRef is the only special input type the client handles.
const SpecialInputFileRef = "fileref_prompt"

// SpecialInputRequest asks for out-of-band input such as a file reference.
type SpecialInputRequest struct {
	Type     string `json:"type"`
	FileMode string `json:"filemode,omitempty"`
	FileType string `json:"filetype,omitempty"`
	GameID   string `json:"gameid,omitempty"`
}

// Writable reports whether the requested file will be written to.
func (r SpecialInputRequest) Writable() bool {
	return r.FileMode != "read"
}
