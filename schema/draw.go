package schema

import (
	"encoding/json"
	"fmt"
)

// DrawKind tags a graphics operation.
type DrawKind string

const (
	DrawSetColor DrawKind = "setcolor"
	DrawFill     DrawKind = "fill"
	DrawImage    DrawKind = "image"
)

// DrawOp is one graphics window operation. Rect is nil for a fill that
// covers the whole canvas.
type DrawOp struct {
	Kind  DrawKind
	Color string
	Rect  *Rect
	Image int
	URL   string
}

type wireDrawOp struct {
	Special string `json:"special"`
	Color   string `json:"color,omitempty"`
	X       *int   `json:"x,omitempty"`
	Y       *int   `json:"y,omitempty"`
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
	Image   int    `json:"image,omitempty"`
	URL     string `json:"url,omitempty"`
}

// UnmarshalJSON decodes the flat wire form into a DrawOp. Unknown kinds are
// kept so the draw queue can report them.
func (op *DrawOp) UnmarshalJSON(data []byte) error {
	var wire wireDrawOp
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: draw: %v", ErrInvalidMessage, err)
	}
	*op = DrawOp{
		Kind:  DrawKind(wire.Special),
		Color: wire.Color,
		Image: wire.Image,
		URL:   wire.URL,
	}
	if wire.X != nil {
		op.Rect = &Rect{X: *wire.X, Y: deref(wire.Y), Width: deref(wire.Width), Height: deref(wire.Height)}
	} else if op.Kind == DrawImage && (wire.Width != nil || wire.Height != nil) {
		op.Rect = &Rect{Y: deref(wire.Y), Width: deref(wire.Width), Height: deref(wire.Height)}
	}
	return nil
}

// MarshalJSON encodes the op in its flat wire form.
func (op DrawOp) MarshalJSON() ([]byte, error) {
	wire := wireDrawOp{Special: string(op.Kind), Color: op.Color, Image: op.Image, URL: op.URL}
	if op.Rect != nil {
		x, y, w, h := op.Rect.X, op.Rect.Y, op.Rect.Width, op.Rect.Height
		wire.X, wire.Y, wire.Width, wire.Height = &x, &y, &w, &h
	}
	return json.Marshal(wire)
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
