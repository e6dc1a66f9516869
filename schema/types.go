package schema

// WindowID identifies a window. Ids are assigned by the peer and stay stable
// for the life of the window.
type WindowID int

// WindowKind is the type of a window. It cannot change after creation.
type WindowKind string

const (
	// WindowGrid is a fixed-size character matrix.
	WindowGrid WindowKind = "grid"
	// WindowBuffer is an append-only scrolling paragraph stream.
	WindowBuffer WindowKind = "buffer"
	// WindowGraphics is a drawable surface.
	WindowGraphics WindowKind = "graphics"
)

// Valid reports whether the kind is one of the known window kinds.
func (k WindowKind) Valid() bool {
	switch k {
	case WindowGrid, WindowBuffer, WindowGraphics:
		return true
	default:
		return false
	}
}

// InputKind is the kind of an input request.
type InputKind string

const (
	// InputLine requests a full line of text.
	InputLine InputKind = "line"
	// InputChar requests a single keystroke.
	InputChar InputKind = "char"
)

// Rect is a rectangle in logical pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Coords is the outside-of-border position of a window relative to the
// surface. Right and bottom are distances from the surface edges.
type Coords struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// SessionID identifies one client session for logs and recordings.
type SessionID string
