package core

import (
	"context"

	"pkt.systems/glimmer/schema"
)

// Surface renders the window model. Calls are made while the session holds
// its lock, so implementations must not call back into the Session from
// inside a Surface method.
type Surface interface {
	CreateWindow(info WindowInfo)
	UpdateWindow(info WindowInfo)
	CloseWindow(id schema.WindowID)

	SetGridLine(id schema.WindowID, line int, runs schema.Runs)
	UpdateBuffer(id schema.WindowID, update BufferUpdate)
	ScrollBuffer(id schema.WindowID, view Viewport)
	SetMorePrompt(id schema.WindowID, visible bool, prevMark float64)

	ConfigureCanvas(id schema.WindowID, canvas CanvasInfo)
	Fill(id schema.WindowID, color string, rect *schema.Rect)
	DrawImage(id schema.WindowID, img Image, rect schema.Rect)

	ShowInput(id schema.WindowID, input InputInfo)
	SetInputValue(id schema.WindowID, value string)
	RemoveInput(id schema.WindowID)
	SetInputsEnabled(enabled bool)
	Focus(id schema.WindowID)

	ShowError(msg string)
	// ShowWarning displays a dismissible warning; an empty message hides it.
	ShowWarning(msg string)
	SetLoading(visible bool)
}

// MetricsProvider measures the render surface.
type MetricsProvider interface {
	// Measure returns the current layout numbers. An error means the surface
	// could not be located.
	Measure() (schema.Metrics, error)
	// PixelRatio is the device-to-logical pixel ratio.
	PixelRatio() float64
}

// EventSink delivers outbound events to the peer.
type EventSink interface {
	Accept(ctx context.Context, event schema.Event) error
}

// ImageLoader resolves an image for a graphics draw operation.
type ImageLoader interface {
	Load(ctx context.Context, id int, url string) (Image, error)
}

// SpecialInput answers out-of-band requests such as a file reference prompt.
// A nil value with a nil error means the user declined.
type SpecialInput interface {
	PromptFileRef(ctx context.Context, req FileRefRequest) (any, error)
}

// Recorder receives every update and every sent event for transcripts.
type Recorder interface {
	RecordUpdate(ctx context.Context, update schema.Update)
	RecordEvent(ctx context.Context, event schema.Event)
}

// DebugConsole receives debug output lines carried by updates.
type DebugConsole interface {
	DebugOutput(lines []string)
}

// WindowInfo is the render-facing description of a window.
type WindowInfo struct {
	ID         schema.WindowID
	Kind       schema.WindowKind
	Rock       int64
	Coords     schema.Coords
	Width      float64
	Height     float64
	GridWidth  int
	GridHeight int
}

// ParagraphView is one buffer paragraph as rendered.
type ParagraphView struct {
	Runs      schema.Runs
	Blank     bool
	FlowBreak bool
}

// BufferUpdate describes a change to a buffer window. Apply Clear first,
// then replace everything from index From with Paragraphs, then drop the
// first Trimmed paragraphs.
type BufferUpdate struct {
	Clear      bool
	From       int
	Paragraphs []ParagraphView
	Trimmed    int
}

// Viewport is the scroll position of a buffer window in pixels.
type Viewport struct {
	ScrollTop    float64
	FrameHeight  float64
	ScrollHeight float64
	TopUnseen    float64
}

// CanvasInfo sizes a graphics window's drawing surface.
type CanvasInfo struct {
	Width      int
	Height     int
	ScaleRatio float64
	Background string
}

// Image is a resolved picture. Width and height are its natural size.
type Image struct {
	ID     int
	URL    string
	Width  int
	Height int
	Data   []byte
}

func (img Image) usable() bool {
	return img.Width > 0 && img.Height > 0
}

// InputInfo describes an open input field.
type InputInfo struct {
	Kind        schema.InputKind
	MaxLen      int
	Value       string
	Terminators []string
	// XPos and YPos place grid window input, in character cells.
	XPos int
	YPos int
}

// FileRefRequest is passed to the SpecialInput service.
type FileRefRequest struct {
	Writable bool
	FileType string
	GameID   string
}
