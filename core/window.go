package core

import "pkt.systems/glimmer/schema"

// window is the common header of every window kind.
type window struct {
	id     schema.WindowID
	kind   schema.WindowKind
	rock   int64
	coords schema.Coords
	width  float64
	height float64

	inPlace      bool
	needsScroll  bool
	needsPaging  bool
	reqHyperlink bool
	reqMouse     bool

	input   *inputState
	history *historyBuffer

	payload windowPayload
}

// windowPayload is the kind-specific part of a window: *gridState,
// *bufferState or *graphicsState.
type windowPayload interface {
	kind() schema.WindowKind
}

type gridState struct {
	width int
	lines []schema.Runs
}

func (*gridState) kind() schema.WindowKind { return schema.WindowGrid }

type graphicsState struct {
	width      int
	height     int
	defColor   string
	background string
	backRatio  float64
	scaleRatio float64
}

func (*graphicsState) kind() schema.WindowKind { return schema.WindowGraphics }

// inputState is an open input request plus its uncommitted field value.
// The request is replaced on every input-set; the field survives.
type inputState struct {
	req         schema.InputRequest
	value       string
	terminators []string
	historyPos  int
}

func (in *inputState) kind() schema.InputKind {
	return in.req.Type
}

func (in *inputState) isTerminator(key string) bool {
	for _, name := range in.terminators {
		if name == key {
			return true
		}
	}
	return false
}

func (w *window) grid() *gridState {
	g, _ := w.payload.(*gridState)
	return g
}

func (w *window) buffer() *bufferState {
	b, _ := w.payload.(*bufferState)
	return b
}

func (w *window) graphics() *graphicsState {
	g, _ := w.payload.(*graphicsState)
	return g
}

func (w *window) info() WindowInfo {
	info := WindowInfo{
		ID:     w.id,
		Kind:   w.kind,
		Rock:   w.rock,
		Coords: w.coords,
		Width:  w.width,
		Height: w.height,
	}
	if g := w.grid(); g != nil {
		info.GridWidth = g.width
		info.GridHeight = len(g.lines)
	}
	return info
}

func (w *window) inputInfo() InputInfo {
	info := InputInfo{
		Kind:        w.input.req.Type,
		MaxLen:      w.input.req.MaxLen,
		Value:       w.input.value,
		Terminators: append([]string(nil), w.input.terminators...),
		XPos:        w.input.req.XPos,
		YPos:        w.input.req.YPos,
	}
	if info.Kind == schema.InputChar {
		info.MaxLen = 1
	}
	return info
}

func newPayload(kind schema.WindowKind, defColor string) windowPayload {
	switch kind {
	case schema.WindowGrid:
		return &gridState{}
	case schema.WindowBuffer:
		return &bufferState{}
	case schema.WindowGraphics:
		return &graphicsState{defColor: defColor, background: defColor, backRatio: 1, scaleRatio: 1}
	default:
		return nil
	}
}
