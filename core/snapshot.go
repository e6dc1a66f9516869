package core

import "pkt.systems/glimmer/schema"

// Snapshot is a read-only copy of the session's window model.
type Snapshot struct {
	ID          schema.SessionID
	Generation  int
	Disabled    bool
	PagingCount int
	Focus       schema.WindowID
	Metrics     schema.Metrics
	Windows     []WindowSnapshot
}

// WindowSnapshot describes one window at the time of the snapshot.
type WindowSnapshot struct {
	Info        WindowInfo
	Lines       []string
	Input       *InputInfo
	History     []string
	NeedsPaging bool
	Viewport    *Viewport
	Canvas      *CanvasInfo
}

// Window returns the snapshot of window id.
func (s Snapshot) Window(id schema.WindowID) (WindowSnapshot, bool) {
	for _, win := range s.Windows {
		if win.Info.ID == id {
			return win, true
		}
	}
	return WindowSnapshot{}, false
}

// Snapshot copies the current window model, windows in ascending id order.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.id,
		Generation:  s.generation,
		Disabled:    s.disabled,
		PagingCount: s.pagingCount,
		Focus:       s.lastKnownFocus,
		Metrics:     s.current,
	}
	for _, id := range s.order {
		win := s.windows[id]
		ws := WindowSnapshot{
			Info:        win.info(),
			History:     win.history.Entries(),
			NeedsPaging: win.needsPaging,
		}
		if win.input != nil {
			info := win.inputInfo()
			ws.Input = &info
		}
		switch p := win.payload.(type) {
		case *gridState:
			for _, line := range p.lines {
				ws.Lines = append(ws.Lines, line.PlainText())
			}
		case *bufferState:
			ws.Lines = p.plainText()
			view := p.viewport(s.layoutFor(win))
			ws.Viewport = &view
		case *graphicsState:
			canvas := p.canvas()
			ws.Canvas = &canvas
		}
		snap.Windows = append(snap.Windows, ws)
	}
	return snap
}
