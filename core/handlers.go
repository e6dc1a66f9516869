package core

import (
	"context"
	"math"

	"pkt.systems/glimmer/schema"
)

// Resize signals that the surface may have changed size. Signals are
// coalesced; the last one measures and sends arrange if the metrics moved.
func (s *Session) Resize() {
	s.mu.Lock()
	if !s.closed {
		s.scheduleResize()
	}
	s.mu.Unlock()
}

func (s *Session) scheduleResize() {
	stopTimer(s.resizeTimer)
	s.resizeTimer = s.schedule(s.cfg.ResizeDelay, func(t Timer) {
		if s.resizeTimer != t {
			return
		}
		s.resizeTimer = nil
		s.resizeNow()
	})
}

func (s *Session) resizeNow() {
	if s.disabled {
		s.scheduleResize()
		return
	}
	metrics, err := s.measure()
	if err != nil {
		return
	}
	if !s.forceArrange && metrics.Match(s.current) {
		s.logger.Trace("session resize unchanged")
		return
	}
	s.forceArrange = false
	s.current = metrics
	s.send(schema.Event{Type: schema.EventArrange, Metrics: &metrics})
}

// PixelRatioChanged rescales every graphics window and asks the peer to
// redraw them.
func (s *Session) PixelRatioChanged(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ratio <= 0 || ratio == s.pixelRatio {
		return
	}
	s.pixelRatio = ratio
	for _, id := range s.order {
		win := s.windows[id]
		g := win.graphics()
		if g == nil {
			continue
		}
		g.scaleRatio = ratio / g.backRatio
		g.background = g.defColor
		s.surface.ConfigureCanvas(id, g.canvas())
		s.surface.Fill(id, g.defColor, nil)
		s.deferRedraw(id)
	}
}

// KeyPress handles a keystroke that no input field claimed. While paging it
// pages the paging window; otherwise it goes to the last focused input.
// It reports whether the key was consumed.
func (s *Session) KeyPress(ctx context.Context, key string) bool {
	s.mu.Lock()
	handled := s.keyPress(key)
	s.mu.Unlock()
	s.flush(ctx)
	return handled
}

func (s *Session) keyPress(key string) bool {
	if s.closed || s.disabled {
		return false
	}
	if s.pagingCount > 0 {
		if win := s.windows[s.lastKnownPaging]; win != nil && win.buffer() != nil {
			if key != schema.KeyReturn && !isPrintable(key) {
				return false
			}
			s.pageForward(win)
			return true
		}
	}
	win := s.windows[s.lastKnownFocus]
	if win == nil || win.input == nil {
		return false
	}
	s.surface.Focus(win.id)
	if win.input.kind() == schema.InputLine {
		switch {
		case key == schema.KeyReturn:
			s.submitLine(win, win.input.value, "")
		case isPrintable(key):
			s.appendInput(win, key)
		}
		return true
	}
	switch {
	case key == schema.KeyReturn, key == schema.KeyDelete, isPrintable(key):
		s.submitChar(win, key)
	}
	return true
}

// InputKey handles a keystroke delivered to a window's own input field:
// history navigation, terminators and submission for line input, and every
// key for char input.
func (s *Session) InputKey(ctx context.Context, id schema.WindowID, key string) bool {
	s.mu.Lock()
	handled := false
	if win := s.windows[id]; !s.closed && win != nil {
		handled = s.inputKey(win, key)
	}
	s.mu.Unlock()
	s.flush(ctx)
	return handled
}

// SetInputValue records what the user has typed into a line input field.
func (s *Session) SetInputValue(id schema.WindowID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if win := s.windows[id]; win != nil && win.input != nil && win.input.kind() == schema.InputLine {
		win.input.value = value
	}
}

// SubmitLine submits value as the line input of window id.
func (s *Session) SubmitLine(ctx context.Context, id schema.WindowID, value string) {
	s.mu.Lock()
	if win := s.windows[id]; !s.closed && win != nil && win.input != nil && win.input.kind() == schema.InputLine {
		win.input.value = value
		s.submitLine(win, value, "")
	}
	s.mu.Unlock()
	s.flush(ctx)
}

// SubmitChar submits a key name as the char input of window id.
func (s *Session) SubmitChar(ctx context.Context, id schema.WindowID, key string) {
	s.mu.Lock()
	if win := s.windows[id]; !s.closed && win != nil && win.input != nil && win.input.kind() == schema.InputChar {
		s.submitChar(win, key)
	}
	s.mu.Unlock()
	s.flush(ctx)
}

// Hyperlink reports a click on a link in window id, if the window asked for
// hyperlink input.
func (s *Session) Hyperlink(ctx context.Context, id schema.WindowID, link int64) {
	s.mu.Lock()
	if win := s.windows[id]; !s.closed && win != nil && win.reqHyperlink {
		s.send(schema.Event{Type: schema.EventHyperlink, Window: schema.WindowRef(id), Value: link})
	}
	s.mu.Unlock()
	s.flush(ctx)
}

// MouseClick reports a click at pixel offset (x, y) inside window id. Grid
// clicks are converted to cells; both kinds are clamped to the window.
func (s *Session) MouseClick(ctx context.Context, id schema.WindowID, x, y float64) {
	s.mu.Lock()
	s.mouseClick(id, x, y)
	s.mu.Unlock()
	s.flush(ctx)
}

func (s *Session) mouseClick(id schema.WindowID, x, y float64) {
	win := s.windows[id]
	if s.closed || win == nil || !win.reqMouse {
		return
	}
	var xpos, ypos int
	switch p := win.payload.(type) {
	case *gridState:
		xpos = min(int(math.Floor(x/s.current.GridCharWidth)), p.width-1)
		ypos = min(int(math.Floor(y/s.current.GridCharHeight)), len(p.lines)-1)
	case *graphicsState:
		xpos = min(int(x), p.width-1)
		ypos = min(int(y), p.height-1)
	default:
		return
	}
	xpos = max(xpos, 0)
	ypos = max(ypos, 0)
	s.send(schema.Event{Type: schema.EventMouse, Window: schema.WindowRef(id), X: &xpos, Y: &ypos})
}

// WindowMouseDown remembers the clicked window as the preferred input and
// paging window.
func (s *Session) WindowMouseDown(id schema.WindowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	win := s.windows[id]
	if win == nil {
		return
	}
	if win.input != nil {
		s.lastKnownFocus = id
	}
	if win.needsPaging {
		s.lastKnownPaging = id
	} else if win.input != nil {
		s.lastKnownPaging = 0
	}
}

// InputFocused records that the surface moved focus to window id's input.
func (s *Session) InputFocused(id schema.WindowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[id]; ok {
		s.lastKnownFocus = id
		s.lastKnownPaging = id
	}
}

// BufferScrolled reports that the user scrolled a buffer window.
func (s *Session) BufferScrolled(id schema.WindowID, scrollTop float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	win := s.windows[id]
	if win == nil || win.buffer() == nil {
		return
	}
	win.buffer().setScrollTop(scrollTop, s.layoutFor(win))
	if win.needsPaging {
		s.windowScroll(win, scrollKeep, false)
	}
}

// External sends an external event carrying value.
func (s *Session) External(ctx context.Context, value any) {
	s.mu.Lock()
	if !s.closed {
		s.send(schema.Event{Type: schema.EventExternal, Value: value})
	}
	s.mu.Unlock()
	s.flush(ctx)
}

// DebugInput sends a debug console command to the peer.
func (s *Session) DebugInput(ctx context.Context, cmd string) {
	s.mu.Lock()
	if !s.closed {
		s.send(schema.Event{Type: schema.EventDebugInput, Value: cmd})
	}
	s.mu.Unlock()
	s.flush(ctx)
}

// Error shows an error. Errors stay visible and override warnings.
func (s *Session) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showError(msg)
}

// Warning shows a dismissible warning; an empty message hides it. Warnings
// are not shown while an error is visible.
func (s *Session) Warning(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errorVisible {
		return
	}
	s.surface.ShowWarning(msg)
	if msg != "" {
		s.hideLoading()
	}
}
