package core

import (
	"fmt"

	"pkt.systems/glimmer/schema"
)

const defaultGraphicsColor = "#FFF"

// acceptWindowSet makes the window table match args. Windows not listed are
// closed, so an empty list closes everything.
func (s *Session) acceptWindowSet(args []schema.WindowArg) {
	for _, win := range s.windows {
		win.inPlace = false
	}
	for _, arg := range args {
		s.acceptOneWindow(arg)
	}
	for _, id := range append([]schema.WindowID(nil), s.order...) {
		if win := s.windows[id]; win != nil && !win.inPlace {
			s.closeWindow(win)
		}
	}
}

func (s *Session) acceptOneWindow(arg schema.WindowArg) {
	win := s.windows[arg.ID]
	created := false
	if win == nil {
		if !arg.Type.Valid() {
			s.violation(fmt.Errorf("window %d type %q: %w", arg.ID, arg.Type, schema.ErrUnknownWindowKind))
			return
		}
		win = &window{
			id:      arg.ID,
			kind:    arg.Type,
			rock:    arg.Rock,
			history: newHistory(s.cfg.HistoryMax),
			payload: newPayload(arg.Type, defaultGraphicsColor),
		}
		s.windows[arg.ID] = win
		s.insertOrder(arg.ID)
		created = true
		s.logger.Debug("window created", "window", int(arg.ID), "kind", arg.Type, "rock", arg.Rock)
	} else if win.kind != arg.Type {
		s.violation(fmt.Errorf("window %d was created with type %s, but now is described as type %s: %w",
			arg.ID, win.kind, arg.Type, schema.ErrWindowKindMismatch))
	}

	win.inPlace = true
	win.width = arg.Width
	win.height = arg.Height
	win.coords = schema.Coords{
		Left:   arg.Left,
		Top:    arg.Top,
		Right:  s.current.Width - (arg.Left + arg.Width),
		Bottom: s.current.Height - (arg.Top + arg.Height),
	}

	canvasChanged := false
	switch p := win.payload.(type) {
	case *gridState:
		height := max(arg.GridHeight, 0)
		for len(p.lines) < height {
			p.lines = append(p.lines, nil)
		}
		p.lines = p.lines[:height]
		p.width = arg.GridWidth
	case *graphicsState:
		if created {
			p.width = arg.GraphWidth
			p.height = arg.GraphHeight
			p.scaleRatio = s.pixelRatio / p.backRatio
		} else if p.width != arg.GraphWidth || p.height != arg.GraphHeight {
			p.width = arg.GraphWidth
			p.height = arg.GraphHeight
			canvasChanged = true
		}
	}

	if created {
		s.surface.CreateWindow(win.info())
		if g := win.graphics(); g != nil {
			s.surface.ConfigureCanvas(win.id, g.canvas())
		}
		return
	}
	s.surface.UpdateWindow(win.info())
	if canvasChanged {
		g := win.graphics()
		g.background = g.defColor
		s.surface.ConfigureCanvas(win.id, g.canvas())
		s.surface.Fill(win.id, g.defColor, nil)
		s.deferRedraw(win.id)
	}
}

// closeWindow drops the window and releases its render resources.
func (s *Session) closeWindow(win *window) {
	if b := win.buffer(); b != nil && b.morePrompt {
		b.morePrompt = false
		s.surface.SetMorePrompt(win.id, false, 0)
	}
	s.surface.CloseWindow(win.id)
	delete(s.windows, win.id)
	s.removeOrder(win.id)
	s.logger.Debug("window closed", "window", int(win.id))
}

func (g *graphicsState) canvas() CanvasInfo {
	return CanvasInfo{
		Width:      g.width,
		Height:     g.height,
		ScaleRatio: g.scaleRatio,
		Background: g.background,
	}
}

// deferRedraw sends a redraw event for a graphics window after the current
// pass, if the window still exists by then.
func (s *Session) deferRedraw(id schema.WindowID) {
	s.schedule(s.cfg.DeferDelay, func(Timer) {
		win := s.windows[id]
		if win == nil || win.kind != schema.WindowGraphics {
			return
		}
		s.send(schema.Event{Type: schema.EventRedraw, Window: schema.WindowRef(id)})
	})
}
