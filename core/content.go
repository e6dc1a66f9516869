package core

import (
	"fmt"

	"pkt.systems/glimmer/schema"
)

// acceptContent applies one window's content delta.
func (s *Session) acceptContent(arg schema.ContentArg) {
	win := s.windows[arg.ID]
	if win == nil {
		s.violation(fmt.Errorf("content update for window %d: %w", arg.ID, schema.ErrUnknownWindow))
		return
	}
	if win.input != nil && win.input.kind() == schema.InputLine {
		s.violation(fmt.Errorf("content update for window %d: %w", arg.ID, schema.ErrLineInputPending))
		return
	}
	win.needsScroll = true

	switch p := win.payload.(type) {
	case *gridState:
		for _, line := range arg.Lines {
			if line.Line < 0 || line.Line >= len(p.lines) {
				s.violation(fmt.Errorf("content for line %d of window %d: %w", line.Line, arg.ID, schema.ErrUnknownLine))
				continue
			}
			runs := gridRuns(line.Content)
			p.lines[line.Line] = runs
			s.surface.SetGridLine(win.id, line.Line, runs)
		}
	case *bufferState:
		update, dropped := p.apply(arg.Clear, arg.Text, s.cfg.MaxBufferLength, s.layoutFor(win))
		if dropped > 0 {
			s.logger.Debug("buffer special entries skipped", "window", int(win.id), "count", dropped)
		}
		if update.Trimmed > 0 {
			s.logger.Trace("buffer scrollback trimmed", "window", int(win.id), "paragraphs", update.Trimmed)
		}
		if update.Clear || len(update.Paragraphs) > 0 || update.Trimmed > 0 {
			s.surface.UpdateBuffer(win.id, update)
		}
	case *graphicsState:
		s.enqueueDraw(win.id, arg.Draw)
	}
}

func (s *Session) layoutFor(win *window) bufferLayout {
	return newBufferLayout(s.current, win.width, win.height)
}
