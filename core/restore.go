package core

import "pkt.systems/glimmer/schema"

// applyAutorestore applies saved display state on the first accepted update.
// Restored buffers are assumed seen, so they skip paging.
func (s *Session) applyAutorestore(state schema.AllState) {
	for id, entries := range state.History {
		win := s.windows[id]
		if win == nil {
			continue
		}
		win.history = newHistoryFromPersisted(entries, s.cfg.HistoryMax)
		if win.input != nil {
			win.input.historyPos = win.history.Len()
		}
	}
	for id, color := range state.DefColor {
		if win := s.windows[id]; win != nil {
			if g := win.graphics(); g != nil {
				g.defColor = color
			}
		}
	}
	for _, id := range s.order {
		if win := s.windows[id]; win.kind == schema.WindowBuffer {
			s.windowScroll(win, scrollBottom, false)
		}
	}
	if !state.MatchesSize(s.current) {
		s.logger.Info("session restore size mismatch", "width", s.current.Width, "height", s.current.Height)
		s.forceArrange = true
		s.scheduleResize()
	}
}

// SaveAllState captures the display state needed to restore this session.
func (s *Session) SaveAllState() schema.AllState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := schema.AllState{
		Metrics: &schema.StateMetrics{Width: s.current.Width, Height: s.current.Height},
		History: make(map[schema.WindowID][]string),
	}
	for _, id := range s.order {
		win := s.windows[id]
		if win.history.Len() > 0 {
			state.History[id] = win.history.Entries()
		}
		if g := win.graphics(); g != nil && g.defColor != "" {
			if state.DefColor == nil {
				state.DefColor = make(map[schema.WindowID]string)
			}
			state.DefColor[id] = g.defColor
		}
	}
	return state
}
