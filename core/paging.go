package core

import "pkt.systems/glimmer/schema"

type scrollTarget int

const (
	scrollKeep scrollTarget = iota
	scrollTop
	scrollBottom
)

// pagingPass runs after every accepted update. Buffer windows that received
// content either jump to the bottom (paging off) or scroll their first unseen
// line to the top and start paging if more remains below the view.
func (s *Session) pagingPass() {
	for _, id := range s.order {
		win := s.windows[id]
		b := win.buffer()
		if b == nil || !win.needsScroll {
			continue
		}
		win.needsScroll = false
		if win.needsPaging {
			continue
		}
		layout := s.layoutFor(win)
		if s.cfg.DisablePaging {
			b.setScrollTop(layout.maxScroll(b.paragraphs), layout)
			win.needsPaging = false
			s.surface.ScrollBuffer(win.id, b.viewport(layout))
		} else {
			b.pageFromMark = b.topUnseen
			s.windowScroll(win, scrollTop, true)
			win.needsPaging = b.scrollTop+layout.frameHeight+s.cfg.MorePromptMargin < layout.scrollHeight(b.paragraphs)
		}
		s.setMorePrompt(win, win.needsPaging)
	}
}

func (s *Session) setMorePrompt(win *window, visible bool) {
	b := win.buffer()
	if !visible && !b.morePrompt {
		return
	}
	b.morePrompt = visible
	s.surface.SetMorePrompt(win.id, visible, b.pageFromMark)
}

// windowScroll moves a buffer window's view and advances its unseen mark.
// Unless keepPaging is set, reaching the bottom ends paging for the window.
func (s *Session) windowScroll(win *window, target scrollTarget, keepPaging bool) {
	b := win.buffer()
	layout := s.layoutFor(win)
	switch target {
	case scrollBottom:
		b.setScrollTop(layout.scrollHeight(b.paragraphs)-layout.frameHeight, layout)
	case scrollTop:
		b.setScrollTop(b.topUnseen-layout.rowHeight, layout)
	}
	newTopUnseen := min(b.scrollTop+layout.frameHeight, layout.lastLineTop(b.paragraphs))
	b.topUnseen = max(b.topUnseen, newTopUnseen)
	s.surface.ScrollBuffer(win.id, b.viewport(layout))

	if win.needsPaging && !keepPaging {
		if b.scrollTop+layout.frameHeight+s.cfg.MorePromptMargin >= layout.scrollHeight(b.paragraphs) {
			win.needsPaging = false
			s.setMorePrompt(win, false)
			s.readjustPagingFocus(true)
		}
	}
}

// pageForward advances a paging window by one view. A paragraph taller than
// the frame pins the unseen mark, so the view is pushed on by a frame.
func (s *Session) pageForward(win *window) {
	b := win.buffer()
	layout := s.layoutFor(win)
	if b.topUnseen-layout.rowHeight > b.scrollTop {
		s.windowScroll(win, scrollTop, false)
		return
	}
	b.setScrollTop(b.scrollTop+layout.frameHeight-layout.rowHeight, layout)
	s.windowScroll(win, scrollKeep, false)
}

// readjustPagingFocus recounts windows that need paging and picks the paging
// window. With canFocus set and no paging left, input focus is reassigned.
func (s *Session) readjustPagingFocus(canFocus bool) {
	s.pagingCount = 0
	var pageable schema.WindowID
	found := false
	if !s.cfg.DisablePaging {
		for _, id := range s.order {
			if !s.windows[id].needsPaging {
				continue
			}
			s.pagingCount++
			if !found || id == s.lastKnownPaging {
				pageable = id
				found = true
			}
		}
	}
	if s.pagingCount > 0 {
		s.lastKnownPaging = pageable
		return
	}
	if canFocus {
		if id, ok := s.pickInputWindow(); ok {
			s.focus(id)
		}
	}
}

// pickInputWindow chooses the window to receive input focus: the last
// focused window if it still has input, else the first with input. Nothing
// is chosen while disabled or while any window needs paging.
func (s *Session) pickInputWindow() (schema.WindowID, bool) {
	if s.disabled || s.pagingCount > 0 {
		return 0, false
	}
	var chosen schema.WindowID
	found := false
	for _, id := range s.order {
		if s.windows[id].input == nil {
			continue
		}
		if !found || id == s.lastKnownFocus {
			chosen = id
			found = true
		}
	}
	return chosen, found
}

func (s *Session) focus(id schema.WindowID) {
	s.surface.Focus(id)
	s.lastKnownFocus = id
	s.lastKnownPaging = id
}

// deferFocus sets the focus once the surface has settled after a pass.
func (s *Session) deferFocus(id schema.WindowID) {
	stopTimer(s.focusTimer)
	s.focusTimer = s.schedule(s.cfg.DeferDelay, func(t Timer) {
		if s.focusTimer != t {
			return
		}
		s.focusTimer = nil
		if win := s.windows[id]; win != nil && win.input != nil {
			s.focus(id)
		}
	})
}
