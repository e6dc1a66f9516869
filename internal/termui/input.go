package termui

import (
	"context"
	"math"
	"unicode/utf8"

	"pkt.systems/glimmer/schema"
)

// Controller is the part of a session that keystrokes are routed to.
type Controller interface {
	KeyPress(ctx context.Context, key string) bool
	InputKey(ctx context.Context, id schema.WindowID, key string) bool
	BufferScrolled(id schema.WindowID, scrollTop float64)
	WindowMouseDown(id schema.WindowID)
}

type linePrompt struct {
	label string
	value string
	done  chan string
}

// HandleKey routes one key to an open prompt, the scroll keys or the
// session. It reports true when the user asked to quit.
func (s *Screen) HandleKey(ctx context.Context, c Controller, key string) bool {
	switch key {
	case KeyInterrupt, KeyEOF:
		if s.finishPrompt("") {
			return false
		}
		return true
	case KeyRedraw:
		s.touch()
		return false
	}
	if s.promptKey(key) {
		return false
	}
	switch key {
	case schema.KeyPageUp, schema.KeyPageDown:
		if id, top, ok := s.scrollTarget(key == schema.KeyPageUp); ok {
			c.BufferScrolled(id, top)
			return false
		}
	case schema.KeyTab:
		if id, ok := s.nextInputWindow(); ok {
			c.WindowMouseDown(id)
			s.Focus(id)
			return false
		}
	}
	if s.Paging() {
		c.KeyPress(ctx, key)
		return false
	}
	if id := s.Focused(); id != 0 && s.hasInput(id) {
		if c.InputKey(ctx, id, key) {
			return false
		}
	}
	c.KeyPress(ctx, key)
	return false
}

func (s *Screen) hasInput(id schema.WindowID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.windows[id]
	return v != nil && v.input != nil
}

// scrollTarget picks the buffer window to scroll: the paging one, else the
// focused one, else the lowest id. It returns the new scroll top.
func (s *Screen) scrollTarget(up bool) (schema.WindowID, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *view
	for _, id := range s.sortedIDs() {
		v := s.windows[id]
		if v.info.Kind != schema.WindowBuffer {
			continue
		}
		if v.more {
			target = v
			break
		}
		if target == nil || id == s.focus {
			target = v
		}
	}
	if target == nil || !target.scrolled {
		return 0, 0, false
	}
	vp := target.viewport
	step := math.Max(vp.FrameHeight-1, 1)
	top := vp.ScrollTop + step
	if up {
		top = vp.ScrollTop - step
	}
	top = math.Min(math.Max(top, 0), math.Max(vp.ScrollHeight-vp.FrameHeight, 0))
	target.viewport.ScrollTop = top
	s.touch()
	return target.info.ID, top, true
}

func (s *Screen) nextInputWindow() (schema.WindowID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.sortedIDs()
	var first schema.WindowID
	passed := false
	for _, id := range ids {
		if s.windows[id].input == nil {
			continue
		}
		if first == 0 {
			first = id
		}
		if passed {
			return id, true
		}
		if id == s.focus {
			passed = true
		}
	}
	return first, first != 0
}

// PromptLine asks the user for a line of text on the status line. An empty
// answer means the user declined.
func (s *Screen) PromptLine(ctx context.Context, label string) (string, error) {
	p := &linePrompt{label: label, done: make(chan string, 1)}
	s.mu.Lock()
	if s.prompt != nil {
		s.prompt.done <- ""
	}
	s.prompt = p
	s.mu.Unlock()
	s.touch()
	select {
	case value := <-p.done:
		return value, nil
	case <-ctx.Done():
		s.mu.Lock()
		if s.prompt == p {
			s.prompt = nil
		}
		s.mu.Unlock()
		s.touch()
		return "", ctx.Err()
	}
}

func (s *Screen) promptKey(key string) bool {
	s.mu.Lock()
	p := s.prompt
	if p == nil {
		s.mu.Unlock()
		return false
	}
	switch key {
	case schema.KeyReturn:
		s.mu.Unlock()
		s.finishPrompt(p.value)
		return true
	case schema.KeyEscape:
		s.mu.Unlock()
		s.finishPrompt("")
		return true
	case schema.KeyDelete:
		if p.value != "" {
			_, size := utf8.DecodeLastRuneInString(p.value)
			p.value = p.value[:len(p.value)-size]
		}
	default:
		if utf8.RuneCountInString(key) == 1 {
			p.value += key
		}
	}
	s.mu.Unlock()
	s.touch()
	return true
}

func (s *Screen) finishPrompt(value string) bool {
	s.mu.Lock()
	p := s.prompt
	s.prompt = nil
	s.mu.Unlock()
	if p == nil {
		return false
	}
	p.done <- value
	s.touch()
	return true
}
