package core

import (
	"strings"
	"testing"

	"pkt.systems/glimmer/schema"
)

func twelveLines() []schema.Paragraph {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "line"
	}
	return paragraphs(texts...)
}

func TestPagingStartsAndClears(t *testing.T) {
	s, env := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Content: []schema.ContentArg{{ID: 1, Text: twelveLines()}},
		Input:   []schema.InputRequest{lineInput(1, 1)},
	})
	snap := s.Snapshot()
	win, _ := snap.Window(1)
	if snap.PagingCount != 1 || !win.NeedsPaging {
		t.Fatalf("expected window 1 paging, got count=%d needs=%t", snap.PagingCount, win.NeedsPaging)
	}
	if !env.surface.MorePrompt(1) {
		t.Fatalf("expected more prompt visible")
	}
	if win.Viewport.TopUnseen != 100 || win.Viewport.ScrollTop != 0 {
		t.Fatalf("unexpected first page viewport: %+v", win.Viewport)
	}
	env.clock.Advance(schema.DefaultDeferDelay)
	if env.surface.focusCount != 0 {
		t.Fatalf("expected no input focus while paging")
	}

	if !s.KeyPress(t.Context(), " ") {
		t.Fatalf("expected paging key consumed")
	}
	win, _ = s.Snapshot().Window(1)
	if !win.NeedsPaging || win.Viewport.ScrollTop != 80 {
		t.Fatalf("expected second page, got %+v", win.Viewport)
	}

	s.KeyPress(t.Context(), " ")
	snap = s.Snapshot()
	win, _ = snap.Window(1)
	if win.NeedsPaging || snap.PagingCount != 0 {
		t.Fatalf("expected paging cleared, got %+v", win.Viewport)
	}
	if env.surface.MorePrompt(1) {
		t.Fatalf("expected more prompt hidden")
	}
	if env.surface.FocusedWindow() != 1 {
		t.Fatalf("expected focus handed to the input window, got %d", env.surface.FocusedWindow())
	}
	if len(env.sink.OfType(schema.EventLine)) != 0 {
		t.Fatalf("paging keys must not submit input")
	}
}

func TestPagingDisabledScrollsToBottom(t *testing.T) {
	s, env := newTestSession(t, schema.SessionConfig{DisablePaging: true}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Content: []schema.ContentArg{{ID: 1, Text: twelveLines()}},
	})
	win, _ := s.Snapshot().Window(1)
	if win.NeedsPaging || env.surface.MorePrompt(1) {
		t.Fatalf("expected no paging")
	}
	if win.Viewport.ScrollTop != 140 {
		t.Fatalf("expected scrolled to bottom, got %+v", win.Viewport)
	}
}

func TestPagingOversizedParagraph(t *testing.T) {
	s, _ := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Content: []schema.ContentArg{{ID: 1, Text: paragraphs(strings.Repeat("word ", 80))}},
	})
	win, _ := s.Snapshot().Window(1)
	if !win.NeedsPaging {
		t.Fatalf("expected tall paragraph to page")
	}
	for i := 0; i < 5 && win.NeedsPaging; i++ {
		s.KeyPress(t.Context(), " ")
		win, _ = s.Snapshot().Window(1)
	}
	if win.NeedsPaging {
		t.Fatalf("expected paging to finish, stuck at %+v", win.Viewport)
	}
}

func TestUserScrollEndsPaging(t *testing.T) {
	s, env := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Content: []schema.ContentArg{{ID: 1, Text: twelveLines()}},
	})
	s.BufferScrolled(1, 500)
	win, _ := s.Snapshot().Window(1)
	if win.NeedsPaging || env.surface.MorePrompt(1) {
		t.Fatalf("expected scrolling to the bottom to end paging")
	}
	if win.Viewport.ScrollTop != 140 {
		t.Fatalf("expected scroll clamped to 140, got %v", win.Viewport.ScrollTop)
	}
}

func TestNewContentWhilePagingKeepsMark(t *testing.T) {
	s, _ := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Content: []schema.ContentArg{{ID: 1, Text: twelveLines()}},
	})
	mustUpdate(t, s, schema.Update{
		Gen:     2,
		Content: []schema.ContentArg{{ID: 1, Text: paragraphs("more")}},
	})
	win, _ := s.Snapshot().Window(1)
	if !win.NeedsPaging || win.Viewport.ScrollTop != 0 {
		t.Fatalf("expected paging to continue from the same page, got %+v", win.Viewport)
	}
}

func TestPagingFocusPrefersLastClickedWindow(t *testing.T) {
	s, env := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1), gridWindow(2, 20, 2)},
		Input:   []schema.InputRequest{{ID: 1, Gen: 1, Type: schema.InputChar}, {ID: 2, Gen: 1, Type: schema.InputChar}},
	})
	env.clock.Advance(schema.DefaultDeferDelay)
	if env.surface.FocusedWindow() != 1 {
		t.Fatalf("expected first input window focused, got %d", env.surface.FocusedWindow())
	}
	s.WindowMouseDown(2)
	mustUpdate(t, s, schema.Update{
		Gen:   2,
		Input: []schema.InputRequest{{ID: 1, Gen: 1, Type: schema.InputChar}, {ID: 2, Gen: 1, Type: schema.InputChar}},
	})
	env.clock.Advance(schema.DefaultDeferDelay)
	if env.surface.FocusedWindow() != 2 {
		t.Fatalf("expected last clicked window focused, got %d", env.surface.FocusedWindow())
	}
}
