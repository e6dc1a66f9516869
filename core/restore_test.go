package core

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/glimmer/schema"
)

type memoryRecorder struct {
	mu      sync.Mutex
	updates []schema.Update
	events  []schema.Event
}

func (r *memoryRecorder) RecordUpdate(_ context.Context, update schema.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *memoryRecorder) RecordEvent(_ context.Context, event schema.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func restoreState(width, height float64) *schema.AllState {
	return &schema.AllState{
		Metrics:  &schema.StateMetrics{Width: width, Height: height},
		History:  map[schema.WindowID][]string{1: {"open mailbox", "read leaflet"}},
		DefColor: map[schema.WindowID]string{2: "#123456"},
	}
}

func TestAutorestoreAppliesHistoryAndColor(t *testing.T) {
	recorder := &memoryRecorder{}
	s, env := newTestSession(t, schema.SessionConfig{}, SessionDeps{Recorder: recorder})
	mustUpdate(t, s, schema.Update{
		Gen:         1,
		Windows:     []schema.WindowArg{bufferWindow(1), graphicsWindow(2, 100, 100)},
		Content:     []schema.ContentArg{{ID: 1, Text: twelveLines()}},
		Input:       []schema.InputRequest{lineInput(1, 1)},
		Autorestore: restoreState(800, 600),
	})
	snap := s.Snapshot()
	win, _ := snap.Window(1)
	if diff := cmp.Diff([]string{"open mailbox", "read leaflet"}, win.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if win.NeedsPaging || snap.PagingCount != 0 {
		t.Fatalf("expected restored buffer scrolled past paging")
	}
	saved := s.SaveAllState()
	if saved.DefColor[2] != "#123456" {
		t.Fatalf("expected restored default color, got %v", saved.DefColor)
	}
	env.clock.Advance(schema.DefaultResizeDelay)
	if got := len(env.sink.OfType(schema.EventArrange)); got != 0 {
		t.Fatalf("expected no arrange for a matching size, got %d", got)
	}
	s.InputKey(t.Context(), 1, schema.KeyUp)
	if got := env.surface.inputs[1].Value; got != "read leaflet" {
		t.Fatalf("expected restored history recall, got %q", got)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.updates) != 1 || recorder.updates[0].Autorestore != nil {
		t.Fatalf("expected recorded update without autorestore state")
	}
	if len(recorder.events) == 0 || recorder.events[0].Type != schema.EventInit {
		t.Fatalf("expected init event recorded, got %+v", recorder.events)
	}
}

func TestAutorestoreSizeMismatchArranges(t *testing.T) {
	s, env := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:         1,
		Windows:     []schema.WindowArg{bufferWindow(1)},
		Autorestore: restoreState(1024, 768),
	})
	if saved := s.SaveAllState(); saved.Metrics.Width != 800 || saved.Metrics.Height != 600 {
		t.Fatalf("expected the measured size saved while the arrange is pending, got %+v", saved.Metrics)
	}
	if got := s.Snapshot().Metrics.Width; got != 800 {
		t.Fatalf("expected layout width 800, got %v", got)
	}
	env.clock.Advance(schema.DefaultResizeDelay)
	arrange := env.sink.OfType(schema.EventArrange)
	if len(arrange) != 1 || arrange[0].Metrics.Width != 800 {
		t.Fatalf("expected arrange with the measured size, got %+v", arrange)
	}
	mustUpdate(t, s, schema.Update{Gen: 2})
	s.Resize()
	env.clock.Advance(schema.DefaultResizeDelay)
	if got := len(env.sink.OfType(schema.EventArrange)); got != 1 {
		t.Fatalf("expected a later unchanged resize to stay quiet, got %d arranges", got)
	}
}

func TestAutorestoreIgnoredAfterFirstUpdate(t *testing.T) {
	s, _ := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{Gen: 1, Windows: []schema.WindowArg{bufferWindow(1)}})
	mustUpdate(t, s, schema.Update{Gen: 2, Autorestore: restoreState(800, 600)})
	win, _ := s.Snapshot().Window(1)
	if len(win.History) != 0 {
		t.Fatalf("expected autorestore ignored, got history %v", win.History)
	}
}

func TestSaveAllStateCapturesHistory(t *testing.T) {
	s, _ := newTestSession(t, schema.SessionConfig{}, SessionDeps{})
	mustUpdate(t, s, schema.Update{
		Gen:     1,
		Windows: []schema.WindowArg{bufferWindow(1)},
		Input:   []schema.InputRequest{lineInput(1, 1)},
	})
	s.SubmitLine(t.Context(), 1, "xyzzy")
	state := s.SaveAllState()
	want := schema.AllState{
		Metrics: &schema.StateMetrics{Width: 800, Height: 600},
		History: map[schema.WindowID][]string{1: {"xyzzy"}},
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if !state.MatchesSize(testMetrics()) {
		t.Fatalf("expected saved size to match")
	}
}
