package termui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/schema"
)

type eventLog struct {
	mu     sync.Mutex
	events []schema.Event
}

func (l *eventLog) Accept(_ context.Context, event schema.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) last() schema.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return schema.Event{}
	}
	return l.events[len(l.events)-1]
}

func text(s string) schema.Runs {
	return schema.Runs{{Kind: schema.RunText, Style: "normal", Text: s}}
}

func newPlayer(t *testing.T, cols, rows int) (*Screen, *core.Session, *eventLog) {
	t.Helper()
	screen := New(Options{Width: cols, Height: rows})
	sink := &eventLog{}
	sess, err := core.NewSession(context.Background(), schema.SessionConfig{}, core.SessionDeps{
		Surface: screen,
		Metrics: screen,
		Sink:    sink,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return screen, sess, sink
}

func waitFocus(t *testing.T, screen *Screen, id schema.WindowID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for screen.Focused() != id {
		if time.Now().After(deadline) {
			t.Fatalf("window %d never got focus", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func openingUpdate(gen int, story ...string) schema.Update {
	paras := make([]schema.Paragraph, 0, len(story))
	for _, line := range story {
		paras = append(paras, schema.Paragraph{Content: text(line)})
	}
	return schema.Update{
		Type: schema.UpdateTypeUpdate,
		Gen:  gen,
		Windows: []schema.WindowArg{
			{ID: 1, Type: schema.WindowGrid, Top: 0, Width: 40, Height: 1, GridWidth: 40, GridHeight: 1},
			{ID: 2, Type: schema.WindowBuffer, Top: 1, Width: 40, Height: 8},
		},
		Content: []schema.ContentArg{
			{ID: 1, Lines: []schema.GridLine{{Line: 0, Content: text("West of House")}}},
			{ID: 2, Text: paras},
		},
		Input: []schema.InputRequest{{ID: 2, Gen: gen, Type: schema.InputLine}},
	}
}

func TestMeasureUsesCharacterCells(t *testing.T) {
	screen := New(Options{Width: 80, Height: 24})
	m, err := screen.Measure()
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if m.Width != 80 || m.Height != 23 || m.BufferCharWidth != 1 || m.GridCharHeight != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if _, err := New(Options{}).Measure(); err == nil {
		t.Fatalf("expected error for an unsized screen")
	}
}

func TestScreenShowsGridAndBuffer(t *testing.T) {
	screen, sess, sink := newPlayer(t, 40, 10)
	if sink.last().Type != schema.EventInit {
		t.Fatalf("expected init event, got %+v", sink.last())
	}
	if err := sess.Update(context.Background(), openingUpdate(1, "Hello", ">")); err != nil {
		t.Fatalf("update: %v", err)
	}
	waitFocus(t, screen, 2)

	lines := screen.Lines()
	if len(lines) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(lines))
	}
	want := []string{"West of House", "Hello", ">_"}
	if diff := cmp.Diff(want, lines[:3]); diff != "" {
		t.Fatalf("screen mismatch (-want +got):\n%s", diff)
	}
	if lines[9] != "" {
		t.Fatalf("expected empty status line, got %q", lines[9])
	}

	ctx := context.Background()
	for _, key := range []string{"l", "o", "o", "k", "x", schema.KeyDelete} {
		screen.HandleKey(ctx, sess, key)
	}
	if got := screen.Lines()[2]; got != ">look_" {
		t.Fatalf("expected typed input on the prompt line, got %q", got)
	}
	screen.HandleKey(ctx, sess, schema.KeyReturn)
	ev := sink.last()
	if ev.Type != schema.EventLine || ev.Value != "look" || ev.Gen != 1 {
		t.Fatalf("unexpected line event %+v", ev)
	}
}

func TestScreenPagesLongOutput(t *testing.T) {
	screen, sess, sink := newPlayer(t, 40, 10)
	story := make([]string, 0, 20)
	for i := range 20 {
		story = append(story, "line "+string(rune('a'+i)))
	}
	if err := sess.Update(context.Background(), openingUpdate(1, story...)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !screen.Paging() {
		t.Fatalf("expected the more prompt")
	}
	lines := screen.Lines()
	if lines[1] != "line a" || !strings.HasSuffix(lines[8], "[More]") {
		t.Fatalf("expected the first page with a more prompt, got %q", lines)
	}
	if !strings.Contains(lines[9], "more") {
		t.Fatalf("expected paging hint on the status line, got %q", lines[9])
	}

	ctx := context.Background()
	for i := 0; i < 5 && screen.Paging(); i++ {
		screen.HandleKey(ctx, sess, " ")
	}
	if screen.Paging() {
		t.Fatalf("expected paging to finish")
	}
	if got := screen.Lines()[8]; got != "line t_" {
		t.Fatalf("expected the last line and the input cursor at the bottom, got %q", got)
	}
	if ev := sink.last(); ev.Type != schema.EventInit {
		t.Fatalf("paging keys must not reach the peer, got %+v", ev)
	}
}

func TestScreenStatusLine(t *testing.T) {
	screen := New(Options{Width: 30, Height: 3})
	if got := screen.Lines()[2]; got != "loading..." {
		t.Fatalf("expected loading status, got %q", got)
	}
	screen.SetLoading(false)
	screen.ShowWarning("disk almost full")
	if got := screen.Lines()[2]; got != "warning: disk almost full" {
		t.Fatalf("unexpected warning status %q", got)
	}
	screen.ShowError("peer crashed")
	if got := screen.Lines()[2]; got != "error: peer crashed" {
		t.Fatalf("unexpected error status %q", got)
	}
}

func TestScreenGraphicsPlaceholder(t *testing.T) {
	screen := New(Options{Width: 40, Height: 5})
	screen.CreateWindow(core.WindowInfo{ID: 3, Kind: schema.WindowGraphics, Width: 40, Height: 4})
	screen.ConfigureCanvas(3, core.CanvasInfo{Width: 40, Height: 4, ScaleRatio: 1, Background: "#000"})
	screen.DrawImage(3, core.Image{ID: 1, Width: 2, Height: 2}, schema.Rect{Width: 2, Height: 2})
	if got := screen.Lines()[0]; got != "[graphics 40x4 #000, 1 images]" {
		t.Fatalf("unexpected graphics row %q", got)
	}
	screen.Fill(3, "#fff", nil)
	if got := screen.Lines()[0]; got != "[graphics 40x4 #fff, 0 images]" {
		t.Fatalf("unexpected graphics row after clear %q", got)
	}
}

func TestWrapParagraphMatchesCellWidth(t *testing.T) {
	tests := []struct {
		name string
		runs schema.Runs
		cols int
		want []string
	}{
		{name: "fits", runs: text("abc"), cols: 5, want: []string{"abc"}},
		{name: "breaks", runs: text("abcdefg"), cols: 3, want: []string{"abc", "def", "g"}},
		{name: "newline", runs: text("ab\ncd"), cols: 5, want: []string{"ab", "cd"}},
		{name: "wide runes", runs: text("日本語"), cols: 4, want: []string{"日本", "語"}},
		{name: "empty", runs: nil, cols: 4, want: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, line := range wrapParagraph(tt.runs, tt.cols) {
				var b strings.Builder
				for _, seg := range line.segs {
					b.WriteString(seg.text)
				}
				got = append(got, b.String())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("wrap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPromptLine(t *testing.T) {
	screen := New(Options{Width: 40, Height: 3})
	screen.SetLoading(false)
	result := make(chan string, 1)
	go func() {
		value, _ := screen.PromptLine(context.Background(), "save as: ")
		result <- value
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		screen.mu.Lock()
		open := screen.prompt != nil
		screen.mu.Unlock()
		if open {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("prompt never opened")
		}
		time.Sleep(time.Millisecond)
	}
	for _, key := range []string{"s", "a", "v", "e", "1"} {
		screen.HandleKey(context.Background(), nil, key)
	}
	if got := screen.Lines()[2]; got != "save as: save1_" {
		t.Fatalf("unexpected prompt line %q", got)
	}
	screen.HandleKey(context.Background(), nil, schema.KeyReturn)
	if got := <-result; got != "save1" {
		t.Fatalf("unexpected prompt answer %q", got)
	}
}

func TestRenderPlainAndANSI(t *testing.T) {
	plain := New(Options{Width: 10, Height: 2})
	var out bytes.Buffer
	if err := plain.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "\nloading...\n" {
		t.Fatalf("unexpected plain render %q", out.String())
	}
	ansi := New(Options{Width: 10, Height: 2, ANSI: true})
	out.Reset()
	if err := ansi.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out.String(), "\x1b[?25l\x1b[H\x1b[2J") || !strings.Contains(out.String(), "\r\n") {
		t.Fatalf("unexpected ansi render %q", out.String())
	}
}
