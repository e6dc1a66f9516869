package recording

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"pkt.systems/glimmer/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("pkt.systems/pslog.(*timeCache).refresh"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type handlerLog struct {
	mu      sync.Mutex
	entries []map[string]any
	agents  []string
	status  int
}

func (h *handlerLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var entry map[string]any
	_ = json.Unmarshal(body, &entry)
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.agents = append(h.agents, r.Header.Get("User-Agent"))
	status := h.status
	h.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
	}
}

func (h *handlerLog) Entries() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]any(nil), h.entries...)
}

func fixedNow() func() time.Time {
	at := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		at = at.Add(5 * time.Millisecond)
		return at
	}
}

func newRecorder(t *testing.T, srv *httptest.Server, format Format) *Recorder {
	t.Helper()
	rec, err := New(Config{URL: srv.URL, Format: format, Label: "cloak", SessionID: "s-1", Client: srv.Client(), Now: fixedNow()})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return rec
}

func closeRecorder(t *testing.T, rec *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func text(s string) schema.Runs {
	return schema.Runs{{Kind: schema.RunText, Style: "normal", Text: s}}
}

func TestGlkoteFormatRecordsEventAndUpdate(t *testing.T) {
	log := &handlerLog{}
	srv := httptest.NewServer(log)
	defer srv.Close()
	rec := newRecorder(t, srv, FormatGlkote)
	ctx := context.Background()

	rec.RecordEvent(ctx, schema.Event{Type: schema.EventLine, Gen: 1, Window: schema.WindowRef(1), Value: "look"})
	rec.RecordUpdate(ctx, schema.Update{
		Type:        schema.UpdateTypeUpdate,
		Gen:         2,
		Autorestore: &schema.AllState{History: map[schema.WindowID][]string{1: {"x"}}},
	})
	closeRecorder(t, rec)

	entries := log.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["sessionId"] != "s-1" || entry["label"] != "cloak" || entry["format"] != "glkote" {
		t.Fatalf("unexpected header fields: %v", entry)
	}
	input, _ := entry["input"].(map[string]any)
	if input["type"] != "line" || input["value"] != "look" {
		t.Fatalf("unexpected input: %v", entry["input"])
	}
	output, _ := entry["output"].(map[string]any)
	if _, ok := output["autorestore"]; ok {
		t.Fatalf("expected autorestore stripped from the recording")
	}
	if output["gen"] != float64(2) {
		t.Fatalf("unexpected output: %v", output)
	}
	if entry["timestamp"].(float64) == 0 || entry["outtimestamp"].(float64) <= entry["timestamp"].(float64) {
		t.Fatalf("unexpected timestamps: %v %v", entry["timestamp"], entry["outtimestamp"])
	}
	if !strings.HasPrefix(log.agents[0], "glimmer/") {
		t.Fatalf("unexpected user agent %q", log.agents[0])
	}
}

func TestSimpleFormatAccumulatesBufferText(t *testing.T) {
	log := &handlerLog{}
	srv := httptest.NewServer(log)
	defer srv.Close()
	rec := newRecorder(t, srv, FormatSimple)
	ctx := context.Background()

	rec.RecordEvent(ctx, schema.Event{Type: schema.EventInit})
	rec.RecordUpdate(ctx, schema.Update{
		Type: schema.UpdateTypeUpdate,
		Gen:  1,
		Windows: []schema.WindowArg{
			{ID: 1, Type: schema.WindowBuffer},
			{ID: 2, Type: schema.WindowGrid, GridWidth: 20, GridHeight: 1},
		},
		Content: []schema.ContentArg{
			{ID: 2, Lines: []schema.GridLine{{Line: 0, Content: text("West of House")}}},
			{ID: 1, Text: []schema.Paragraph{{Content: text("Hello")}, {Append: true, Content: text(", world")}, {Content: text(">")}}},
		},
	})
	rec.RecordEvent(ctx, schema.Event{Type: schema.EventArrange, Gen: 1})
	rec.RecordUpdate(ctx, schema.Update{Type: schema.UpdateTypeUpdate, Gen: 2})
	rec.RecordEvent(ctx, schema.Event{Type: schema.EventLine, Gen: 2, Window: schema.WindowRef(1), Value: "go north"})
	rec.RecordUpdate(ctx, schema.Update{
		Type:    schema.UpdateTypeUpdate,
		Gen:     3,
		Content: []schema.ContentArg{{ID: 1, Text: []schema.Paragraph{{Content: text("North of House")}}}},
	})
	closeRecorder(t, rec)

	var got [][2]any
	for _, entry := range log.Entries() {
		got = append(got, [2]any{entry["input"], entry["output"]})
	}
	want := [][2]any{
		{"", "\nHello, world\n>"},
		{"go north", "\nNorth of House"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("simple entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedPostDeactivatesRecording(t *testing.T) {
	log := &handlerLog{status: http.StatusInternalServerError}
	srv := httptest.NewServer(log)
	defer srv.Close()
	rec := newRecorder(t, srv, FormatGlkote)
	ctx := context.Background()

	rec.RecordUpdate(ctx, schema.Update{Type: schema.UpdateTypeUpdate, Gen: 1})
	deadline := time.Now().Add(2 * time.Second)
	for rec.Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.Active() {
		t.Fatalf("expected recording to deactivate after a failed post")
	}
	rec.RecordUpdate(ctx, schema.Update{Type: schema.UpdateTypeUpdate, Gen: 2})
	closeRecorder(t, rec)
	if got := len(log.Entries()); got != 1 {
		t.Fatalf("expected no posts after deactivation, got %d", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := New(Config{URL: "http://localhost/record", Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"simple", FormatSimple},
		{" SIMPLE ", FormatSimple},
		{"glkote", FormatGlkote},
		{"", FormatGlkote},
		{"other", FormatGlkote},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Fatalf("ParseFormat(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}
