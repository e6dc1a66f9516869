package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func TestWithWindowAndGenerationAddFields(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	log := WithGeneration(WithWindow(logger, 7), 3)
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["window"] != float64(7) {
		t.Fatalf("expected window field, got %+v", entry)
	}
	if entry["gen"] != float64(3) {
		t.Fatalf("expected gen field, got %+v", entry)
	}
}

func TestWithSessionAddsField(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithSession(ctx, "s1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "s1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestWithSessionSkipsDuplicate(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture).With("session", "s1")
	ctx := ContextWithSessionLogger(context.Background(), logger, "s1")
	WithSession(ctx, "s1").Info("hello")

	line := bytes.TrimSpace(capture.buf.Bytes())
	if n := bytes.Count(line, []byte(`"session"`)); n != 1 {
		t.Fatalf("expected one session field, got %d in %s", n, line)
	}
}

func TestCopyContextFields(t *testing.T) {
	src := ContextWithSession(context.Background(), "s2")
	dst := CopyContextFields(context.Background(), src)
	if got, _ := dst.Value(sessionKey).(string); got != "" {
		t.Fatalf("session marker should keep its type")
	}
	if dst.Value(sessionKey) == nil {
		t.Fatalf("expected session marker to be copied")
	}
}

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
