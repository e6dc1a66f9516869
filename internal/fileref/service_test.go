package fileref

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/glimmer/core"
)

type scriptedPrompt struct {
	answer string
	err    error
	labels []string
}

func (p *scriptedPrompt) PromptLine(_ context.Context, label string) (string, error) {
	p.labels = append(p.labels, label)
	return p.answer, p.err
}

func TestPromptFileRefForWriting(t *testing.T) {
	dir := t.TempDir()
	prompt := &scriptedPrompt{answer: " ../kitchen.glksave "}
	svc, err := New(dir, prompt, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := svc.PromptFileRef(context.Background(), core.FileRefRequest{Writable: true, FileType: "save", GameID: "ZORK1"})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	ref, ok := got.(Ref)
	if !ok {
		t.Fatalf("expected a Ref, got %#v", got)
	}
	if ref.Filename != filepath.Join(dir, "kitchen.glksave") || ref.Usage != "save" || ref.GameID != "ZORK1" {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if prompt.labels[0] != "Save save file: " {
		t.Fatalf("unexpected label %q", prompt.labels[0])
	}
}

func TestPromptFileRefForReading(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "attic.glksave"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	prompt := &scriptedPrompt{answer: "cellar"}
	svc, err := New(dir, prompt, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := svc.PromptFileRef(context.Background(), core.FileRefRequest{FileType: "save"})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing file, got %#v", got)
	}
	if !strings.Contains(prompt.labels[0], "[attic]") {
		t.Fatalf("expected existing saves listed, got %q", prompt.labels[0])
	}

	prompt.answer = "attic"
	got, err = svc.PromptFileRef(context.Background(), core.FileRefRequest{FileType: "save"})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if ref, ok := got.(Ref); !ok || ref.Filename != filepath.Join(dir, "attic.glksave") {
		t.Fatalf("unexpected ref %#v", got)
	}
}

func TestPromptFileRefDeclinedAndFailed(t *testing.T) {
	dir := t.TempDir()
	prompt := &scriptedPrompt{answer: "   "}
	svc, err := New(dir, prompt, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, err := svc.PromptFileRef(context.Background(), core.FileRefRequest{Writable: true}); got != nil || err != nil {
		t.Fatalf("expected decline, got %#v %v", got, err)
	}
	prompt.err = context.Canceled
	if _, err := svc.PromptFileRef(context.Background(), core.FileRefRequest{Writable: true}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"game1":            "game1",
		"../../etc/passwd": "etcpasswd",
		".hidden":          "hidden",
		"notes.txt":        "notes",
		"tab\tname":        "tabname",
		"  spaced name  ":  "spaced name",
		"story.glkdata":    "story",
	}
	for in, want := range tests {
		if got := cleanName(in); got != want {
			t.Fatalf("cleanName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("", &scriptedPrompt{}, nil); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	if _, err := New(t.TempDir(), nil, nil); err == nil {
		t.Fatalf("expected error for missing prompter")
	}
}
