package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/glimmer/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Load("zork.ulx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected missing autosave")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	save := Autosave{
		Story:   "/games/zork.ulx",
		SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Gen:     14,
		State: schema.AllState{
			Metrics:  &schema.StateMetrics{Width: 800, Height: 600},
			History:  map[schema.WindowID][]string{1: {"look", "open mailbox"}},
			DefColor: map[schema.WindowID]string{3: "#000"},
		},
	}
	if err := store.Save(save); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load("/games/zork.ulx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected autosave to exist")
	}
	if diff := cmp.Diff(save, got); diff != "" {
		t.Fatalf("autosave mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "zork.ulx.json")); err != nil {
		t.Fatalf("expected file named after the story: %v", err)
	}

	if err := store.Delete("/games/zork.ulx"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load("/games/zork.ulx"); ok {
		t.Fatalf("expected autosave deleted")
	}
	if err := store.Delete("/games/zork.ulx"); err != nil {
		t.Fatalf("expected deleting a missing autosave to succeed: %v", err)
	}
}

func TestStoreLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path := filepath.Join(dir, "advent.json")
	if err := os.WriteFile(path, []byte("{not-json"), 0o600); err != nil {
		t.Fatalf("write bad json: %v", err)
	}
	if _, _, err := store.Load("advent"); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestSanitizeStoryName(t *testing.T) {
	if got := sanitize("my story?.z5"); got != "my_story_.z5" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
