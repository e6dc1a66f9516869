package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Autosave is the display state saved for one story between runs.
type Autosave struct {
	Story   string          `json:"story"`
	SavedAt time.Time       `json:"saved_at"`
	Gen     int             `json:"gen"`
	State   schema.AllState `json:"state"`
}

// Store persists autosaves to disk, one file per story.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("autosave directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("autosave_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the autosave for story. The bool is false when none exists.
func (s *Store) Load(story string) (Autosave, bool, error) {
	path := s.pathForStory(story)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("autosave load miss", "story", story)
			return Autosave{}, false, nil
		}
		s.warn("autosave load failed", "story", story, "err", err)
		return Autosave{}, false, err
	}
	var save Autosave
	if err := json.Unmarshal(data, &save); err != nil {
		s.warn("autosave load failed", "story", story, "err", err)
		return Autosave{}, false, err
	}
	s.debug("autosave load ok", "story", story, "gen", save.Gen, "windows", len(save.State.History))
	return save, true, nil
}

// Save atomically replaces the autosave for save.Story.
func (s *Store) Save(save Autosave) error {
	path := s.pathForStory(save.Story)
	if save.SavedAt.IsZero() {
		save.SavedAt = time.Now().UTC()
	}
	if err := writeAtomic(path, save); err != nil {
		s.warn("autosave save failed", "story", save.Story, "err", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("autosave save ok", "story", save.Story, "gen", save.Gen)
	}
	return nil
}

// Delete removes the autosave for story, if any.
func (s *Store) Delete(story string) error {
	err := os.Remove(s.pathForStory(story))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.warn("autosave delete failed", "story", story, "err", err)
		return err
	}
	return nil
}

func writeAtomic(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "autosave-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) debug(msg string, kv ...any) {
	if s.log != nil {
		s.log.Debug(msg, kv...)
	}
}

func (s *Store) warn(msg string, kv ...any) {
	if s.log != nil {
		s.log.Warn(msg, kv...)
	}
}

func (s *Store) pathForStory(story string) string {
	name := sanitize(filepath.Base(story))
	if name == "" || name == "." {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
