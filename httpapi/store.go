package httpapi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"pkt.systems/glimmer/schema"
)

const transcriptExt = ".jsonl"

var errInvalidSessionID = errors.New("invalid session id")

// SessionInfo summarizes one stored transcript.
type SessionInfo struct {
	ID       schema.SessionID `json:"id"`
	Entries  int              `json:"entries"`
	Modified time.Time        `json:"modified"`
}

// recordStore appends transcript entries to one JSON lines file per session.
type recordStore struct {
	mu  sync.Mutex
	dir string
}

func newRecordStore(dir string) (*recordStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("record directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &recordStore{dir: dir}, nil
}

func validSessionID(id schema.SessionID) bool {
	if id == "" || len(id) > 128 || strings.HasPrefix(string(id), ".") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

func (s *recordStore) path(id schema.SessionID) string {
	return filepath.Join(s.dir, string(id)+transcriptExt)
}

func (s *recordStore) Append(id schema.SessionID, line []byte) error {
	if !validSessionID(id) {
		return errInvalidSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path(id), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(bytes.TrimSpace(line), '\n')); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (s *recordStore) Read(id schema.SessionID) ([]byte, error) {
	if !validSessionID(id) {
		return nil, errInvalidSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.ReadFile(s.path(id))
}

func (s *recordStore) List() ([]SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []SessionInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, transcriptExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count, err := countLines(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		out = append(out, SessionInfo{
			ID:       schema.SessionID(strings.TrimSuffix(name, transcriptExt)),
			Entries:  count,
			Modified: info.ModTime().UTC(),
		})
	}
	slices.SortFunc(out, func(a, b SessionInfo) int { return b.Modified.Compare(a.Modified) })
	return out, nil
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	count := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}
