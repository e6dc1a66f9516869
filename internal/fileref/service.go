package fileref

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"pkt.systems/glimmer/core"
	"pkt.systems/pslog"
)

// Prompter asks the user for a filename. An empty answer declines.
type Prompter interface {
	PromptLine(ctx context.Context, label string) (string, error)
}

// Ref is the file reference returned to the peer.
type Ref struct {
	Filename string `json:"filename"`
	Usage    string `json:"usage"`
	GameID   string `json:"gameid,omitempty"`
}

var suffixes = map[string]string{
	"save":       ".glksave",
	"data":       ".glkdata",
	"transcript": ".txt",
	"command":    ".txt",
}

// Service answers file reference prompts with files in a save directory.
// It satisfies core.SpecialInput.
type Service struct {
	dir    string
	prompt Prompter
	log    pslog.Logger
}

// New constructs a Service saving under dir.
func New(dir string, prompt Prompter, logger pslog.Logger) (*Service, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("save directory is required")
	}
	if prompt == nil {
		return nil, errors.New("prompter is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Service{dir: dir, prompt: prompt, log: logger.With("save_dir", dir)}, nil
}

// PromptFileRef asks for a filename. Reading requires an existing file; a
// declined or unusable answer returns nil.
func (s *Service) PromptFileRef(ctx context.Context, req core.FileRefRequest) (any, error) {
	suffix := suffixFor(req.FileType)
	existing, err := s.list(suffix)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s %s file", verb(req.Writable), usageName(req.FileType))
	if len(existing) > 0 {
		label += " [" + strings.Join(existing, " ") + "]"
	}
	answer, err := s.prompt.PromptLine(ctx, label+": ")
	if err != nil {
		return nil, err
	}
	name := cleanName(answer)
	if name == "" {
		s.log.Debug("fileref prompt declined", "filetype", req.FileType)
		return nil, nil
	}
	path := filepath.Join(s.dir, name+suffix)
	if !req.Writable {
		if _, err := os.Stat(path); err != nil {
			s.log.Info("fileref prompt missing file", "file", name+suffix)
			return nil, nil
		}
	}
	s.log.Debug("fileref prompt answered", "file", name+suffix, "writable", req.Writable)
	return Ref{Filename: path, Usage: req.FileType, GameID: req.GameID}, nil
}

func (s *Service) list(suffix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), suffix))
	}
	slices.Sort(names)
	return names, nil
}

func suffixFor(fileType string) string {
	if suffix, ok := suffixes[fileType]; ok {
		return suffix
	}
	return ".glkdata"
}

func usageName(fileType string) string {
	if fileType == "" {
		return "data"
	}
	return fileType
}

func verb(writable bool) string {
	if writable {
		return "Save"
	}
	return "Restore"
}

// cleanName keeps a bare filename: path separators and control characters
// are dropped and a known suffix is removed.
func cleanName(value string) string {
	value = strings.TrimSpace(value)
	for _, suffix := range suffixes {
		value = strings.TrimSuffix(value, suffix)
	}
	var b strings.Builder
	for _, r := range value {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	name := strings.TrimLeft(b.String(), ".")
	return strings.TrimSpace(name)
}
