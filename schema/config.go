package schema

import (
	"errors"
	"time"
)

// SessionConfig defines defaults and limits for a client session.
type SessionConfig struct {
	// MaxBufferLength is the number of paragraphs retained per buffer window.
	MaxBufferLength int
	// HistoryMax caps the per-window command history.
	HistoryMax int
	// DisablePaging makes buffer windows always scroll to the bottom.
	DisablePaging bool
	RetryDelay    time.Duration
	ResizeDelay   time.Duration
	DeferDelay    time.Duration
	// FontLoadDelay, when positive, holds the init event until metrics are
	// measured a second time after the delay.
	FontLoadDelay time.Duration
	// MorePromptMargin is how close (in pixels) the view must come to the
	// bottom of a buffer window for its paging to count as done.
	MorePromptMargin float64
	// Support lists the capabilities announced in the init event.
	Support []string
}

const (
	// DefaultMaxBufferLength is the default scrollback cap in paragraphs.
	DefaultMaxBufferLength = 800
	// DefaultHistoryMax is the default command history length.
	DefaultHistoryMax = 20
	// DefaultRetryDelay is the wait before a refresh is sent after a retry message.
	DefaultRetryDelay = 2 * time.Second
	// DefaultResizeDelay coalesces resize signals.
	DefaultResizeDelay = 200 * time.Millisecond
	// DefaultDeferDelay is the delay of deferred work such as focus changes and redraw events.
	DefaultDeferDelay = 10 * time.Millisecond
	// DefaultMorePromptMargin is the paging completion margin in pixels.
	DefaultMorePromptMargin = 4
)

// DefaultSupport is the capability list sent with the init event.
var DefaultSupport = []string{"timer", "graphics", "graphicswin", "hyperlinks"}

// NormalizeSessionConfig applies defaults and validates the config.
func NormalizeSessionConfig(cfg SessionConfig) (SessionConfig, error) {
	if cfg.MaxBufferLength < 0 || cfg.HistoryMax < 0 {
		return SessionConfig{}, errors.New("buffer and history limits must not be negative")
	}
	if cfg.MaxBufferLength == 0 {
		cfg.MaxBufferLength = DefaultMaxBufferLength
	}
	if cfg.HistoryMax == 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.ResizeDelay <= 0 {
		cfg.ResizeDelay = DefaultResizeDelay
	}
	if cfg.DeferDelay <= 0 {
		cfg.DeferDelay = DefaultDeferDelay
	}
	if cfg.FontLoadDelay < 0 {
		cfg.FontLoadDelay = 0
	}
	if cfg.MorePromptMargin <= 0 {
		cfg.MorePromptMargin = DefaultMorePromptMargin
	}
	if len(cfg.Support) == 0 {
		cfg.Support = append([]string(nil), DefaultSupport...)
	}
	return cfg, nil
}
