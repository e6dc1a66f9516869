package schema

import "testing"

func TestNormalizeKeyName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"printable", "a", "a", true},
		{"space", " ", " ", true},
		{"unicode", "å", "å", true},
		{"carriage-return", "\r", KeyReturn, true},
		{"newline", "\n", KeyReturn, true},
		{"backspace-byte", "\b", KeyDelete, true},
		{"del-byte", "\x7f", KeyDelete, true},
		{"escape-byte", "\x1b", KeyEscape, true},
		{"named", "PageUp", KeyPageUp, true},
		{"alias-enter", "enter", KeyReturn, true},
		{"alias-esc", "Esc", KeyEscape, true},
		{"function-short", "f5", "func5", true},
		{"function-long", "func12", "func12", true},
		{"control", "\x01", "", false},
		{"unknown", "hyper", "", false},
		{"function-out-of-range", "f13", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeKeyName(tc.input)
		if ok != tc.valid {
			t.Fatalf("case %q expected valid=%v, got %v", tc.name, tc.valid, ok)
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFilterTerminators(t *testing.T) {
	got := FilterTerminators([]string{"escape", "return", "func1", "escape", "left"})
	if len(got) != 2 || got[0] != "escape" || got[1] != "func1" {
		t.Fatalf("unexpected terminators: %v", got)
	}
	if FilterTerminators(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestNormalizeSessionConfigDefaults(t *testing.T) {
	cfg, err := NormalizeSessionConfig(SessionConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.MaxBufferLength != DefaultMaxBufferLength {
		t.Fatalf("expected max buffer length %d, got %d", DefaultMaxBufferLength, cfg.MaxBufferLength)
	}
	if cfg.HistoryMax != DefaultHistoryMax {
		t.Fatalf("expected history max %d, got %d", DefaultHistoryMax, cfg.HistoryMax)
	}
	if cfg.RetryDelay != DefaultRetryDelay || cfg.ResizeDelay != DefaultResizeDelay || cfg.DeferDelay != DefaultDeferDelay {
		t.Fatalf("unexpected delays: %+v", cfg)
	}
	if cfg.MorePromptMargin != DefaultMorePromptMargin {
		t.Fatalf("expected margin %d, got %v", DefaultMorePromptMargin, cfg.MorePromptMargin)
	}
	if len(cfg.Support) != 4 || cfg.Support[0] != "timer" {
		t.Fatalf("unexpected support list: %v", cfg.Support)
	}
	cfg.Support[0] = "changed"
	if DefaultSupport[0] != "timer" {
		t.Fatalf("default support list was aliased")
	}
}

func TestNormalizeSessionConfigRejectsNegative(t *testing.T) {
	if _, err := NormalizeSessionConfig(SessionConfig{MaxBufferLength: -1}); err == nil {
		t.Fatalf("expected error for negative buffer length")
	}
}
