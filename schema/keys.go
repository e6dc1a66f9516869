package schema

import "strings"

// Key names used in char events and as line input terminators.
const (
	KeyLeft     = "left"
	KeyRight    = "right"
	KeyUp       = "up"
	KeyDown     = "down"
	KeyReturn   = "return"
	KeyDelete   = "delete"
	KeyEscape   = "escape"
	KeyTab      = "tab"
	KeyPageUp   = "pageup"
	KeyPageDown = "pagedown"
	KeyHome     = "home"
	KeyEnd      = "end"
)

// SpecialKeys lists every named key, function keys included.
var SpecialKeys = []string{
	KeyLeft, KeyRight, KeyUp, KeyDown, KeyReturn, KeyDelete, KeyEscape, KeyTab,
	KeyPageUp, KeyPageDown, KeyHome, KeyEnd,
	"func1", "func2", "func3", "func4", "func5", "func6",
	"func7", "func8", "func9", "func10", "func11", "func12",
}

// TerminatorKeys lists the keys that may end line input.
var TerminatorKeys = []string{
	KeyEscape,
	"func1", "func2", "func3", "func4", "func5", "func6",
	"func7", "func8", "func9", "func10", "func11", "func12",
}

// IsTerminatorKey reports whether name can be used as a line terminator.
func IsTerminatorKey(name string) bool {
	for _, key := range TerminatorKeys {
		if key == name {
			return true
		}
	}
	return false
}

// NormalizeKeyName lower-cases a named key and accepts a few common aliases.
// It returns false for names that are neither special keys nor a single
// printable character.
func NormalizeKeyName(name string) (string, bool) {
	if len([]rune(name)) == 1 {
		r := []rune(name)[0]
		switch r {
		case '\r', '\n':
			return KeyReturn, true
		case '\b', 0x7f:
			return KeyDelete, true
		case 0x1b:
			return KeyEscape, true
		case '\t':
			return KeyTab, true
		}
		if r >= 0x20 {
			return name, true
		}
		return "", false
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	switch lower {
	case "enter":
		lower = KeyReturn
	case "backspace", "del":
		lower = KeyDelete
	case "esc":
		lower = KeyEscape
	}
	if strings.HasPrefix(lower, "f") && !strings.HasPrefix(lower, "func") {
		lower = "func" + strings.TrimPrefix(lower, "f")
	}
	for _, key := range SpecialKeys {
		if key == lower {
			return lower, true
		}
	}
	return "", false
}

// FilterTerminators keeps the recognized terminator keys from a request,
// dropping duplicates and preserving order.
func FilterTerminators(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !IsTerminatorKey(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
