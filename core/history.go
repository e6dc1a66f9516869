package core

import "pkt.systems/glimmer/schema"

// historyBuffer holds submitted lines for one window, oldest first.
type historyBuffer struct {
	entries []string
	max     int
}

func newHistory(max int) *historyBuffer {
	if max <= 0 {
		max = schema.DefaultHistoryMax
	}
	return &historyBuffer{max: max}
}

func newHistoryFromPersisted(entries []string, max int) *historyBuffer {
	h := newHistory(max)
	if len(entries) == 0 {
		return h
	}
	if len(entries) > h.max {
		entries = entries[len(entries)-h.max:]
	}
	h.entries = append([]string(nil), entries...)
	return h
}

// Append records a submitted line. Empty lines and repeats of the most
// recent entry are skipped; the oldest entry is evicted past the cap.
func (h *historyBuffer) Append(entry string) bool {
	if h == nil {
		return false
	}
	if entry == "" {
		return false
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

func (h *historyBuffer) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// At returns entry i, or "" for the position just past the newest entry.
func (h *historyBuffer) At(i int) string {
	if h == nil || i < 0 || i >= len(h.entries) {
		return ""
	}
	return h.entries[i]
}

func (h *historyBuffer) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}
