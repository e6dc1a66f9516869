package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/glimmer/internal/logx"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64          `json:"seq"`
	Entry     recording.Entry `json:"entry"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub broadcasts received recording entries per session.
type Hub struct {
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		sessions:    make(map[schema.SessionID]*sessionHub),
		historySize: historySize,
	}
}

// Publish records entry in the session history and hands it to subscribers.
func (h *Hub) Publish(entry recording.Entry) {
	id := schema.SessionID(entry.SessionID)
	event := StreamEvent{Entry: entry, Timestamp: time.Now()}
	h.mu.Lock()
	sh := h.getOrCreateLocked(id)
	sh.seq++
	event.Seq = sh.seq
	sh.history = append(sh.history, event)
	if len(sh.history) > h.historySize {
		sh.history = sh.history[len(sh.history)-h.historySize:]
	}
	subs := make([]chan StreamEvent, 0, len(sh.subs))
	for sub := range sh.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logx.WithSession(context.Background(), id).Warn("hub event dropped", "seq", event.Seq, "dropped", dropped)
	}
}

// Subscribe registers a subscriber for a session.
func (h *Hub) Subscribe(id schema.SessionID) (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateLocked(id)
	ch := make(chan StreamEvent, 256)
	sh.subs[ch] = struct{}{}
	log := logx.WithSession(context.Background(), id)
	log.Info("hub subscribe", "subs", len(sh.subs), "history", len(sh.history))
	unsub := func() {
		h.mu.Lock()
		delete(sh.subs, ch)
		close(ch)
		remaining := len(sh.subs)
		h.mu.Unlock()
		log.Info("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(id schema.SessionID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[id]
	if sh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(sh.history))
	for _, event := range sh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithSession(context.Background(), id).Debug("hub replay", "after", after, "count", len(events))
	return events
}

func (h *Hub) getOrCreateLocked(id schema.SessionID) *sessionHub {
	sh := h.sessions[id]
	if sh == nil {
		sh = &sessionHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.sessions[id] = sh
	}
	return sh
}

type sessionHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}
