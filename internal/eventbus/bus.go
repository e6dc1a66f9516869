package eventbus

import (
	"context"
	"sync"

	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventDebugOutput carries debug console lines sent by the peer.
	EventDebugOutput EventType = "debugoutput"
	// EventUpdate mirrors an update message received by a session.
	EventUpdate EventType = "update"
	// EventOutbound mirrors an event message sent by a session.
	EventOutbound EventType = "outbound"
)

// Event is one item of session traffic published to monitors.
type Event struct {
	Type     EventType
	Session  schema.SessionID
	Lines    []string
	Update   schema.Update
	Outbound schema.Event
}

// Bus fans out session traffic to per-session subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.With("session", sessionID).Debug("eventbus unsubscribe")
			}
		})
	}
}

// Monitor publishes one session's traffic. It serves as the session's debug
// console and recorder.
type Monitor struct {
	bus     *Bus
	session schema.SessionID
}

// Monitor returns the publisher for sessionID.
func (b *Bus) Monitor(sessionID schema.SessionID) Monitor {
	return Monitor{bus: b, session: sessionID}
}

// DebugOutput publishes debug console lines.
func (m Monitor) DebugOutput(lines []string) {
	m.bus.publish(m.session, Event{Type: EventDebugOutput, Session: m.session, Lines: append([]string(nil), lines...)})
}

// RecordUpdate publishes a received update.
func (m Monitor) RecordUpdate(_ context.Context, update schema.Update) {
	m.bus.publish(m.session, Event{Type: EventUpdate, Session: m.session, Update: update})
}

// RecordEvent publishes a sent event.
func (m Monitor) RecordEvent(_ context.Context, event schema.Event) {
	m.bus.publish(m.session, Event{Type: EventOutbound, Session: m.session, Outbound: event})
}

func (b *Bus) publish(sessionID schema.SessionID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	subs := make([]chan Event, 0, len(sessionSubs))
	for sub := range sessionSubs {
		subs = append(subs, sub)
	}
	// Sends happen under the lock so a concurrent cancel cannot close a
	// channel mid-send; every send is non-blocking.
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.With("session", sessionID).Trace("eventbus dropped", "count", dropped)
	}
}
