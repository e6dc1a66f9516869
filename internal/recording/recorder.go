package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pkt.systems/glimmer/internal/version"
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Format selects how turns are written to the transcript.
type Format string

const (
	// FormatGlkote records the raw event and update of every turn.
	FormatGlkote Format = "glkote"
	// FormatSimple records line and char input values and the text that
	// reached buffer windows.
	FormatSimple Format = "simple"
)

// ParseFormat maps a configured format name to a Format. Anything other than
// "simple" records in the glkote format.
func ParseFormat(value string) Format {
	if strings.EqualFold(strings.TrimSpace(value), string(FormatSimple)) {
		return FormatSimple
	}
	return FormatGlkote
}

// Entry is one recorded turn as posted to the recording handler.
type Entry struct {
	SessionID    string `json:"sessionId"`
	Label        string `json:"label,omitempty"`
	Format       Format `json:"format"`
	Input        any    `json:"input"`
	Output       any    `json:"output"`
	Timestamp    int64  `json:"timestamp"`
	OutTimestamp int64  `json:"outtimestamp"`
}

// Config configures a Recorder.
type Config struct {
	URL    string
	Format Format
	Label  string
	// SessionID names the transcript; a random id is used when empty.
	SessionID string
	Client    *http.Client
	Logger    pslog.Logger
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Recorder pairs each update with the event that caused it and posts the
// pair to a recording handler from a background goroutine. The first failed
// post turns recording off for the rest of the session.
type Recorder struct {
	cfg    Config
	log    pslog.Logger
	active atomic.Bool

	mu         sync.Mutex
	input      *schema.Event
	inputAt    time.Time
	bufferWins map[schema.WindowID]bool
	closed     bool

	queue     chan Entry
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Recorder and starts its delivery goroutine.
func New(cfg Config) (*Recorder, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("recording url is required")
	}
	if cfg.Format == "" {
		cfg.Format = FormatGlkote
	}
	if cfg.Format != FormatGlkote && cfg.Format != FormatSimple {
		return nil, fmt.Errorf("unknown recording format %q", cfg.Format)
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = log.With("recording_session", cfg.SessionID)
	r := &Recorder{
		cfg:   cfg,
		log:   log,
		queue: make(chan Entry, 64),
		done:  make(chan struct{}),
	}
	r.active.Store(true)
	go r.deliver()
	log.Info("recording active", "label", cfg.Label, "url", cfg.URL, "format", cfg.Format)
	return r, nil
}

// SessionID returns the transcript id sent with every entry.
func (r *Recorder) SessionID() string {
	return r.cfg.SessionID
}

// Active reports whether recording is still on.
func (r *Recorder) Active() bool {
	return r.active.Load()
}

// RecordEvent remembers the latest event sent to the peer.
func (r *Recorder) RecordEvent(_ context.Context, event schema.Event) {
	if !r.Active() {
		return
	}
	r.mu.Lock()
	r.input = &event
	r.inputAt = r.cfg.Now()
	r.mu.Unlock()
}

// RecordUpdate pairs update with the remembered event and queues the entry.
func (r *Recorder) RecordUpdate(_ context.Context, update schema.Update) {
	if !r.Active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, send := r.entry(update)
	r.input = nil
	r.inputAt = time.Time{}
	if !send || r.closed {
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.log.Debug("recording queue full; entry dropped")
	}
}

// entry builds the transcript entry for update. It reports false for turns
// the format leaves out.
func (r *Recorder) entry(update schema.Update) (Entry, bool) {
	update.Autorestore = nil
	entry := Entry{
		SessionID:    r.cfg.SessionID,
		Label:        r.cfg.Label,
		Format:       r.cfg.Format,
		OutTimestamp: r.cfg.Now().UnixMilli(),
	}
	if !r.inputAt.IsZero() {
		entry.Timestamp = r.inputAt.UnixMilli()
	}
	if r.cfg.Format == FormatGlkote {
		if r.input != nil {
			entry.Input = *r.input
		}
		entry.Output = update
		return entry, true
	}

	send := true
	switch {
	case r.input == nil:
		entry.Input = ""
	case r.input.Type == schema.EventLine || r.input.Type == schema.EventChar:
		entry.Input = r.input.Value
	case r.input.Type == schema.EventInit || r.input.Type == schema.EventExternal || r.input.Type == schema.EventSpecialResponse:
		entry.Input = ""
	default:
		send = false
	}
	if update.Windows != nil {
		r.bufferWins = make(map[schema.WindowID]bool)
		for _, win := range update.Windows {
			if win.Type == schema.WindowBuffer {
				r.bufferWins[win.ID] = true
			}
		}
	}
	entry.Output = r.bufferText(update.Content)
	return entry, send
}

func (r *Recorder) bufferText(content []schema.ContentArg) string {
	var b strings.Builder
	for _, arg := range content {
		if !r.bufferWins[arg.ID] {
			continue
		}
		for _, para := range arg.Text {
			if !para.Append {
				b.WriteByte('\n')
			}
			for _, run := range para.Content {
				if run.Kind == schema.RunText {
					b.WriteString(run.Text)
				}
			}
		}
	}
	return b.String()
}

func (r *Recorder) deliver() {
	defer close(r.done)
	for entry := range r.queue {
		if !r.Active() {
			continue
		}
		if err := r.post(entry); err != nil {
			r.active.Store(false)
			r.log.Warn("recording failed; deactivating", "err", err)
		}
	}
}

func (r *Recorder) post(entry Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("recording handler returned %s", resp.Status)
	}
	r.log.Trace("recording posted", "bytes", len(body))
	return nil
}

// Close stops accepting entries and waits for queued ones to be delivered.
func (r *Recorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
