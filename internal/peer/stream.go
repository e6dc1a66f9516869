package peer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// ErrClosed is returned once the peer's update stream has ended.
var ErrClosed = errors.New("peer stream closed")

// Stream exchanges JSON messages with a peer: update messages are read from
// r as a sequence of JSON values (newline separated or concatenated) and
// events are written to w one per line.
type Stream struct {
	log pslog.Logger

	updates  chan schema.Update
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	readErr  error

	wmu sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewStream starts reading updates from r. The reader goroutine exits when r
// reaches EOF or fails.
func NewStream(r io.Reader, w io.Writer, logger pslog.Logger) *Stream {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	s := &Stream{
		log:     logger,
		updates: make(chan schema.Update, 16),
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
		w:       w,
		enc:     json.NewEncoder(w),
	}
	go s.read(r)
	return s
}

func (s *Stream) read(r io.Reader) {
	defer close(s.done)
	defer close(s.updates)
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("peer stream eof")
				s.readErr = ErrClosed
				return
			}
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				// The decoder cannot resynchronize after a syntax error.
				s.log.Warn("peer stream malformed", "offset", syntax.Offset, "err", err)
				s.send(errorUpdate(fmt.Errorf("%w: %v", schema.ErrInvalidMessage, err)))
				s.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
				return
			}
			s.log.Warn("peer stream read failed", "err", err)
			s.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
			return
		}
		update, err := schema.DecodeUpdate(raw)
		if err != nil {
			s.log.Warn("peer update rejected", "err", err)
			update = errorUpdate(err)
		} else {
			s.log.Trace("peer update received", "type", update.Type, "gen", update.Gen, "bytes", len(raw))
		}
		if !s.send(update) {
			s.readErr = ErrClosed
			return
		}
	}
}

func (s *Stream) send(update schema.Update) bool {
	select {
	case s.updates <- update:
		return true
	case <-s.quit:
		return false
	}
}

func errorUpdate(err error) schema.Update {
	return schema.Update{Type: schema.UpdateTypeError, Message: err.Error()}
}

// Next blocks until the next update arrives, the stream ends or ctx is done.
func (s *Stream) Next(ctx context.Context) (schema.Update, error) {
	select {
	case update, ok := <-s.updates:
		if !ok {
			return schema.Update{}, s.readErr
		}
		return update, nil
	case <-ctx.Done():
		return schema.Update{}, ctx.Err()
	}
}

// Accept writes one event to the peer. It satisfies core.EventSink.
func (s *Stream) Accept(_ context.Context, event schema.Event) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.w == nil {
		return ErrClosed
	}
	if err := s.enc.Encode(event); err != nil {
		return fmt.Errorf("peer write %s: %w", event.Type, err)
	}
	s.log.Trace("peer event sent", "type", event.Type, "gen", event.Gen)
	return nil
}

// Done is closed when the reader goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close stops delivering updates and closes the writer when it is an
// io.Closer. The reader goroutine exits once its pending read returns.
func (s *Stream) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.w == nil {
		return nil
	}
	w := s.w
	s.w = nil
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
