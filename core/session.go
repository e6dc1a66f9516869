package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pkt.systems/glimmer/internal/logx"
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Session is the client side of one remote-turn session. It applies update
// messages from the peer to its window model, drives the render surface and
// emits events. All methods are safe for concurrent use; each one runs to
// completion before the next is admitted.
type Session struct {
	cfg      schema.SessionConfig
	id       schema.SessionID
	surface  Surface
	metrics  MetricsProvider
	sink     EventSink
	images   ImageLoader
	special  SpecialInput
	recorder Recorder
	debug    DebugConsole
	clock    Clock
	logger   pslog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sendMu serializes delivery so events leave in the order they were built.
	sendMu sync.Mutex
	mu     sync.Mutex

	closed         bool
	inited         bool
	generation     int
	generationSent int
	disabled       bool
	errorVisible   bool
	loadingVisible bool
	current        schema.Metrics
	pixelRatio     float64
	// forceArrange makes the next resize pass send arrange even when the
	// measured metrics are unchanged.
	forceArrange bool

	windows map[schema.WindowID]*window
	// order holds window ids ascending; every pass iterates in this order.
	order []schema.WindowID

	lastKnownFocus  schema.WindowID
	lastKnownPaging schema.WindowID
	pagingCount     int

	draw drawQueue

	retryTimer      Timer
	resizeTimer     Timer
	requestTimer    Timer
	requestInterval time.Duration
	focusTimer      Timer

	outbox []schema.Event
	errs   []error
}

// NewSession constructs a session. The context carries the logger and bounds
// background work such as image loads.
func NewSession(ctx context.Context, cfg schema.SessionConfig, deps SessionDeps) (*Session, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	normalized, err := schema.NormalizeSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Surface == nil || deps.Metrics == nil {
		return nil, schema.ErrMissingSurface
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Logger != nil {
		ctx = pslog.ContextWithLogger(ctx, deps.Logger)
	}
	id := deps.ID
	if id == "" {
		id = NewSessionID()
	}
	logger := logx.WithSession(ctx, id)
	ctx = logx.ContextWithSessionLogger(ctx, logger, id)
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		cfg:            normalized,
		id:             id,
		surface:        deps.Surface,
		metrics:        deps.Metrics,
		sink:           deps.Sink,
		images:         deps.Images,
		special:        deps.SpecialInput,
		recorder:       deps.Recorder,
		debug:          deps.Debug,
		clock:          deps.Clock,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		generationSent: -1,
		loadingVisible: true,
		pixelRatio:     1,
		windows:        make(map[schema.WindowID]*window),
		draw:           newDrawQueue(),
	}, nil
}

// ID returns the session id used in logs and recordings.
func (s *Session) ID() schema.SessionID {
	return s.id
}

// Init measures the surface and announces the client to the peer.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	err := s.init()
	s.mu.Unlock()
	s.flush(ctx)
	return err
}

func (s *Session) init() error {
	if s.closed {
		return schema.ErrSessionClosed
	}
	if s.inited {
		return errors.New("session already initialized")
	}
	s.inited = true
	metrics, err := s.measure()
	if err != nil {
		return err
	}
	s.current = metrics
	if ratio := s.metrics.PixelRatio(); ratio > 0 {
		s.pixelRatio = ratio
	}
	if s.cfg.FontLoadDelay > 0 {
		s.disabled = true
		s.logger.Debug("session init delayed", "delay", s.cfg.FontLoadDelay)
		s.schedule(s.cfg.FontLoadDelay, func(Timer) {
			s.disabled = false
			if metrics, err := s.measure(); err == nil {
				s.current = metrics
			}
			s.sendInit()
		})
		return nil
	}
	s.sendInit()
	return nil
}

func (s *Session) sendInit() {
	metrics := s.current
	s.send(schema.Event{
		Type:    schema.EventInit,
		Metrics: &metrics,
		Support: append([]string(nil), s.cfg.Support...),
	})
}

func (s *Session) measure() (schema.Metrics, error) {
	metrics, err := s.metrics.Measure()
	if err != nil {
		err = fmt.Errorf("%w: %v", schema.ErrMissingSurface, err)
		s.logger.Warn("session metrics failed", "err", err)
		s.showError(err.Error())
		return schema.Metrics{}, err
	}
	return metrics.Normalize(), nil
}

// Update applies one message from the peer. Per-item protocol violations are
// reported to the surface and returned joined; they never stop the rest of
// the message from applying.
func (s *Session) Update(ctx context.Context, update schema.Update) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.ErrSessionClosed
	}
	err := s.update(ctx, update)
	s.mu.Unlock()
	s.flush(ctx)
	return err
}

func (s *Session) update(ctx context.Context, update schema.Update) error {
	s.errs = nil
	s.hideLoading()

	var restore *schema.AllState
	if update.Autorestore != nil && s.generation == 0 {
		restore = update.Autorestore
	}
	update.Autorestore = nil
	if s.recorder != nil {
		s.recorder.RecordUpdate(ctx, update)
	}
	if len(update.DebugOutput) > 0 && s.debug != nil {
		s.debug.DebugOutput(update.DebugOutput)
	}

	switch update.Type {
	case schema.UpdateTypeError:
		s.logger.Warn("session peer error", "message", update.Message)
		s.showError(update.Message)
		return nil
	case schema.UpdateTypePass:
		return nil
	case schema.UpdateTypeRetry:
		s.acceptRetry()
		return nil
	case schema.UpdateTypeUpdate:
	default:
		s.logger.Info("session update ignored", "type", update.Type)
		return fmt.Errorf("%w: %s", schema.ErrUnknownMessageType, update.Type)
	}

	if update.Gen == s.generation {
		s.logger.Debug("session update repeated", "gen", update.Gen)
		return nil
	}
	if update.Gen < s.generation {
		s.logger.Debug("session update out of order", "gen", update.Gen, "current", s.generation)
		return nil
	}
	s.generation = update.Gen
	logx.WithGeneration(s.logger, update.Gen).Trace("session update apply",
		"windows", len(update.Windows), "content", len(update.Content), "input", len(update.Input))

	if s.disabled {
		s.surface.SetInputsEnabled(true)
		s.disabled = false
	}

	if update.Input != nil {
		s.acceptInputCancel(update.Input)
	}
	if update.Windows != nil {
		s.acceptWindowSet(update.Windows)
	}
	for _, content := range update.Content {
		s.acceptContent(content)
	}
	if update.Input != nil {
		s.acceptInputSet(update.Input)
	}
	if update.Timer != nil {
		s.acceptTimerRequest(*update.Timer)
	}
	if update.SpecialInput != nil {
		s.acceptSpecialInput(*update.SpecialInput)
	}

	s.pagingPass()
	s.readjustPagingFocus(false)

	s.disabled = false
	if update.Disable || update.SpecialInput != nil {
		s.disabled = true
		s.surface.SetInputsEnabled(false)
	}
	if id, ok := s.pickInputWindow(); ok {
		s.deferFocus(id)
	}

	if restore != nil {
		s.applyAutorestore(*restore)
	}
	return errors.Join(s.errs...)
}

func (s *Session) acceptRetry() {
	if s.retryTimer != nil {
		s.logger.Info("session retry dropped", "reason", "retry already pending")
		return
	}
	s.logger.Info("session retry scheduled", "delay", s.cfg.RetryDelay)
	s.showLoading()
	s.retryTimer = s.schedule(s.cfg.RetryDelay, func(t Timer) {
		if s.retryTimer != t {
			return
		}
		s.retryTimer = nil
		s.logger.Info("session retry sending refresh")
		s.send(schema.Event{Type: schema.EventRefresh})
	})
}

// acceptTimerRequest always restarts the timer, even with an unchanged interval.
func (s *Session) acceptTimerRequest(req schema.TimerRequest) {
	stopTimer(s.requestTimer)
	s.requestTimer = nil
	s.requestInterval = 0
	if req.Interval > 0 {
		s.requestInterval = time.Duration(req.Interval) * time.Millisecond
		s.armRequestTimer()
	}
}

func (s *Session) armRequestTimer() {
	s.requestTimer = s.schedule(s.requestInterval, func(t Timer) {
		if s.requestTimer != t || s.requestInterval <= 0 {
			return
		}
		s.armRequestTimer()
		if s.disabled {
			return
		}
		s.send(schema.Event{Type: schema.EventTimer})
	})
}

// send builds an outbound event and queues it for delivery. It reports false
// when the disabled or generation gate suppressed the event.
func (s *Session) send(event schema.Event) bool {
	if s.disabled && event.Type != schema.EventSpecialResponse {
		s.logger.Debug("session event suppressed", "type", event.Type, "reason", "disabled")
		return false
	}
	if s.generation <= s.generationSent && event.Type != schema.EventInit && event.Type != schema.EventRefresh {
		s.logger.Debug("session event suppressed", "type", event.Type, "gen", s.generation, "reason", "generation already sent")
		return false
	}
	event.Gen = s.generation
	s.generationSent = s.generation

	if event.Type.CarriesPartial() {
		for _, id := range s.order {
			win := s.windows[id]
			savePartial := (event.Type != schema.EventLine && event.Type != schema.EventChar) ||
				event.Window == nil || *event.Window != win.id
			if !savePartial || win.input == nil || win.input.kind() != schema.InputLine || win.input.value == "" {
				continue
			}
			if event.Partial == nil {
				event.Partial = make(map[schema.WindowID]string)
			}
			event.Partial[win.id] = win.input.value
		}
	}
	s.logger.Trace("session event queued", "type", event.Type, "gen", event.Gen)
	s.outbox = append(s.outbox, event)
	return true
}

// flush delivers queued events outside the session lock.
func (s *Session) flush(ctx context.Context) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.mu.Lock()
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, event := range events {
		if s.recorder != nil {
			s.recorder.RecordEvent(ctx, event)
		}
		if s.sink == nil {
			continue
		}
		if err := s.sink.Accept(ctx, event); err != nil {
			s.logger.Warn("session event delivery failed", "type", event.Type, "err", err)
		}
	}
}

// schedule runs fn under the session lock after d. fn receives its own timer
// so it can tell whether it was replaced before firing.
func (s *Session) schedule(d time.Duration, fn func(Timer)) Timer {
	var t Timer
	t = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		fn(t)
		s.mu.Unlock()
		s.flush(s.ctx)
	})
	return t
}

// violation reports a non-fatal protocol error and collects it for the
// caller of the current pass.
func (s *Session) violation(err error) {
	s.logger.Warn("session update rejected", "err", err)
	s.showError(err.Error())
	s.errs = append(s.errs, err)
}

func (s *Session) showError(msg string) {
	if msg == "" {
		msg = "???"
	}
	s.surface.ShowError(msg)
	s.errorVisible = true
	s.hideLoading()
}

func (s *Session) showLoading() {
	if s.loadingVisible {
		return
	}
	s.loadingVisible = true
	s.surface.SetLoading(true)
}

func (s *Session) hideLoading() {
	if !s.loadingVisible {
		return
	}
	s.loadingVisible = false
	s.surface.SetLoading(false)
}

func (s *Session) insertOrder(id schema.WindowID) {
	idx, found := slices.BinarySearch(s.order, id)
	if !found {
		s.order = slices.Insert(s.order, idx, id)
	}
}

func (s *Session) removeOrder(id schema.WindowID) {
	if idx, found := slices.BinarySearch(s.order, id); found {
		s.order = slices.Delete(s.order, idx, idx+1)
	}
}

// Close stops all timers, cancels background work and waits for it.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stopTimer(s.retryTimer)
	stopTimer(s.resizeTimer)
	stopTimer(s.requestTimer)
	stopTimer(s.focusTimer)
	s.retryTimer, s.resizeTimer, s.requestTimer, s.focusTimer = nil, nil, nil, nil
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Debug("session closed")
	return nil
}

// Drain waits for in-flight image loads and special input prompts.
func (s *Session) Drain() {
	s.wg.Wait()
}
