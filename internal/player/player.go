package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/internal/eventbus"
	"pkt.systems/glimmer/internal/fileref"
	"pkt.systems/glimmer/internal/peer"
	"pkt.systems/glimmer/internal/persist"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/internal/termui"
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Size is a terminal size in character cells.
type Size struct {
	Cols int
	Rows int
}

// Options configures one play session.
type Options struct {
	// Story names the autosave slot.
	Story string
	// SessionID names the session; one is generated when empty.
	SessionID schema.SessionID
	Session   schema.SessionConfig
	Peer      peer.Config
	Screen    termui.Options

	In  io.Reader
	Out io.Writer
	// Resize delivers terminal size changes; it may be nil.
	Resize <-chan Size

	Images   core.ImageLoader
	Recorder core.Recorder
	// Recording, when its URL is set, posts this session's transcript.
	Recording recording.Config
	Autosave  *persist.Store
	// SaveDir enables file reference prompts.
	SaveDir string
	Monitor *eventbus.Bus
	Logger  pslog.Logger
}

const recordingFlushTimeout = 5 * time.Second

// Transport is the peer connection a session is driven over.
type Transport interface {
	core.EventSink
	Next(ctx context.Context) (schema.Update, error)
	Close() error
}

// Run starts the peer and plays until the user quits, the peer exits or
// ctx is done.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	peerCfg := opts.Peer
	if peerCfg.Logger == nil {
		peerCfg.Logger = log
	}
	p, err := peer.Start(ctx, peerCfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	return Play(ctx, p, opts)
}

// Play drives a session over transport t.
func Play(ctx context.Context, t Transport, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	screen := termui.New(opts.Screen)

	id := opts.SessionID
	if id == "" {
		id = core.NewSessionID()
	}
	deps := core.SessionDeps{
		ID:      id,
		Surface: screen,
		Metrics: screen,
		Sink:    t,
		Images:  opts.Images,
		Logger:  log,
	}
	if opts.SaveDir != "" {
		special, err := fileref.New(opts.SaveDir, screen, log)
		if err != nil {
			return err
		}
		deps.SpecialInput = special
	}
	var recorders multiRecorder
	if opts.Recorder != nil {
		recorders = append(recorders, opts.Recorder)
	}
	if opts.Recording.URL != "" {
		cfg := opts.Recording
		cfg.SessionID = string(id)
		if cfg.Logger == nil {
			cfg.Logger = log
		}
		rec, err := recording.New(cfg)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordingFlushTimeout)
			defer cancel()
			if err := rec.Close(closeCtx); err != nil {
				log.Warn("recording flush failed", "err", err)
			}
		}()
		recorders = append(recorders, rec)
	}
	if opts.Monitor != nil {
		monitor := opts.Monitor.Monitor(id)
		recorders = append(recorders, monitor)
		deps.Debug = monitor
	}
	if len(recorders) > 0 {
		deps.Recorder = recorders
	}
	sess, err := core.NewSession(ctx, opts.Session, deps)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	log = log.With("session", id)

	var restore *schema.AllState
	if opts.Autosave != nil && opts.Story != "" {
		save, ok, err := opts.Autosave.Load(opts.Story)
		if err != nil {
			log.Warn("autosave ignored", "err", err)
		} else if ok {
			restore = &save.State
			log.Info("autosave found", "story", opts.Story, "gen", save.Gen, "saved_at", save.SavedAt)
		}
	}

	if err := sess.Init(ctx); err != nil {
		_ = screen.Render(opts.Out)
		return fmt.Errorf("session init: %w", err)
	}
	log.Info("play start", "story", opts.Story)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan schema.Update)
	peerDone := make(chan error, 1)
	go func() {
		for {
			update, err := t.Next(runCtx)
			if err != nil {
				peerDone <- err
				return
			}
			select {
			case updates <- update:
			case <-runCtx.Done():
				peerDone <- runCtx.Err()
				return
			}
		}
	}()

	keys := make(chan string, 16)
	if opts.In != nil {
		go termui.ReadKeys(runCtx, opts.In, keys)
	}

	render := func() {
		if err := screen.Render(opts.Out); err != nil {
			log.Debug("play render failed", "err", err)
		}
	}
	render()

	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-keys:
			if !ok {
				log.Info("play input closed")
				return nil
			}
			if screen.HandleKey(ctx, sess, key) {
				log.Info("play quit")
				return nil
			}
		case size, ok := <-opts.Resize:
			if ok {
				screen.SetSize(size.Cols, size.Rows)
				sess.Resize()
			}
		case update := <-updates:
			if first && restore != nil && update.Autorestore == nil {
				update.Autorestore = restore
			}
			first = false
			if err := sess.Update(ctx, update); err != nil {
				log.Debug("play update rejected items", "err", err)
			}
			saveTurn(log, opts, sess, update.Gen)
		case err := <-peerDone:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Info("play peer ended", "err", err)
			sess.Error("The story has ended: " + err.Error())
			render()
			return nil
		case <-screen.Changed():
			render()
		}
	}
}

func saveTurn(log pslog.Logger, opts Options, sess *core.Session, gen int) {
	if opts.Autosave == nil || opts.Story == "" {
		return
	}
	save := persist.Autosave{Story: opts.Story, Gen: gen, State: sess.SaveAllState()}
	if err := opts.Autosave.Save(save); err != nil {
		log.Warn("autosave failed", "err", err)
	}
}

// multiRecorder fans recordings out to several recorders.
type multiRecorder []core.Recorder

func (m multiRecorder) RecordUpdate(ctx context.Context, update schema.Update) {
	for _, r := range m {
		r.RecordUpdate(ctx, update)
	}
}

func (m multiRecorder) RecordEvent(ctx context.Context, event schema.Event) {
	for _, r := range m {
		r.RecordEvent(ctx, event)
	}
}
