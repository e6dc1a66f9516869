package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Config describes the peer command.
type Config struct {
	Command string
	Args    []string
	// Env is added to the current environment.
	Env map[string]string
	Dir string
	// Stderr receives the peer's standard error; it is discarded when nil.
	Stderr io.Writer
	// StopTimeout is how long Close waits after SIGTERM before SIGKILL.
	StopTimeout time.Duration
	Logger      pslog.Logger
}

// Process is a running peer. Its Stream carries the message exchange.
type Process struct {
	*Stream

	cmd         *exec.Cmd
	log         pslog.Logger
	stopTimeout time.Duration

	waitDone chan struct{}
	waitErr  error
	stopOnce sync.Once
	stopErr  error
}

// Start launches the peer command in its own process group.
func Start(ctx context.Context, cfg Config) (*Process, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("peer command is required")
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	log = log.With("peer", cfg.Command)
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = mergeEnv(os.Environ(), cfg.Env)
	cmd.Stderr = cfg.Stderr
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("peer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("peer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("peer start failed", "err", err)
		return nil, fmt.Errorf("peer start: %w", err)
	}
	log = log.With("pid", cmd.Process.Pid)
	log.Info("peer started", "args", len(cfg.Args), "dir", cfg.Dir)

	stop := cfg.StopTimeout
	if stop <= 0 {
		stop = 2 * time.Second
	}
	p := &Process{
		Stream:      NewStream(stdout, stdin, log),
		cmd:         cmd,
		log:         log,
		stopTimeout: stop,
		waitDone:    make(chan struct{}),
	}
	go func() {
		// Wait closes stdout, so the reader must drain it first.
		<-p.Stream.Done()
		p.waitErr = cmd.Wait()
		close(p.waitDone)
		if p.waitErr != nil {
			log.Debug("peer exited", "err", p.waitErr)
		} else {
			log.Debug("peer exited")
		}
	}()
	return p, nil
}

// Exited is closed after the peer process has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.waitDone
}

// Err returns the peer's exit status once Exited is closed.
func (p *Process) Err() error {
	select {
	case <-p.waitDone:
		return p.waitErr
	default:
		return nil
	}
}

// Close closes the peer's stdin, then terminates its process group: SIGTERM
// first and SIGKILL after the stop timeout.
func (p *Process) Close() error {
	p.stopOnce.Do(func() {
		_ = p.Stream.Close()
		select {
		case <-p.waitDone:
			return
		case <-time.After(50 * time.Millisecond):
		}
		if err := signalGroup(p.cmd, sigTerm); err != nil {
			p.log.Debug("peer terminate failed", "err", err)
		}
		select {
		case <-p.waitDone:
			return
		case <-time.After(p.stopTimeout):
		}
		p.log.Warn("peer did not stop; killing", "timeout", p.stopTimeout)
		if err := signalGroup(p.cmd, sigKill); err != nil {
			p.stopErr = err
		}
		<-p.waitDone
	})
	return p.stopErr
}

// Next returns the next update. After the peer has exited and its output
// is drained, Next reports an error update carrying the exit status.
func (p *Process) Next(ctx context.Context) (schema.Update, error) {
	update, err := p.Stream.Next(ctx)
	if err != nil && errors.Is(err, ErrClosed) {
		select {
		case <-p.waitDone:
			if p.waitErr != nil {
				return schema.Update{}, fmt.Errorf("%w: %v", err, p.waitErr)
			}
		case <-ctx.Done():
		}
	}
	return update, err
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[name]; ok {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
