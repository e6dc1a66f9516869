package termui

import (
	"context"
	"os"
	"time"

	"golang.org/x/term"
)

// Terminal is a local terminal switched to raw mode.
type Terminal struct {
	in      *os.File
	out     *os.File
	restore func()
}

// OpenTerminal puts in into raw mode when both files are terminals. ok is
// false for pipes and redirected files, which are used as they are.
func OpenTerminal(in, out *os.File) (*Terminal, bool, error) {
	t := &Terminal{in: in, out: out, restore: func() {}}
	if !term.IsTerminal(int(in.Fd())) || !term.IsTerminal(int(out.Fd())) {
		return t, false, nil
	}
	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, false, err
	}
	t.restore = func() { _ = term.Restore(int(in.Fd()), state) }
	return t, true, nil
}

// Size returns the output terminal size, or the fallback when unknown.
func (t *Terminal) Size(fallbackCols, fallbackRows int) (int, int) {
	cols, rows, err := term.GetSize(int(t.out.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return fallbackCols, fallbackRows
	}
	return cols, rows
}

// WatchSize polls the terminal size and calls fn after every change until
// ctx is done.
func (t *Terminal) WatchSize(ctx context.Context, interval time.Duration, fn func(cols, rows int)) {
	cols, rows := t.Size(0, 0)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, r := t.Size(0, 0)
			if c > 0 && r > 0 && (c != cols || r != rows) {
				cols, rows = c, r
				fn(c, r)
			}
		}
	}
}

// Restore leaves raw mode.
func (t *Terminal) Restore() {
	t.restore()
}
