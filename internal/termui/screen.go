package termui

import (
	"context"
	"slices"
	"sync"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// Options configures a Screen.
type Options struct {
	// Width and Height are the terminal size in character cells.
	Width  int
	Height int
	// ANSI enables styles and full-screen redraws; plain output otherwise.
	ANSI   bool
	Theme  string
	Logger pslog.Logger
}

type view struct {
	info       core.WindowInfo
	grid       []schema.Runs
	paragraphs []core.ParagraphView
	viewport   core.Viewport
	scrolled   bool
	more       bool
	input      *core.InputInfo
	canvas     core.CanvasInfo
	background string
	images     int
}

// Screen renders the window model as text in a fixed grid of character
// cells, one cell per layout pixel. The bottom row is the status line.
// Screen implements core.Surface and core.MetricsProvider.
type Screen struct {
	mu    sync.Mutex
	ansi  bool
	theme theme
	log   pslog.Logger

	cols int
	rows int

	windows       map[schema.WindowID]*view
	focus         schema.WindowID
	inputsEnabled bool
	errMsg        string
	warning       string
	loading       bool
	prompt        *linePrompt

	changed chan struct{}
}

// New constructs a Screen.
func New(opts Options) *Screen {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Screen{
		ansi:          opts.ANSI,
		theme:         themeForName(opts.Theme),
		log:           log,
		cols:          opts.Width,
		rows:          opts.Height,
		windows:       make(map[schema.WindowID]*view),
		inputsEnabled: true,
		loading:       true,
		changed:       make(chan struct{}, 1),
	}
}

// Changed receives a value whenever the screen content changed since the
// last receive.
func (s *Screen) Changed() <-chan struct{} {
	return s.changed
}

func (s *Screen) touch() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// SetSize records a new terminal size. The session must be told with Resize.
func (s *Screen) SetSize(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	s.log.Debug("screen resize", "cols", cols, "rows", rows)
	s.touch()
}

// Size returns the terminal size in cells.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Measure reports one layout pixel per character cell. The status line is
// not part of the layout area.
func (s *Screen) Measure() (schema.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cols <= 0 || s.rows <= 1 {
		return schema.Metrics{}, schema.ErrMissingSurface
	}
	return schema.Metrics{
		Width:            float64(s.cols),
		Height:           float64(s.rows - 1),
		GridCharWidth:    1,
		GridCharHeight:   1,
		BufferCharWidth:  1,
		BufferCharHeight: 1,
	}, nil
}

// PixelRatio is always 1 for a character grid.
func (s *Screen) PixelRatio() float64 {
	return 1
}

func (s *Screen) CreateWindow(info core.WindowInfo) {
	s.mu.Lock()
	s.windows[info.ID] = &view{info: info, grid: make([]schema.Runs, info.GridHeight)}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) UpdateWindow(info core.WindowInfo) {
	s.mu.Lock()
	if v := s.windows[info.ID]; v != nil {
		v.info = info
		if info.Kind == schema.WindowGrid && len(v.grid) != info.GridHeight {
			grid := make([]schema.Runs, info.GridHeight)
			copy(grid, v.grid)
			v.grid = grid
		}
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) CloseWindow(id schema.WindowID) {
	s.mu.Lock()
	delete(s.windows, id)
	if s.focus == id {
		s.focus = 0
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) SetGridLine(id schema.WindowID, line int, runs schema.Runs) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil && line >= 0 && line < len(v.grid) {
		v.grid[line] = runs
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) UpdateBuffer(id schema.WindowID, update core.BufferUpdate) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		if update.Clear {
			v.paragraphs = nil
			v.scrolled = false
		}
		from := min(max(update.From, 0), len(v.paragraphs))
		v.paragraphs = append(v.paragraphs[:from], update.Paragraphs...)
		if update.Trimmed > 0 {
			v.paragraphs = slices.Delete(v.paragraphs, 0, min(update.Trimmed, len(v.paragraphs)))
		}
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) ScrollBuffer(id schema.WindowID, vp core.Viewport) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		v.viewport = vp
		v.scrolled = true
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) SetMorePrompt(id schema.WindowID, visible bool, _ float64) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		v.more = visible
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) ConfigureCanvas(id schema.WindowID, canvas core.CanvasInfo) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		v.canvas = canvas
		v.background = canvas.Background
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) Fill(id schema.WindowID, color string, rect *schema.Rect) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil && rect == nil {
		v.background = color
		v.images = 0
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) DrawImage(id schema.WindowID, _ core.Image, _ schema.Rect) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		v.images++
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) ShowInput(id schema.WindowID, input core.InputInfo) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		in := input
		v.input = &in
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) SetInputValue(id schema.WindowID, value string) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil && v.input != nil {
		v.input.Value = value
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) RemoveInput(id schema.WindowID) {
	s.mu.Lock()
	if v := s.windows[id]; v != nil {
		v.input = nil
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) SetInputsEnabled(enabled bool) {
	s.mu.Lock()
	s.inputsEnabled = enabled
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) Focus(id schema.WindowID) {
	s.mu.Lock()
	s.focus = id
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) ShowError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.log.Debug("screen error shown", "message", msg)
	s.touch()
}

func (s *Screen) ShowWarning(msg string) {
	s.mu.Lock()
	s.warning = msg
	s.mu.Unlock()
	s.touch()
}

func (s *Screen) SetLoading(visible bool) {
	s.mu.Lock()
	s.loading = visible
	s.mu.Unlock()
	s.touch()
}

// Focused returns the window that has keyboard focus, or 0.
func (s *Screen) Focused() schema.WindowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Paging reports whether any buffer window shows its more prompt.
func (s *Screen) Paging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.windows {
		if v.more {
			return true
		}
	}
	return false
}

func (s *Screen) sortedIDs() []schema.WindowID {
	ids := make([]schema.WindowID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
