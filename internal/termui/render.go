package termui

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/glimmer/schema"
)

type cell struct {
	r     rune
	style string
	// cont marks the right half of a double-width rune.
	cont bool
}

type canvas struct {
	cols  int
	cells [][]cell
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, cells: make([][]cell, rows)}
	for i := range c.cells {
		row := make([]cell, cols)
		for j := range row {
			row[j] = cell{r: ' '}
		}
		c.cells[i] = row
	}
	return c
}

// put writes text at row/col, clipped to limit columns. It returns the
// column after the last rune written.
func (c *canvas) put(row, col, limit int, text, style string) int {
	if row < 0 || row >= len(c.cells) {
		return col
	}
	end := min(col+limit, c.cols)
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > end {
			break
		}
		if col >= 0 {
			c.cells[row][col] = cell{r: r, style: style}
			if w == 2 {
				c.cells[row][col+1] = cell{cont: true, style: style}
			}
		}
		col += w
	}
	return col
}

func (c *canvas) lines(ansi bool) []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		var b strings.Builder
		current := ""
		for _, cl := range row {
			if cl.cont {
				continue
			}
			if ansi && cl.style != current {
				b.WriteString(ansiReset)
				b.WriteString(cl.style)
				current = cl.style
			}
			b.WriteRune(cl.r)
		}
		if ansi && current != "" {
			b.WriteString(ansiReset)
		}
		line := b.String()
		if !ansi {
			line = strings.TrimRight(line, " ")
		}
		out[i] = line
	}
	return out
}

// styledLine is one wrapped row of buffer text.
type styledLine struct {
	segs []segment
}

type segment struct {
	text  string
	style string
}

func (l *styledLine) add(text, style string) {
	if n := len(l.segs); n > 0 && l.segs[n-1].style == style {
		l.segs[n-1].text += text
		return
	}
	l.segs = append(l.segs, segment{text: text, style: style})
}

// wrapParagraph breaks runs at the column limit, one rune at a time, the
// same way the session lays out buffer text.
func wrapParagraph(runs schema.Runs, cols int) []styledLine {
	if cols < 1 {
		cols = 1
	}
	lines := []styledLine{{}}
	col := 0
	newline := func() {
		lines = append(lines, styledLine{})
		col = 0
	}
	for _, run := range runs {
		switch run.Kind {
		case schema.RunText:
			for _, r := range run.Text {
				if r == '\n' {
					newline()
					continue
				}
				w := runewidth.RuneWidth(r)
				if col+w > cols && col > 0 {
					newline()
				}
				lines[len(lines)-1].add(string(r), run.Style)
				col += w
			}
		case schema.RunImage:
			img := run.Image
			if img == nil || strings.HasPrefix(img.Alignment, "margin") {
				continue
			}
			w := img.Width
			if col+w > cols && col > 0 {
				newline()
			}
			label := img.AltText
			if label == "" {
				label = fmt.Sprintf("image %d", img.Image)
			}
			lines[len(lines)-1].add(runewidth.Truncate("["+label+"]", max(min(w, cols-col), 0), ""), "note")
			col += w
			for extra := img.Height - 1; extra > 0; extra-- {
				newline()
			}
		}
	}
	return lines
}

func (s *Screen) style(name string) string {
	if !s.ansi {
		return ""
	}
	return s.theme.style(name)
}

// Lines composes the current screen, status line included.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose().lines(s.ansi)
}

// Render writes the composed screen to w.
func (s *Screen) Render(w io.Writer) error {
	s.mu.Lock()
	lines := s.compose().lines(s.ansi)
	ansi := s.ansi
	s.mu.Unlock()
	var b strings.Builder
	if ansi {
		b.WriteString("\x1b[?25l\x1b[H\x1b[2J")
		b.WriteString(strings.Join(lines, "\r\n"))
		b.WriteString("\x1b[?25h")
	} else {
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Screen) compose() *canvas {
	cols, rows := max(s.cols, 1), max(s.rows, 1)
	c := newCanvas(cols, rows)
	for _, id := range s.sortedIDs() {
		v := s.windows[id]
		switch v.info.Kind {
		case schema.WindowGrid:
			s.drawGrid(c, v)
		case schema.WindowBuffer:
			s.drawBuffer(c, v)
		case schema.WindowGraphics:
			s.drawGraphics(c, v)
		}
	}
	status, style := s.statusLine()
	c.put(rows-1, 0, cols, status, style)
	return c
}

func cellRect(v *view) (left, top, width, height int) {
	left = int(math.Round(v.info.Coords.Left))
	top = int(math.Round(v.info.Coords.Top))
	width = int(math.Round(v.info.Width))
	height = int(math.Round(v.info.Height))
	return
}

func (s *Screen) drawGrid(c *canvas, v *view) {
	left, top, width, height := cellRect(v)
	for i, runs := range v.grid {
		if i >= height {
			break
		}
		col := left
		for _, run := range runs {
			if run.Kind != schema.RunText {
				continue
			}
			col = c.put(top+i, col, left+width-col, run.Text, s.style(run.Style))
		}
	}
	if in := v.input; in != nil && s.inputsEnabled {
		value := in.Value
		if in.Kind == schema.InputLine && v.info.ID == s.focus {
			value += "_"
		}
		c.put(top+in.YPos, left+in.XPos, width-in.XPos, value, s.style("input"))
	}
}

func (s *Screen) drawBuffer(c *canvas, v *view) {
	left, top, width, height := cellRect(v)
	if width <= 0 || height <= 0 {
		return
	}
	var lines []styledLine
	for _, p := range v.paragraphs {
		lines = append(lines, wrapParagraph(p.Runs, width)...)
	}
	if in := v.input; in != nil && in.Kind == schema.InputLine && s.inputsEnabled {
		value := in.Value
		if v.info.ID == s.focus {
			value += "_"
		}
		if len(lines) == 0 {
			lines = []styledLine{{}}
		}
		tail := lines[len(lines)-1]
		lines = lines[:len(lines)-1]
		runs := make(schema.Runs, 0, len(tail.segs)+1)
		for _, seg := range tail.segs {
			runs = append(runs, schema.Run{Kind: schema.RunText, Style: seg.style, Text: seg.text})
		}
		runs = append(runs, schema.Run{Kind: schema.RunText, Style: "input", Text: value})
		lines = append(lines, wrapParagraph(runs, width)...)
	}

	start := max(len(lines)-height, 0)
	if v.scrolled && !v.atBottom() {
		start = min(max(int(math.Round(v.viewport.ScrollTop)), 0), start)
	}
	end := min(start+height, len(lines))
	for i := start; i < end; i++ {
		col := left
		for _, seg := range lines[i].segs {
			col = c.put(top+i-start, col, left+width-col, seg.text, s.style(seg.style))
		}
	}
	if v.more {
		label := "[More]"
		if s.ansi {
			c.put(top+height-1, left+max(width-len(label), 0), len(label), label, ansiReverse+ansiFgRGB(s.theme.MoreFG))
		} else {
			c.put(top+height-1, left+max(width-len(label), 0), len(label), label, "")
		}
	}
}

func (v *view) atBottom() bool {
	vp := v.viewport
	return vp.ScrollTop+vp.FrameHeight >= vp.ScrollHeight
}

func (s *Screen) drawGraphics(c *canvas, v *view) {
	left, top, width, height := cellRect(v)
	if width <= 0 || height <= 0 {
		return
	}
	label := fmt.Sprintf("[graphics %dx%d %s, %d images]", v.canvas.Width, v.canvas.Height, v.background, v.images)
	style := ""
	if s.ansi {
		style = ansiFgRGB(s.theme.GraphicsFG)
		if bg, ok := parseHexColor(v.background); ok {
			style += ansiBgRGB(bg)
		}
	}
	c.put(top, left, width, runewidth.FillRight(label, width), style)
}

func (s *Screen) statusLine() (string, string) {
	color := func(fg rgb) string {
		if !s.ansi {
			return ""
		}
		return ansiFgRGB(fg)
	}
	switch {
	case s.errMsg != "":
		return "error: " + s.errMsg, color(s.theme.ErrorFG)
	case s.prompt != nil:
		return s.prompt.label + s.prompt.value + "_", color(s.theme.InputFG)
	case s.warning != "":
		return "warning: " + s.warning, color(s.theme.WarningFG)
	case s.loading:
		return "loading...", color(s.theme.StatusFG)
	}
	for _, v := range s.windows {
		if v.more {
			return "-- more -- (space or return to continue)", color(s.theme.MoreFG)
		}
	}
	return "", ""
}
