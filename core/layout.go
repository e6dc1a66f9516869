package core

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/glimmer/schema"
)

// bufferLayout estimates where paragraphs land inside a buffer window frame.
// Text wraps at the number of buffer character cells that fit the frame, so
// offsets are whole multiples of the buffer line height plus the top padding.
type bufferLayout struct {
	cols        int
	charWidth   float64
	rowHeight   float64
	padTop      float64
	padBottom   float64
	frameHeight float64
}

func newBufferLayout(m schema.Metrics, width, height float64) bufferLayout {
	m = m.Normalize()
	cols := int(math.Floor((width - m.BufferMarginX) / m.BufferCharWidth))
	if cols < 1 {
		cols = 1
	}
	pad := math.Max(m.BufferMarginY, 0) / 2
	return bufferLayout{
		cols:        cols,
		charWidth:   m.BufferCharWidth,
		rowHeight:   m.BufferCharHeight,
		padTop:      pad,
		padBottom:   math.Max(m.BufferMarginY, 0) - pad,
		frameHeight: math.Max(height, 0),
	}
}

// rows returns how many text rows a paragraph occupies. A blank paragraph
// still takes one row.
func (l bufferLayout) rows(p paragraph) int {
	if p.blank || len(p.runs) == 0 {
		return 1
	}
	rows := 1
	col := 0
	for _, run := range p.runs {
		switch run.Kind {
		case schema.RunText:
			for _, r := range run.Text {
				if r == '\n' {
					rows++
					col = 0
					continue
				}
				w := runewidth.RuneWidth(r)
				if col+w > l.cols && col > 0 {
					rows++
					col = 0
				}
				col += w
			}
		case schema.RunImage:
			if run.Image == nil || isMarginAlignment(run.Image.Alignment) {
				continue
			}
			w := int(math.Ceil(float64(run.Image.Width) / l.charWidth))
			if col+w > l.cols && col > 0 {
				rows++
				col = 0
			}
			col += w
			if extra := int(math.Ceil(float64(run.Image.Height)/l.rowHeight)) - 1; extra > 0 {
				rows += extra
			}
		}
	}
	return rows
}

func (l bufferLayout) height(p paragraph) float64 {
	return float64(l.rows(p)) * l.rowHeight
}

// offsetTop is the distance from the top of the frame content to paragraph i.
func (l bufferLayout) offsetTop(ps []paragraph, i int) float64 {
	top := l.padTop
	for idx := 0; idx < i && idx < len(ps); idx++ {
		top += l.height(ps[idx])
	}
	return top
}

// lastLineTop is the offset of the last paragraph, or zero when empty.
func (l bufferLayout) lastLineTop(ps []paragraph) float64 {
	if len(ps) == 0 {
		return 0
	}
	return l.offsetTop(ps, len(ps)-1)
}

func (l bufferLayout) scrollHeight(ps []paragraph) float64 {
	return math.Max(l.frameHeight, l.offsetTop(ps, len(ps))+l.padBottom)
}

func (l bufferLayout) maxScroll(ps []paragraph) float64 {
	return math.Max(l.scrollHeight(ps)-l.frameHeight, 0)
}

func isMarginAlignment(alignment string) bool {
	return strings.HasPrefix(alignment, "margin")
}
