package core

import "pkt.systems/glimmer/schema"

// paragraph is one buffer line. A blank paragraph renders as an empty line
// until content is appended to it.
type paragraph struct {
	runs      schema.Runs
	blank     bool
	flowBreak bool
}

func (p paragraph) view() ParagraphView {
	return ParagraphView{
		Runs:      append(schema.Runs(nil), p.runs...),
		Blank:     p.blank,
		FlowBreak: p.flowBreak,
	}
}

// bufferState stores scrollback paragraphs and the scroll cursors, all in
// pixels from the top of the frame content.
type bufferState struct {
	paragraphs   []paragraph
	topUnseen    float64
	pageFromMark float64
	scrollTop    float64
	morePrompt   bool
}

func (*bufferState) kind() schema.WindowKind { return schema.WindowBuffer }

// apply merges text into the buffer and trims it to maxParagraphs. It
// returns the change for the surface and the number of unknown special runs
// that were dropped.
func (b *bufferState) apply(clear bool, text []schema.Paragraph, maxParagraphs int, layout bufferLayout) (BufferUpdate, int) {
	update := BufferUpdate{Clear: clear, From: len(b.paragraphs)}
	if clear {
		b.paragraphs = nil
		b.topUnseen = 0
		b.pageFromMark = 0
		b.scrollTop = 0
		update.From = 0
	}
	dropped := 0
	for _, entry := range text {
		idx := -1
		if entry.Append {
			if len(entry.Content) == 0 {
				continue
			}
			if n := len(b.paragraphs); n > 0 {
				idx = n - 1
			}
		}
		if idx < 0 {
			b.paragraphs = append(b.paragraphs, paragraph{blank: true})
			idx = len(b.paragraphs) - 1
		}
		if idx < update.From {
			update.From = idx
		}
		p := &b.paragraphs[idx]
		if entry.FlowBreak {
			p.flowBreak = true
		}
		runs, skipped := bufferRuns(entry.Content)
		dropped += skipped
		if len(runs) == 0 {
			continue
		}
		if p.blank {
			p.blank = false
			p.runs = nil
		}
		p.runs = append(p.runs, runs...)
	}
	for _, p := range b.paragraphs[update.From:] {
		update.Paragraphs = append(update.Paragraphs, p.view())
	}

	if maxParagraphs > 0 {
		if excess := len(b.paragraphs) - maxParagraphs; excess > 0 {
			extent := layout.offsetTop(b.paragraphs, excess) - layout.offsetTop(b.paragraphs, 0)
			b.topUnseen = max(b.topUnseen-extent, 0)
			b.pageFromMark = max(b.pageFromMark-extent, 0)
			b.scrollTop = max(b.scrollTop-extent, 0)
			b.paragraphs = append([]paragraph(nil), b.paragraphs[excess:]...)
			update.Trimmed = excess
		}
	}
	return update, dropped
}

// bufferRuns keeps text and image runs; other specials are dropped.
func bufferRuns(runs schema.Runs) (schema.Runs, int) {
	out := make(schema.Runs, 0, len(runs))
	dropped := 0
	for _, run := range runs {
		if run.Kind == schema.RunSpecial {
			dropped++
			continue
		}
		out = append(out, run)
	}
	return out, dropped
}

// gridRuns keeps only text runs; grid lines ignore every special entry.
func gridRuns(runs schema.Runs) schema.Runs {
	out := make(schema.Runs, 0, len(runs))
	for _, run := range runs {
		if run.Kind == schema.RunText {
			out = append(out, run)
		}
	}
	return out
}

func (b *bufferState) viewport(layout bufferLayout) Viewport {
	return Viewport{
		ScrollTop:    b.scrollTop,
		FrameHeight:  layout.frameHeight,
		ScrollHeight: layout.scrollHeight(b.paragraphs),
		TopUnseen:    b.topUnseen,
	}
}

func (b *bufferState) setScrollTop(top float64, layout bufferLayout) {
	b.scrollTop = min(max(top, 0), layout.maxScroll(b.paragraphs))
}

func (b *bufferState) plainText() []string {
	lines := make([]string, 0, len(b.paragraphs))
	for _, p := range b.paragraphs {
		lines = append(lines, p.runs.PlainText())
	}
	return lines
}
