package core

import "pkt.systems/glimmer/schema"

type drawEntry struct {
	window schema.WindowID
	op     schema.DrawOp
}

// drawQueue is the single FIFO of graphics operations for all windows. The
// head entry stays queued while its image is loading.
type drawQueue struct {
	ops      []drawEntry
	inFlight bool
	cache    map[int]Image
}

func newDrawQueue() drawQueue {
	return drawQueue{cache: make(map[int]Image)}
}

type loadResult struct {
	img Image
	ok  bool
}

// enqueueDraw appends ops and starts the runner if the queue was idle.
func (s *Session) enqueueDraw(id schema.WindowID, ops []schema.DrawOp) {
	idle := len(s.draw.ops) == 0
	for _, op := range ops {
		s.draw.ops = append(s.draw.ops, drawEntry{window: id, op: op})
	}
	if idle && !s.draw.inFlight && len(s.draw.ops) > 0 {
		s.runDrawQueue(nil)
	}
}

// runDrawQueue executes queued ops in order until the queue is empty or an
// image has to be fetched. loaded carries the result for the head entry when
// resuming after a fetch.
func (s *Session) runDrawQueue(loaded *loadResult) {
	for len(s.draw.ops) > 0 {
		entry := s.draw.ops[0]
		win := s.windows[entry.window]
		g := (*graphicsState)(nil)
		if win != nil {
			g = win.graphics()
		}
		if g == nil {
			s.logger.Debug("draw op skipped", "window", int(entry.window), "reason", "no graphics window")
			s.draw.ops = s.draw.ops[1:]
			loaded = nil
			continue
		}

		op := entry.op
		switch op.Kind {
		case schema.DrawSetColor:
			g.defColor = op.Color
		case schema.DrawFill:
			color := op.Color
			if color == "" {
				color = g.defColor
			}
			if op.Rect == nil {
				g.background = color
			}
			s.surface.Fill(win.id, color, op.Rect)
		case schema.DrawImage:
			if loaded == nil {
				if img, ok := s.draw.cache[op.Image]; ok && img.usable() {
					loaded = &loadResult{img: img, ok: true}
				} else {
					delete(s.draw.cache, op.Image)
				}
			}
			if loaded == nil {
				if s.images == nil {
					loaded = &loadResult{}
				} else {
					s.startImageLoad(op)
					return
				}
			}
			if loaded.ok {
				s.draw.cache[op.Image] = loaded.img
				s.surface.DrawImage(win.id, loaded.img, imageRect(op.Rect, loaded.img))
			} else {
				s.logger.Info("draw image skipped", "window", int(win.id), "image", op.Image)
			}
			loaded = nil
		default:
			s.logger.Warn("draw op unknown", "window", int(win.id), "op", op.Kind, "err", schema.ErrUnknownDrawOp)
		}
		s.draw.ops = s.draw.ops[1:]
	}
}

// startImageLoad fetches the head entry's image in the background and
// resumes the queue when it completes or fails.
func (s *Session) startImageLoad(op schema.DrawOp) {
	s.draw.inFlight = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		img, err := s.images.Load(s.ctx, op.Image, op.URL)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.draw.inFlight = false
		result := &loadResult{img: img, ok: err == nil && img.usable()}
		if err != nil {
			s.logger.Info("draw image load failed", "image", op.Image, "url", op.URL, "err", err)
		}
		s.runDrawQueue(result)
		s.mu.Unlock()
		s.flush(s.ctx)
	}()
}

func imageRect(rect *schema.Rect, img Image) schema.Rect {
	if rect == nil {
		return schema.Rect{Width: img.Width, Height: img.Height}
	}
	out := *rect
	if out.Width <= 0 {
		out.Width = img.Width
	}
	if out.Height <= 0 {
		out.Height = img.Height
	}
	return out
}
