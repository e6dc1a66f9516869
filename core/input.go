package core

import (
	"fmt"
	"unicode/utf8"

	"pkt.systems/glimmer/schema"
)

// acceptInputCancel tears down input that is no longer requested, or that was
// reissued with a later generation than the one on record.
func (s *Session) acceptInputCancel(list []schema.InputRequest) {
	requested := make(map[schema.WindowID]schema.InputRequest, len(list))
	for _, req := range list {
		if req.Type != "" {
			requested[req.ID] = req
		}
	}
	for _, id := range s.order {
		win := s.windows[id]
		if win.input == nil {
			continue
		}
		req, ok := requested[id]
		if !ok || req.Gen > win.input.req.Gen {
			s.cancelInput(win)
		}
	}
}

func (s *Session) cancelInput(win *window) {
	win.input = nil
	s.surface.RemoveInput(win.id)
}

// acceptInputSet records capability flags and opens or reuses input fields.
// A live field is reused so that whatever the user has typed survives.
func (s *Session) acceptInputSet(list []schema.InputRequest) {
	requested := make(map[schema.WindowID]schema.InputRequest, len(list))
	hyperlink := make(map[schema.WindowID]bool)
	mouse := make(map[schema.WindowID]bool)
	for _, req := range list {
		if req.Type != "" {
			requested[req.ID] = req
		}
		if req.Hyperlink {
			hyperlink[req.ID] = true
		}
		if req.Mouse {
			mouse[req.ID] = true
		}
	}

	for _, id := range s.order {
		win := s.windows[id]
		win.reqHyperlink = hyperlink[id]
		win.reqMouse = mouse[id]
		req, ok := requested[id]
		if !ok {
			continue
		}
		if req.Type != schema.InputLine && req.Type != schema.InputChar {
			s.violation(fmt.Errorf("window %d requested input type %q: %w", id, req.Type, schema.ErrUnknownInputKind))
			continue
		}
		if win.input == nil {
			in := &inputState{req: req, historyPos: win.history.Len()}
			if req.Type == schema.InputLine {
				in.value = req.Initial
				in.terminators = schema.FilterTerminators(req.Terminators)
			}
			win.input = in
			win.needsScroll = true
		} else {
			win.input.req = req
		}
		if g := win.grid(); g != nil && (req.YPos < 0 || req.YPos >= len(g.lines)) {
			s.violation(fmt.Errorf("window %d requested input at line %d: %w", id, req.YPos, schema.ErrUnknownLine))
			continue
		}
		s.surface.ShowInput(id, win.inputInfo())
	}
}

// submitLine records the line in history and sends it. Empty lines are sent
// but not recorded.
func (s *Session) submitLine(win *window, value, terminator string) {
	win.history.Append(value)
	s.send(schema.Event{
		Type:       schema.EventLine,
		Window:     schema.WindowRef(win.id),
		Value:      value,
		Terminator: terminator,
	})
}

func (s *Session) submitChar(win *window, key string) {
	s.send(schema.Event{
		Type:   schema.EventChar,
		Window: schema.WindowRef(win.id),
		Value:  key,
	})
}

// inputKey handles a keystroke delivered to win's input field. It reports
// whether the key was consumed.
func (s *Session) inputKey(win *window, key string) bool {
	in := win.input
	if in == nil {
		return false
	}
	if in.kind() == schema.InputChar {
		s.submitChar(win, key)
		return true
	}
	switch key {
	case schema.KeyUp:
		if in.historyPos > 0 {
			in.historyPos--
			s.setInputValue(win, win.history.At(in.historyPos))
		}
		return true
	case schema.KeyDown:
		if in.historyPos < win.history.Len() {
			in.historyPos++
			s.setInputValue(win, win.history.At(in.historyPos))
		}
		return true
	case schema.KeyReturn:
		s.submitLine(win, in.value, "")
		return true
	case schema.KeyDelete:
		if in.value != "" {
			_, size := utf8.DecodeLastRuneInString(in.value)
			s.setInputValue(win, in.value[:len(in.value)-size])
		}
		return true
	}
	if in.isTerminator(key) {
		s.submitLine(win, in.value, key)
		return true
	}
	if isPrintable(key) {
		s.appendInput(win, key)
		return true
	}
	return false
}

func (s *Session) appendInput(win *window, text string) {
	in := win.input
	if limit := in.req.MaxLen; limit > 0 && utf8.RuneCountInString(in.value)+utf8.RuneCountInString(text) > limit {
		return
	}
	s.setInputValue(win, in.value+text)
}

func (s *Session) setInputValue(win *window, value string) {
	win.input.value = value
	s.surface.SetInputValue(win.id, value)
}

func isPrintable(key string) bool {
	r, size := utf8.DecodeRuneInString(key)
	return size > 0 && size == len(key) && r >= 0x20 && r != 0x7f
}

// acceptSpecialInput asks the special input service in the background. The
// reply is sent as a specialresponse once the current pass has finished; a
// failed prompt replies with a null value.
func (s *Session) acceptSpecialInput(req schema.SpecialInputRequest) {
	if req.Type != schema.SpecialInputFileRef {
		s.violation(fmt.Errorf("special input %q: %w", req.Type, schema.ErrUnknownSpecialInput))
		return
	}
	fileReq := FileRefRequest{Writable: req.Writable(), FileType: req.FileType, GameID: req.GameID}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var ref any
		if s.special == nil {
			s.logger.Info("special input unavailable", "type", req.Type)
		} else {
			value, err := s.special.PromptFileRef(s.ctx, fileReq)
			if err != nil {
				s.logger.Info("special input failed", "type", req.Type, "err", err)
			} else {
				ref = value
			}
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.send(schema.Event{Type: schema.EventSpecialResponse, Response: schema.SpecialInputFileRef, Value: ref})
		s.mu.Unlock()
		s.flush(s.ctx)
	}()
}
