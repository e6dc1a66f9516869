package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RunKind tags a styled run.
type RunKind int

const (
	// RunText is a span of styled text, optionally hyperlinked.
	RunText RunKind = iota
	// RunImage is an inline or margin image inside a buffer paragraph.
	RunImage
	// RunSpecial is a special entry the client does not understand.
	RunSpecial
)

// Run is one element of a line or paragraph. On the wire a run is either an
// object ({"style","text","hyperlink"} or {"special":...}) or a bare
// [style, text] pair flattened into the content array; both decode to Run.
type Run struct {
	Kind      RunKind
	Style     string
	Text      string
	Hyperlink int64
	Special   string
	Image     *ImageRun
}

// ImageRun describes an image placed in a buffer window.
type ImageRun struct {
	Image     int    `json:"image"`
	URL       string `json:"url,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Alignment string `json:"alignment,omitempty"`
	AltText   string `json:"alttext,omitempty"`
}

// ImageAlignments lists the image alignments understood for buffer images.
var ImageAlignments = []string{"inlineup", "inlinedown", "inlinecenter", "marginleft", "marginright"}

type wireRun struct {
	Special   string `json:"special,omitempty"`
	Style     string `json:"style,omitempty"`
	Text      string `json:"text,omitempty"`
	Hyperlink int64  `json:"hyperlink,omitempty"`
	Image     int    `json:"image,omitempty"`
	URL       string `json:"url,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Alignment string `json:"alignment,omitempty"`
	AltText   string `json:"alttext,omitempty"`
}

// Runs is a run list with the wire normalization applied.
type Runs []Run

// UnmarshalJSON decodes a mixed content array into tagged runs.
func (r *Runs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: content: %v", ErrInvalidMessage, err)
	}
	out := make(Runs, 0, len(items))
	for i := 0; i < len(items); i++ {
		item := bytes.TrimSpace(items[i])
		if len(item) > 0 && item[0] == '"' {
			var style string
			if err := json.Unmarshal(item, &style); err != nil {
				return fmt.Errorf("%w: content style: %v", ErrInvalidMessage, err)
			}
			i++
			if i >= len(items) {
				return fmt.Errorf("%w: content style %q has no text", ErrInvalidMessage, style)
			}
			var text string
			if err := json.Unmarshal(items[i], &text); err != nil {
				return fmt.Errorf("%w: content text: %v", ErrInvalidMessage, err)
			}
			out = append(out, Run{Kind: RunText, Style: style, Text: text})
			continue
		}
		var wire wireRun
		if err := json.Unmarshal(item, &wire); err != nil {
			return fmt.Errorf("%w: content run: %v", ErrInvalidMessage, err)
		}
		out = append(out, wire.run())
	}
	*r = out
	return nil
}

// MarshalJSON encodes runs in object form.
func (r Runs) MarshalJSON() ([]byte, error) {
	items := make([]wireRun, 0, len(r))
	for _, run := range r {
		items = append(items, wireFromRun(run))
	}
	return json.Marshal(items)
}

func (w wireRun) run() Run {
	switch w.Special {
	case "":
		return Run{Kind: RunText, Style: w.Style, Text: w.Text, Hyperlink: w.Hyperlink}
	case "image":
		return Run{
			Kind:      RunImage,
			Special:   w.Special,
			Hyperlink: w.Hyperlink,
			Image: &ImageRun{
				Image:     w.Image,
				URL:       w.URL,
				Width:     w.Width,
				Height:    w.Height,
				Alignment: w.Alignment,
				AltText:   w.AltText,
			},
		}
	default:
		return Run{Kind: RunSpecial, Special: w.Special}
	}
}

func wireFromRun(run Run) wireRun {
	switch run.Kind {
	case RunImage:
		w := wireRun{Special: "image", Hyperlink: run.Hyperlink}
		if run.Image != nil {
			w.Image = run.Image.Image
			w.URL = run.Image.URL
			w.Width = run.Image.Width
			w.Height = run.Image.Height
			w.Alignment = run.Image.Alignment
			w.AltText = run.Image.AltText
		}
		return w
	case RunSpecial:
		return wireRun{Special: run.Special}
	default:
		return wireRun{Style: run.Style, Text: run.Text, Hyperlink: run.Hyperlink}
	}
}

// PlainText concatenates the text of all text runs.
func (r Runs) PlainText() string {
	var b bytes.Buffer
	for _, run := range r {
		if run.Kind == RunText {
			b.WriteString(run.Text)
		}
	}
	return b.String()
}
