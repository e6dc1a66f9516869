package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeUpdateNormalizesRuns(t *testing.T) {
	raw := `{"type":"update","gen":1,
		"windows":[{"id":1,"type":"buffer","rock":0,"left":0,"top":0,"width":400,"height":300}],
		"content":[{"id":1,"text":[{"content":["normal","Hello",{"style":"emphasized","text":" there","hyperlink":7}]},
			{"append":true,"content":[{"special":"image","image":3,"width":10,"height":12,"alignment":"marginleft"}]},
			{"content":[{"special":"flowbreak"}]}]}],
		"input":[{"id":1,"gen":1,"type":"line","maxlen":50}]}`
	u, err := DecodeUpdate([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Type != UpdateTypeUpdate || u.Gen != 1 {
		t.Fatalf("unexpected header: %+v", u)
	}
	if u.Timer != nil {
		t.Fatalf("expected absent timer")
	}
	want := Runs{
		{Kind: RunText, Style: "normal", Text: "Hello"},
		{Kind: RunText, Style: "emphasized", Text: " there", Hyperlink: 7},
	}
	if diff := cmp.Diff(want, u.Content[0].Text[0].Content); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	img := u.Content[0].Text[1].Content[0]
	if img.Kind != RunImage || img.Image == nil || img.Image.Image != 3 || img.Image.Alignment != "marginleft" {
		t.Fatalf("unexpected image run: %+v", img)
	}
	if got := u.Content[0].Text[2].Content[0].Kind; got != RunSpecial {
		t.Fatalf("expected special run, got %v", got)
	}
	if u.Content[0].Text[0].Content.PlainText() != "Hello there" {
		t.Fatalf("unexpected plain text %q", u.Content[0].Text[0].Content.PlainText())
	}
}

func TestDecodeUpdateTimerPresence(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		present  bool
		interval int
	}{
		{"absent", `{"type":"update","gen":2}`, false, 0},
		{"null", `{"type":"update","gen":2,"timer":null}`, true, 0},
		{"set", `{"type":"update","gen":2,"timer":500}`, true, 500},
	}
	for _, tc := range cases {
		u, err := DecodeUpdate([]byte(tc.raw))
		if err != nil {
			t.Fatalf("case %q decode: %v", tc.name, err)
		}
		if (u.Timer != nil) != tc.present {
			t.Fatalf("case %q expected present=%v", tc.name, tc.present)
		}
		if u.Timer != nil && u.Timer.Interval != tc.interval {
			t.Fatalf("case %q expected interval %d, got %d", tc.name, tc.interval, u.Timer.Interval)
		}
	}
}

func TestUpdateMarshalKeepsEmptyWindowList(t *testing.T) {
	u := Update{Type: UpdateTypeUpdate, Gen: 3, Windows: []WindowArg{}, Timer: &TimerRequest{}}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"windows":[]`) {
		t.Fatalf("expected empty window list in %s", text)
	}
	if !strings.Contains(text, `"timer":null`) {
		t.Fatalf("expected null timer in %s", text)
	}
	back, err := DecodeUpdate(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Windows == nil || back.Timer == nil {
		t.Fatalf("presence lost: %+v", back)
	}
}

func TestDecodeUpdateRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"gen":1}`,
		`{"type":"update","content":[{"id":1,"text":[{"content":["dangling"]}]}]}`,
		`{"type":"update","timer":"soon"}`,
		`not json`,
	}
	for _, raw := range cases {
		if _, err := DecodeUpdate([]byte(raw)); !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("expected ErrInvalidMessage for %s, got %v", raw, err)
		}
	}
}

func TestDrawOpDecode(t *testing.T) {
	var ops []DrawOp
	raw := `[{"special":"setcolor","color":"#123456"},{"special":"fill"},{"special":"fill","color":"#000","x":1,"y":2,"width":3,"height":4},{"special":"image","image":9,"url":"pict9.png","x":0,"y":0,"width":5,"height":6}]`
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []DrawOp{
		{Kind: DrawSetColor, Color: "#123456"},
		{Kind: DrawFill},
		{Kind: DrawFill, Color: "#000", Rect: &Rect{X: 1, Y: 2, Width: 3, Height: 4}},
		{Kind: DrawImage, Image: 9, URL: "pict9.png", Rect: &Rect{Width: 5, Height: 6}},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("draw ops mismatch (-want +got):\n%s", diff)
	}
}

func TestEventMarshal(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "empty-line",
			event: Event{Type: EventLine, Gen: 1, Window: WindowRef(1), Value: ""},
			want:  `{"type":"line","gen":1,"window":1,"value":""}`,
		},
		{
			name:  "failed-fileref",
			event: Event{Type: EventSpecialResponse, Gen: 4, Response: SpecialInputFileRef},
			want:  `{"type":"specialresponse","gen":4,"value":null,"response":"fileref_prompt"}`,
		},
		{
			name:  "refresh",
			event: Event{Type: EventRefresh, Gen: 2},
			want:  `{"type":"refresh","gen":2}`,
		},
		{
			name:  "partial",
			event: Event{Type: EventTimer, Gen: 5, Partial: map[WindowID]string{3: "op"}},
			want:  `{"type":"timer","gen":5,"partial":{"3":"op"}}`,
		},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.event)
		if err != nil {
			t.Fatalf("case %q marshal: %v", tc.name, err)
		}
		if string(data) != tc.want {
			t.Fatalf("case %q expected %s, got %s", tc.name, tc.want, data)
		}
	}
}

func TestMetricsMatchComparesFields(t *testing.T) {
	base := Metrics{Width: 800, Height: 600, GridCharWidth: 8, GridCharHeight: 16, BufferCharWidth: 8, BufferCharHeight: 18}
	if !base.Match(base) {
		t.Fatalf("metrics should match themselves")
	}
	margin := base
	margin.BufferMarginX = 20
	if !base.Match(margin) {
		t.Fatalf("margins should not affect matching")
	}
	wider := base
	wider.Width = 802
	if base.Match(wider) {
		t.Fatalf("width change should not match")
	}
	taller := base
	taller.BufferCharHeight = 20
	if base.Match(taller) {
		t.Fatalf("buffer cell change should not match")
	}
}
