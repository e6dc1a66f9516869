package termui

import (
	"bufio"
	"context"
	"io"
	"unicode"
	"unicode/utf8"

	"pkt.systems/glimmer/schema"
)

// Control keys that never reach the session.
const (
	KeyInterrupt = "ctrl-c"
	KeyEOF       = "ctrl-d"
	KeyRedraw    = "ctrl-l"
)

// ReadKeys decodes terminal input into key names and sends them to out. A
// printable character is its own name; named keys use the schema key names.
// out is closed when r fails, reaches EOF or ctx is done.
func ReadKeys(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	emit := func(key string) {
		select {
		case out <- key:
		case <-ctx.Done():
		}
	}
	br := bufio.NewReader(r)
	lastWasCR := false
	for ctx.Err() == nil {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			if br.Buffered() == 0 {
				emit(schema.KeyEscape)
				continue
			}
			readEscape(br, emit)
		case '\r':
			emit(schema.KeyReturn)
			lastWasCR = true
		case '\n':
			emit(schema.KeyReturn)
		case 0x7f, 0x08:
			emit(schema.KeyDelete)
		case 0x09:
			emit(schema.KeyTab)
		case 0x03:
			emit(KeyInterrupt)
		case 0x04:
			emit(KeyEOF)
		case 0x0c:
			emit(KeyRedraw)
		default:
			if b < 0x20 {
				continue
			}
			if b < utf8.RuneSelf {
				emit(string(rune(b)))
				continue
			}
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			emit(string(rn))
		}
	}
}

func readEscape(br *bufio.Reader, emit func(string)) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, emit)
	case 'O':
		readSS3(br, emit)
	case 0x1b:
		emit(schema.KeyEscape)
		_ = br.UnreadByte()
	}
}

var csiKeys = map[string]string{
	"A":   schema.KeyUp,
	"B":   schema.KeyDown,
	"C":   schema.KeyRight,
	"D":   schema.KeyLeft,
	"H":   schema.KeyHome,
	"F":   schema.KeyEnd,
	"1~":  schema.KeyHome,
	"4~":  schema.KeyEnd,
	"5~":  schema.KeyPageUp,
	"6~":  schema.KeyPageDown,
	"3~":  schema.KeyDelete,
	"11~": "func1",
	"12~": "func2",
	"13~": "func3",
	"14~": "func4",
	"15~": "func5",
	"17~": "func6",
	"18~": "func7",
	"19~": "func8",
	"20~": "func9",
	"21~": "func10",
	"23~": "func11",
	"24~": "func12",
}

func readCSI(br *bufio.Reader, emit func(string)) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	if name, ok := csiKeys[string(seq)]; ok {
		emit(name)
	}
}

func readSS3(br *bufio.Reader, emit func(string)) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case 'H':
		emit(schema.KeyHome)
	case 'F':
		emit(schema.KeyEnd)
	case 'P':
		emit("func1")
	case 'Q':
		emit("func2")
	case 'R':
		emit("func3")
	case 'S':
		emit("func4")
	}
}
