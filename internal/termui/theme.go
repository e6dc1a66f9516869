package termui

import (
	"strconv"
	"strings"
)

type rgb struct {
	r int
	g int
	b int
}

// theme maps text styles to terminal attributes.
type theme struct {
	Name       string
	Styles     map[string]string
	MoreFG     rgb
	ErrorFG    rgb
	WarningFG  rgb
	StatusFG   rgb
	InputFG    rgb
	GraphicsFG rgb
}

const (
	ansiReset     = "\x1b[0m"
	ansiBold      = "\x1b[1m"
	ansiDim       = "\x1b[2m"
	ansiItalic    = "\x1b[3m"
	ansiUnderline = "\x1b[4m"
	ansiReverse   = "\x1b[7m"
)

const defaultTheme = "gruvbox"

var themes = map[string]theme{
	"gruvbox": {
		Name: "gruvbox",
		Styles: map[string]string{
			"emphasized":   ansiItalic,
			"preformatted": ansiFgRGB(rgb{r: 184, g: 187, b: 38}),
			"header":       ansiBold + ansiFgRGB(rgb{r: 250, g: 189, b: 47}),
			"subheader":    ansiBold,
			"alert":        ansiBold + ansiFgRGB(rgb{r: 251, g: 73, b: 52}),
			"note":         ansiFgRGB(rgb{r: 131, g: 165, b: 152}),
			"blockquote":   ansiDim,
			"input":        ansiBold + ansiFgRGB(rgb{r: 235, g: 219, b: 178}),
			"user1":        ansiFgRGB(rgb{r: 211, g: 134, b: 155}),
			"user2":        ansiFgRGB(rgb{r: 254, g: 128, b: 25}),
		},
		MoreFG:     rgb{r: 250, g: 189, b: 47},
		ErrorFG:    rgb{r: 251, g: 73, b: 52},
		WarningFG:  rgb{r: 254, g: 128, b: 25},
		StatusFG:   rgb{r: 146, g: 131, b: 116},
		InputFG:    rgb{r: 235, g: 219, b: 178},
		GraphicsFG: rgb{r: 131, g: 165, b: 152},
	},
	"tokyo-midnight": {
		Name: "tokyo-midnight",
		Styles: map[string]string{
			"emphasized":   ansiItalic,
			"preformatted": ansiFgRGB(rgb{r: 158, g: 206, b: 106}),
			"header":       ansiBold + ansiFgRGB(rgb{r: 122, g: 162, b: 247}),
			"subheader":    ansiBold,
			"alert":        ansiBold + ansiFgRGB(rgb{r: 247, g: 118, b: 142}),
			"note":         ansiFgRGB(rgb{r: 127, g: 133, b: 163}),
			"blockquote":   ansiDim,
			"input":        ansiBold + ansiFgRGB(rgb{r: 192, g: 202, b: 245}),
			"user1":        ansiFgRGB(rgb{r: 187, g: 154, b: 247}),
			"user2":        ansiFgRGB(rgb{r: 125, g: 207, b: 255}),
		},
		MoreFG:     rgb{r: 122, g: 162, b: 247},
		ErrorFG:    rgb{r: 247, g: 118, b: 142},
		WarningFG:  rgb{r: 224, g: 175, b: 104},
		StatusFG:   rgb{r: 127, g: 133, b: 163},
		InputFG:    rgb{r: 192, g: 202, b: 245},
		GraphicsFG: rgb{r: 125, g: 207, b: 255},
	},
}

func themeForName(name string) theme {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = defaultTheme
	}
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[defaultTheme]
}

// style returns the attribute sequence for a text style.
func (t theme) style(name string) string {
	return t.Styles[name]
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

// parseHexColor reads "#RGB" or "#RRGGBB".
func parseHexColor(value string) (rgb, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{r: int(v >> 16 & 0xff), g: int(v >> 8 & 0xff), b: int(v & 0xff)}, true
}
