package mdview

import (
	"errors"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme carries the colors used across the rendered document.
type Theme struct {
	BG            color.Color
	FG            color.Color
	CodeBG        color.Color
	QuoteBar      color.Color
	HRule         color.Color
	Link          color.Color
	TableHeaderBG color.Color
	// Highlight is the selection tint used by PaintHighlight.
	Highlight color.Color
}

var (
	lightTheme = Theme{
		BG:            color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		FG:            color.RGBA{0x11, 0x11, 0x11, 0xFF},
		CodeBG:        color.RGBA{0xF5, 0xF5, 0xF7, 0xFF},
		QuoteBar:      color.RGBA{0xCC, 0xCC, 0xCC, 0xFF},
		HRule:         color.RGBA{0xDD, 0xDD, 0xDD, 0xFF},
		Link:          color.RGBA{0x06, 0x4F, 0xBD, 0xFF},
		TableHeaderBG: color.RGBA{0xEE, 0xEE, 0xF1, 0xFF},
		Highlight:     color.RGBA{0xB3, 0xD7, 0xFF, 0xFF},
	}
	darkTheme = Theme{
		BG:            color.RGBA{0x12, 0x12, 0x14, 0xFF},
		FG:            color.RGBA{0xEE, 0xEE, 0xF0, 0xFF},
		CodeBG:        color.RGBA{0x1E, 0x1E, 0x22, 0xFF},
		QuoteBar:      color.RGBA{0x44, 0x44, 0x48, 0xFF},
		HRule:         color.RGBA{0x33, 0x33, 0x36, 0xFF},
		Link:          color.RGBA{0x6C, 0xA9, 0xF2, 0xFF},
		TableHeaderBG: color.RGBA{0x26, 0x26, 0x2B, 0xFF},
		Highlight:     color.RGBA{0x8A, 0xB8, 0xF0, 0xFF},
	}
	warningColor = color.RGBA{0xD9, 0x51, 0x2C, 0xFF}

	tokenColors = map[TokenType]color.Color{
		TokenKeyword:  color.RGBA{0xA6, 0x26, 0xA4, 0xFF},
		TokenString:   color.RGBA{0x3F, 0x8A, 0x31, 0xFF},
		TokenComment:  color.RGBA{0x8A, 0x8A, 0x8E, 0xFF},
		TokenNumber:   color.RGBA{0xB2, 0x6A, 0x00, 0xFF},
		TokenTypeName: color.RGBA{0x0B, 0x69, 0x8A, 0xFF},
		TokenFunction: color.RGBA{0x38, 0x4F, 0xC4, 0xFF},
	}
)

// LightTheme and DarkTheme expose the built-in themes for convenience.
var (
	LightTheme = lightTheme
	DarkTheme  = darkTheme
)

// ThemeByName returns a built-in theme by name ("light" or "dark").
func ThemeByName(name string) (Theme, error) {
	switch strings.ToLower(name) {
	case "light", "":
		return lightTheme, nil
	case "dark":
		return darkTheme, nil
	default:
		return Theme{}, errors.New("unknown theme: " + name)
	}
}

// normalized fills nil fields of a hand-built theme with usable defaults.
func (t Theme) normalized() Theme {
	if t.BG == nil {
		t.BG = lightTheme.BG
	}
	if t.FG == nil {
		t.FG = lightTheme.FG
	}
	if t.CodeBG == nil {
		t.CodeBG = lightTheme.CodeBG
	}
	if t.QuoteBar == nil {
		t.QuoteBar = lightTheme.QuoteBar
	}
	if t.HRule == nil {
		t.HRule = lightTheme.HRule
	}
	if t.Link == nil {
		t.Link = lightTheme.Link
	}
	if t.TableHeaderBG == nil {
		t.TableHeaderBG = shadeOf(t.CodeBG, -0.03)
	}
	if t.Highlight == nil {
		t.Highlight = lightTheme.Highlight
	}
	return t
}

// shadeOf shifts a color's lightness in Lab space by delta (-1..1).
func shadeOf(c color.Color, delta float64) color.Color {
	if c == nil {
		return lightTheme.CodeBG
	}
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	l, a, b := cf.Lab()
	out := colorful.Lab(l+delta, a, b).Clamped()
	r, g, bb := out.RGB255()
	return color.RGBA{r, g, bb, 0xFF}
}

func tokenColor(t TokenType, fallback color.Color) color.Color {
	if c, ok := tokenColors[t]; ok {
		return c
	}
	return fallback
}
