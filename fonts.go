package mdview

import (
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const fontDPI = 96

// FontAndFace pairs a parsed font with a face created at the base size.
type FontAndFace struct {
	Font     *truetype.Font
	Face     font.Face
	baseSize float64
}

// Fonts is the family set used by the renderer.
type Fonts struct {
	Regular *FontAndFace
	Bold    *FontAndFace
	Italic  *FontAndFace
	Mono    *FontAndFace
}

// FontConfig selects font files; empty paths fall back to Go's bundled
// fonts.
type FontConfig struct {
	RegularPath string
	BoldPath    string
	ItalicPath  string
	MonoPath    string
	SizeBase    float64 // paragraph font size in pt
}

func loadFontAndFace(ttfBytes []byte, size float64) (*FontAndFace, error) {
	ft, err := truetype.Parse(ttfBytes)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ft, &truetype.Options{Size: size, DPI: fontDPI, Hinting: font.HintingFull})
	return &FontAndFace{Font: ft, Face: face, baseSize: size}, nil
}

func loadFontFile(path string, fallback []byte, size float64) (*FontAndFace, error) {
	if path == "" {
		return loadFontAndFace(fallback, size)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loadFontAndFace(b, size)
}

// LoadFonts returns a Fonts set using the provided FontConfig. When no
// custom paths are supplied it falls back to Go's bundled fonts.
func LoadFonts(cfg FontConfig) (Fonts, error) {
	var f Fonts
	var err error
	if f.Regular, err = loadFontFile(cfg.RegularPath, goregular.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Bold, err = loadFontFile(cfg.BoldPath, gobold.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Italic, err = loadFontFile(cfg.ItalicPath, goitalic.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Mono, err = loadFontFile(cfg.MonoPath, gomono.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	return f, nil
}

// measureWidth measures the advance of s at the requested size, scaling
// from the face's base size when they differ.
func measureWidth(fnt *FontAndFace, size float64, s string) float64 {
	if fnt == nil || s == "" {
		return 0
	}
	var d font.Drawer
	d.Face = fnt.Face
	d.Src = image.NewUniform(color.Black)
	width := float64(d.MeasureString(s).Round())
	base := fnt.baseSize
	if base <= 0 {
		base = size
	}
	if base <= 0 {
		base = 1
	}
	if size <= 0 {
		size = base
	}
	if size != base {
		width *= size / base
	}
	return width
}
