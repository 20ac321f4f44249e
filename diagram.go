package mdview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
)

// DiagramRenderer turns diagram source (mermaid fences) into an image.
// Renderers that work asynchronously may return a placeholder immediately
// and deliver the real image later through the update callback given at
// construction; the host re-renders when notified.
type DiagramRenderer interface {
	Render(source string, maxWidth int) (image.Image, error)
}

// diagramPlaceholder renders mermaid fences when no real renderer is
// injected: the source text in a bordered box, so the document still shows
// what the diagram would contain.
type diagramPlaceholder struct {
	fonts Fonts
	th    Theme
	size  float64
}

// NewDiagramPlaceholder returns the fallback DiagramRenderer.
func NewDiagramPlaceholder(fonts Fonts, th Theme, size float64) DiagramRenderer {
	return &diagramPlaceholder{fonts: fonts, th: th, size: size}
}

func (d *diagramPlaceholder) Render(source string, maxWidth int) (image.Image, error) {
	pad := 12
	mono := d.fonts.Mono
	lines := wrapCodeLines(mono, d.size, source, float64(maxWidth-2*pad))
	lineHeight := int(d.size * 1.4)
	height := len(lines)*lineHeight + 2*pad + lineHeight + 6

	img := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	fill := func(r image.Rectangle, col color.Color) {
		draw.Draw(img, r, image.NewUniform(col), image.Point{}, draw.Src)
	}
	fill(img.Bounds(), d.th.CodeBG)
	fill(image.Rect(0, 0, maxWidth, 1), d.th.HRule)
	fill(image.Rect(0, height-1, maxWidth, height), d.th.HRule)
	fill(image.Rect(0, 0, 1, height), d.th.HRule)
	fill(image.Rect(maxWidth-1, 0, maxWidth, height), d.th.HRule)

	dc := freetype.NewContext()
	dc.SetDPI(fontDPI)
	dc.SetClip(img.Bounds())
	dc.SetDst(img)
	dc.SetFontSize(d.size)

	dc.SetFont(d.fonts.Italic.Font)
	dc.SetSrc(image.NewUniform(warningColor))
	_, _ = dc.DrawString("mermaid diagram", freetype.Pt(pad, pad+int(d.size)))

	dc.SetFont(mono.Font)
	dc.SetSrc(image.NewUniform(d.th.FG))
	y := pad + lineHeight
	for _, ln := range lines {
		if ln.text != "" {
			_, _ = dc.DrawString(ln.text, freetype.Pt(pad, y+int(d.size)))
		}
		y += lineHeight
	}
	return img, nil
}
