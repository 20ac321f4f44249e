package mdview

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// PaintHighlight fills the selection rects onto dst with a channel-multiply
// darken blend, so the glyphs underneath stay legible instead of being
// covered opaquely. Stateless; safe to call every frame.
func PaintHighlight(dst *image.RGBA, rects []SelectionRect, highlight color.Color) {
	if dst == nil || len(rects) == 0 {
		return
	}
	tint, ok := colorful.MakeColor(highlight)
	if !ok {
		return
	}
	tint = tint.Clamped()
	for _, sr := range rects {
		ir := sr.Rect.ImageRect().Intersect(dst.Bounds())
		for y := ir.Min.Y; y < ir.Max.Y; y++ {
			for x := ir.Min.X; x < ir.Max.X; x++ {
				c := dst.RGBAAt(x, y)
				base := colorful.Color{
					R: float64(c.R) / 255,
					G: float64(c.G) / 255,
					B: float64(c.B) / 255,
				}
				blended := colorful.Color{
					R: base.R * tint.R,
					G: base.G * tint.G,
					B: base.B * tint.B,
				}.Clamped()
				dst.SetRGBA(x, y, color.RGBA{
					R: uint8(blended.R*255 + 0.5),
					G: uint8(blended.G*255 + 0.5),
					B: uint8(blended.B*255 + 0.5),
					A: c.A,
				})
			}
		}
	}
}
