package mdview

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"

	"github.com/golang/freetype"
	"github.com/rivo/uniseg"
	xdraw "golang.org/x/image/draw"
)

// canvas is the paint surface plus the wrapping flow layout engine. It
// draws top-to-bottom with a moving cursorY and, when capturing is on,
// records per-line/run/slice geometry for every flowed text block.
type canvas struct {
	img     *image.RGBA
	dc      *freetype.Context
	w, h    int
	margin  int
	cursorY int
	th      Theme
	fonts   Fonts
	ptSize  float64

	capturing bool
	layouts   []*TextLayout
	links     []LinkRegion
}

func newCanvas(width int, margin int, th Theme, fonts Fonts, ptSize float64) *canvas {
	// Start tall; cropped after rendering.
	img := image.NewRGBA(image.Rect(0, 0, width, 4096*4))
	dc := freetype.NewContext()
	dc.SetDPI(fontDPI)
	dc.SetClip(img.Bounds())
	dc.SetDst(img)
	dc.SetSrc(image.NewUniform(th.FG))
	dc.SetFontSize(ptSize)

	draw.Draw(img, img.Bounds(), image.NewUniform(th.BG), image.Point{}, draw.Src)

	return &canvas{
		img:     img,
		dc:      dc,
		w:       width,
		h:       img.Bounds().Dy(),
		margin:  margin,
		cursorY: margin,
		th:      th,
		fonts:   fonts,
		ptSize:  ptSize,
	}
}

func (c *canvas) setFace(fnt *FontAndFace, col color.Color, size float64) {
	c.dc.SetFontSize(size)
	c.dc.SetSrc(image.NewUniform(col))
	c.dc.SetFont(fnt.Font)
}

func (c *canvas) addVSpace(px int) { c.cursorY += px }

func (c *canvas) drawHRule() {
	y := c.cursorY + 4
	rect := image.Rect(c.margin, y, c.w-c.margin, y+2)
	draw.Draw(c.img, rect, image.NewUniform(c.th.HRule), image.Point{}, draw.Src)
	c.cursorY = y + 10
}

func (c *canvas) drawQuoteBar(x0, topY, height int) {
	rect := image.Rect(x0, topY, x0+4, topY+height)
	draw.Draw(c.img, rect, image.NewUniform(c.th.QuoteBar), image.Point{}, draw.Src)
}

func (c *canvas) fillRect(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// textToken is one styled inline item in a flow: text, a forced line break,
// a block image, or an inline box (laid-out math) that flows like a word.
type textToken struct {
	text      string
	font      *FontAndFace
	size      float64
	color     color.Color
	underline bool
	strike    bool
	newline   bool
	image     image.Image
	center    bool
	box       image.Image
	boxText   string // logical text an inline box or image stands for
	link      string
	srcStart  int // byte offset into the owning block's logical text
}

func (t textToken) logicalText() string {
	switch {
	case t.newline:
		return "\n"
	case t.box != nil, t.image != nil:
		return t.boxText
	default:
		return t.text
	}
}

// inlineCollector accumulates tokens while tracking each token's offset in
// the block's logical text, which becomes the selection/copy backing
// string.
type inlineCollector struct {
	tokens []textToken
	text   strings.Builder
}

func (ic *inlineCollector) add(tok textToken) {
	tok.srcStart = ic.text.Len()
	ic.text.WriteString(tok.logicalText())
	ic.tokens = append(ic.tokens, tok)
}

type styledWord struct {
	text      string
	font      *FontAndFace
	size      float64
	color     color.Color
	underline bool
	strike    bool
	link      string
	box       image.Image
	srcStart  int
	srcLen    int
	dir       Direction
}

type lineMetric struct {
	baseline int
	height   int
}

func splitTextPreserveSpaces(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	lastType := 0 // 0 unknown, 1 space, 2 non-space
	for _, r := range s {
		typ := 2
		if unicode.IsSpace(r) {
			typ = 1
		}
		if lastType == 0 || typ == lastType {
			current.WriteRune(r)
			lastType = typ
			continue
		}
		parts = append(parts, current.String())
		current.Reset()
		current.WriteRune(r)
		lastType = typ
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func scaleImageToWidth(img image.Image, maxWidth int) image.Image {
	if img == nil || maxWidth <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}
	scale := float64(maxWidth) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * scale)
	if height <= 0 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// drawTokens lays the tokens out between left and right with word wrap and
// paints them. blockText is the block's full logical text; when the canvas
// is capturing, the pass also records a TextLayout with one slice per
// grapheme cluster.
func (c *canvas) drawTokens(tokens []textToken, left, right int, blockText string) []lineMetric {
	if len(tokens) == 0 {
		return nil
	}
	maxWidth := float64(right - left)
	var line []styledWord
	var lineWidth float64
	var lineMaxSize float64
	var metrics []lineMetric

	var capture *TextLayout
	if c.capturing && blockText != "" {
		capture = &TextLayout{
			Origin: Point{X: float64(left), Y: float64(c.cursorY)},
			Text:   blockText,
		}
	}

	flush := func(force bool) {
		if len(line) == 0 {
			if force {
				heightSize := lineMaxSize
				if heightSize == 0 {
					heightSize = c.ptSize
				}
				height := int(heightSize * 1.4)
				if height == 0 {
					height = int(c.ptSize * 1.4)
				}
				c.cursorY += height
			}
			return
		}
		baselineSize := lineMaxSize
		if baselineSize == 0 {
			baselineSize = c.ptSize
		}
		lineTop := c.cursorY
		baseline := lineTop + int(baselineSize)
		lineHeight := int(baselineSize * 1.4)
		if lineHeight <= 0 {
			lineHeight = int(c.ptSize * 1.4)
		}

		var capLine *LayoutLine
		if capture != nil {
			capLine = &LayoutLine{
				Bounds: Rect{
					MinX: 0,
					MinY: float64(lineTop) - capture.Origin.Y,
					MaxX: 0,
					MaxY: float64(lineTop+lineHeight) - capture.Origin.Y,
				},
				Baseline: float64(baseline) - capture.Origin.Y,
			}
		}

		x := left
		for wi, w := range line {
			if w.font == nil {
				w.font = c.fonts.Regular
			}
			var width int
			if w.box != nil {
				b := w.box.Bounds()
				width = b.Dx()
				top := baseline - b.Dy()
				if top < lineTop {
					top = lineTop
				}
				rect := image.Rect(x, top, x+width, top+b.Dy())
				draw.Draw(c.img, rect, w.box, b.Min, draw.Over)
			} else {
				c.setFace(w.font, w.color, w.size)
				pt := freetype.Pt(x, baseline)
				_, _ = c.dc.DrawString(w.text, pt)
				width = int(measureWidth(w.font, w.size, w.text))
				if w.underline && width > 0 {
					underlineY := baseline + int(w.size*0.12)
					if underlineY <= baseline {
						underlineY = baseline + 1
					}
					c.fillRect(image.Rect(x, underlineY, x+width, underlineY+1), w.color)
				}
				if w.strike && width > 0 {
					strikeY := baseline - int(w.size*0.3)
					c.fillRect(image.Rect(x, strikeY, x+width, strikeY+1), w.color)
				}
			}
			if w.link != "" && width > 0 {
				c.links = append(c.links, LinkRegion{
					Rect: Rect{
						MinX: float64(x), MinY: float64(lineTop),
						MaxX: float64(x + width), MaxY: float64(lineTop + lineHeight),
					},
					URL: w.link,
				})
			}
			if capLine != nil {
				c.captureWord(capture, capLine, w, float64(x), float64(width), wi > 0 && sameWordStyle(line[wi-1], w))
			}
			x += width
		}

		if capLine != nil {
			capLine.Bounds.MaxX = float64(x) - capture.Origin.X
			capture.Lines = append(capture.Lines, *capLine)
		}

		metrics = append(metrics, lineMetric{baseline: baseline, height: lineHeight})
		c.cursorY += lineHeight
		line = line[:0]
		lineWidth = 0
		lineMaxSize = 0
	}

	for _, tok := range tokens {
		if tok.newline {
			flush(true)
			continue
		}
		if tok.image != nil {
			flush(false)
			maxWidthInt := int(maxWidth)
			img := tok.image
			if b := img.Bounds(); maxWidthInt > 0 && b.Dx() > maxWidthInt {
				img = scaleImageToWidth(img, maxWidthInt)
			}
			bounds := img.Bounds()
			startY := c.cursorY
			drawWidth := bounds.Dx()
			drawHeight := bounds.Dy()
			x := left
			if tok.center && maxWidthInt > drawWidth {
				x += (maxWidthInt - drawWidth) / 2
			}
			rect := image.Rect(x, startY, x+drawWidth, startY+drawHeight)
			draw.Draw(c.img, rect, img, bounds.Min, draw.Over)
			baseline := startY + int(c.ptSize)
			if baseline > rect.Max.Y {
				baseline = rect.Max.Y
			}
			if baseline <= startY {
				baseline = startY + drawHeight
			}
			metrics = append(metrics, lineMetric{baseline: baseline, height: drawHeight})
			c.cursorY += drawHeight
			c.cursorY += int(c.ptSize * 0.6)
			continue
		}
		if tok.box != nil {
			boxWidth := float64(tok.box.Bounds().Dx())
			if lineWidth+boxWidth > maxWidth && len(line) > 0 {
				flush(false)
			}
			line = append(line, styledWord{
				box:      tok.box,
				font:     tok.font,
				size:     tok.size,
				color:    tok.color,
				link:     tok.link,
				srcStart: tok.srcStart,
				srcLen:   len(tok.boxText),
			})
			boxSize := float64(tok.box.Bounds().Dy())
			if boxSize > lineMaxSize {
				lineMaxSize = boxSize
			}
			lineWidth += boxWidth
			continue
		}
		font := tok.font
		if font == nil {
			font = c.fonts.Regular
		}
		segOffset := 0
		for _, seg := range splitTextPreserveSpaces(tok.text) {
			segStart := tok.srcStart + segOffset
			segOffset += len(seg)
			if seg == "" {
				continue
			}
			isSpace := unicode.IsSpace([]rune(seg)[0])
			segWidth := measureWidth(font, tok.size, seg)
			w := styledWord{
				text:      seg,
				font:      font,
				size:      tok.size,
				color:     tok.color,
				underline: tok.underline,
				strike:    tok.strike,
				link:      tok.link,
				srcStart:  segStart,
				srcLen:    len(seg),
				dir:       runDirection(seg),
			}
			if isSpace {
				if len(line) == 0 {
					continue
				}
				w.dir = line[len(line)-1].dir
				line = append(line, w)
				lineWidth += segWidth
				continue
			}
			if lineWidth+segWidth > maxWidth && len(line) > 0 {
				flush(false)
			}
			line = append(line, w)
			if tok.size > lineMaxSize {
				lineMaxSize = tok.size
			}
			lineWidth += segWidth
		}
	}
	flush(false)

	if capture != nil && len(capture.Lines) > 0 {
		capture.normalizeRanges()
		c.layouts = append(c.layouts, capture)
	}
	return metrics
}

// sameWordStyle reports whether two adjacent words share run attributes:
// same font, size, color, decorations, link target and direction. Words
// that match extend one run; a mismatch starts a new one.
func sameWordStyle(a, b styledWord) bool {
	return a.box == nil && b.box == nil &&
		a.font == b.font && a.size == b.size && a.color == b.color &&
		a.underline == b.underline && a.strike == b.strike &&
		a.link == b.link && a.dir == b.dir
}

// captureWord records one laid-out word (or inline box) into the capture
// line: slices per grapheme cluster, grouped into same-attribute runs.
// Cluster widths are scaled so they sum exactly to the drawn word width.
func (c *canvas) captureWord(capture *TextLayout, capLine *LayoutLine, w styledWord, x, width float64, joinPrev bool) {
	top := capLine.Bounds.MinY
	bottom := capLine.Bounds.MaxY
	localX := x - capture.Origin.X

	var slices []LayoutSlice
	if w.box != nil {
		slices = []LayoutSlice{{
			Bounds: Rect{MinX: localX, MinY: top, MaxX: localX + width, MaxY: bottom},
			Range:  ByteRange{Start: w.srcStart, End: w.srcStart + w.srcLen},
		}}
	} else {
		widths := make([]float64, 0, len(w.text))
		clusters := make([]string, 0, len(w.text))
		total := 0.0
		state := -1
		rest := w.text
		for len(rest) > 0 {
			var cluster string
			cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
			cw := measureWidth(w.font, w.size, cluster)
			clusters = append(clusters, cluster)
			widths = append(widths, cw)
			total += cw
		}
		scale := 1.0
		if total > 0 {
			scale = width / total
		}
		off := w.srcStart
		cx := localX
		for i, cluster := range clusters {
			cw := widths[i] * scale
			slices = append(slices, LayoutSlice{
				Bounds: Rect{MinX: cx, MinY: top, MaxX: cx + cw, MaxY: bottom},
				Range:  ByteRange{Start: off, End: off + len(cluster)},
			})
			cx += cw
			off += len(cluster)
		}
	}
	if len(slices) == 0 {
		return
	}

	bounds := slices[0].Bounds
	for _, s := range slices[1:] {
		bounds = bounds.Union(s.Bounds)
	}

	if n := len(capLine.Runs); n > 0 && joinPrev {
		prev := &capLine.Runs[n-1]
		prev.Slices = append(prev.Slices, slices...)
		prev.Bounds = prev.Bounds.Union(bounds)
		return
	}
	dir := w.dir
	if w.box != nil {
		dir = LeftToRight
	}
	capLine.Runs = append(capLine.Runs, LayoutRun{
		Direction: dir,
		Bounds:    bounds,
		Slices:    slices,
	})
}

// measureTokens computes the height drawTokens would consume for tokens in
// the given bounds, without drawing or moving the cursor. Mirrors the wrap
// loop exactly so table cells measure and draw identically.
func (c *canvas) measureTokens(tokens []textToken, left, right int) int {
	if len(tokens) == 0 {
		return 0
	}
	maxWidth := float64(right - left)
	height := 0
	wordCount := 0
	var lineWidth float64
	var lineMaxSize float64

	flush := func(force bool) {
		if wordCount == 0 {
			if force {
				heightSize := lineMaxSize
				if heightSize == 0 {
					heightSize = c.ptSize
				}
				h := int(heightSize * 1.4)
				if h == 0 {
					h = int(c.ptSize * 1.4)
				}
				height += h
			}
			return
		}
		baselineSize := lineMaxSize
		if baselineSize == 0 {
			baselineSize = c.ptSize
		}
		lineHeight := int(baselineSize * 1.4)
		if lineHeight <= 0 {
			lineHeight = int(c.ptSize * 1.4)
		}
		height += lineHeight
		wordCount = 0
		lineWidth = 0
		lineMaxSize = 0
	}

	for _, tok := range tokens {
		if tok.newline {
			flush(true)
			continue
		}
		if tok.image != nil {
			flush(false)
			img := tok.image
			if b := img.Bounds(); int(maxWidth) > 0 && b.Dx() > int(maxWidth) {
				img = scaleImageToWidth(img, int(maxWidth))
			}
			height += img.Bounds().Dy() + int(c.ptSize*0.6)
			continue
		}
		if tok.box != nil {
			boxWidth := float64(tok.box.Bounds().Dx())
			if lineWidth+boxWidth > maxWidth && wordCount > 0 {
				flush(false)
			}
			wordCount++
			if boxSize := float64(tok.box.Bounds().Dy()); boxSize > lineMaxSize {
				lineMaxSize = boxSize
			}
			lineWidth += boxWidth
			continue
		}
		font := tok.font
		if font == nil {
			font = c.fonts.Regular
		}
		for _, seg := range splitTextPreserveSpaces(tok.text) {
			if seg == "" {
				continue
			}
			isSpace := unicode.IsSpace([]rune(seg)[0])
			segWidth := measureWidth(font, tok.size, seg)
			if isSpace {
				if wordCount == 0 {
					continue
				}
				wordCount++
				lineWidth += segWidth
				continue
			}
			if lineWidth+segWidth > maxWidth && wordCount > 0 {
				flush(false)
			}
			wordCount++
			if tok.size > lineMaxSize {
				lineMaxSize = tok.size
			}
			lineWidth += segWidth
		}
	}
	flush(false)
	return height
}

type codeLine struct {
	text  string
	start int // byte offset into the source text
}

// wrapCodeLines splits source text into physical lines and wraps long ones
// by pixel width, preserving interior whitespace and tracking each output
// line's byte offset in the source.
func wrapCodeLines(ff *FontAndFace, size float64, text string, maxWidth float64) []codeLine {
	var lines []codeLine
	offset := 0
	for {
		nl := strings.IndexByte(text[offset:], '\n')
		var ln string
		end := len(text)
		if nl >= 0 {
			end = offset + nl
		}
		ln = text[offset:end]
		if ln == "" {
			lines = append(lines, codeLine{text: "", start: offset})
		} else if maxWidth <= 0 || measureWidth(ff, size, ln) <= maxWidth {
			lines = append(lines, codeLine{text: ln, start: offset})
		} else {
			lines = append(lines, wrapCodeLine(ff, size, ln, offset, maxWidth)...)
		}
		if nl < 0 {
			break
		}
		offset = end + 1
	}
	if len(lines) == 0 {
		lines = append(lines, codeLine{})
	}
	return lines
}

func wrapCodeLine(ff *FontAndFace, size float64, line string, offset int, maxWidth float64) []codeLine {
	var result []codeLine
	var current strings.Builder
	currentStart := offset
	var currentWidth float64

	flush := func(nextStart int) {
		result = append(result, codeLine{text: current.String(), start: currentStart})
		current.Reset()
		currentStart = nextStart
		currentWidth = 0
	}

	pos := offset
	for _, token := range splitTextPreserveSpaces(line) {
		tokenWidth := measureWidth(ff, size, token)
		if tokenWidth > maxWidth {
			if current.Len() > 0 {
				flush(pos)
			}
			// Break an oversized token by clusters.
			state := -1
			rest := token
			cstart := pos
			for len(rest) > 0 {
				var cluster string
				cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
				cw := measureWidth(ff, size, cluster)
				if currentWidth+cw > maxWidth && current.Len() > 0 {
					flush(cstart)
				}
				current.WriteString(cluster)
				currentWidth += cw
				cstart += len(cluster)
			}
			pos += len(token)
			continue
		}
		if currentWidth+tokenWidth > maxWidth && current.Len() > 0 {
			flush(pos)
		}
		current.WriteString(token)
		currentWidth += tokenWidth
		pos += len(token)
	}
	if current.Len() > 0 {
		flush(pos)
	}
	if len(result) == 0 {
		result = append(result, codeLine{text: line, start: offset})
	}
	return result
}

// drawCodeBlock paints a code block with background, optional per-line
// tokens for syntax colors, and captures its layout when selection capture
// is on.
func (c *canvas) drawCodeBlock(text string, left, right int, size float64, colorize func(line string) []CodeToken) {
	pad := 10
	top := c.cursorY
	mono := c.fonts.Mono
	lines := wrapCodeLines(mono, size, text, float64(right-left-2*pad))
	lineHeight := int(size * 1.4)
	height := len(lines)*lineHeight + 2*pad + 6
	c.fillRect(image.Rect(left, top, right, top+height), c.th.CodeBG)

	var capture *TextLayout
	if c.capturing && text != "" {
		capture = &TextLayout{
			Origin: Point{X: float64(left + pad), Y: float64(top + pad)},
			Text:   text,
		}
	}

	y := top + pad
	for _, ln := range lines {
		baseline := y + int(size)
		if colorize != nil && ln.text != "" {
			x := left + pad
			for _, tok := range colorize(ln.text) {
				c.setFace(mono, tokenColor(tok.Type, c.th.FG), size)
				pt := freetype.Pt(x, baseline)
				_, _ = c.dc.DrawString(tok.Text, pt)
				x += int(measureWidth(mono, size, tok.Text))
			}
		} else if ln.text != "" {
			c.setFace(mono, c.th.FG, size)
			pt := freetype.Pt(left+pad, baseline)
			_, _ = c.dc.DrawString(ln.text, pt)
		}
		if capture != nil {
			c.captureCodeLine(capture, ln, float64(y-top-pad), float64(lineHeight), size)
		}
		y += lineHeight
	}

	if capture != nil && len(capture.Lines) > 0 {
		capture.normalizeRanges()
		c.layouts = append(c.layouts, capture)
	}
	c.cursorY = top + height + 6
}

func (c *canvas) captureCodeLine(capture *TextLayout, ln codeLine, top, lineHeight, size float64) {
	capLine := LayoutLine{
		Bounds:   Rect{MinX: 0, MinY: top, MaxX: 0, MaxY: top + lineHeight},
		Baseline: top + size,
	}
	if ln.text != "" {
		var slices []LayoutSlice
		cx := 0.0
		off := ln.start
		state := -1
		rest := ln.text
		for len(rest) > 0 {
			var cluster string
			cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
			cw := measureWidth(c.fonts.Mono, size, cluster)
			slices = append(slices, LayoutSlice{
				Bounds: Rect{MinX: cx, MinY: top, MaxX: cx + cw, MaxY: top + lineHeight},
				Range:  ByteRange{Start: off, End: off + len(cluster)},
			})
			cx += cw
			off += len(cluster)
		}
		capLine.Bounds.MaxX = cx
		capLine.Runs = []LayoutRun{{
			Direction: LeftToRight,
			Bounds:    Rect{MinX: 0, MinY: top, MaxX: cx, MaxY: top + lineHeight},
			Slices:    slices,
		}}
	}
	capture.Lines = append(capture.Lines, capLine)
}
