package mdview

import "golang.org/x/text/unicode/bidi"

// Direction is the visual ordering of a glyph run.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

// ByteRange is a half-open [Start, End) byte range into a layout's text.
type ByteRange struct {
	Start, End int
}

func (r ByteRange) Len() int { return r.End - r.Start }

// Contains reports whether the byte offset lies inside the range.
func (r ByteRange) Contains(off int) bool { return off >= r.Start && off < r.End }

// LayoutSlice is the smallest addressable unit of laid-out text: one
// grapheme cluster's bounds and the byte range it covers within its owning
// layout's text. Bounds are layout-local.
type LayoutSlice struct {
	Bounds Rect
	Range  ByteRange
}

// LayoutRun is a contiguous span of slices sharing direction and text
// attributes within one line. Bounds are layout-local.
type LayoutRun struct {
	Direction Direction
	Bounds    Rect
	Slices    []LayoutSlice
}

// LayoutLine is one wrapped visual line. Bounds span the line's full
// typographic height and are layout-local; Baseline is the distance from
// the layout origin to the line's text baseline.
type LayoutLine struct {
	Bounds   Rect
	Baseline float64
	Runs     []LayoutRun
}

// TextLayout is one block's laid-out text: an origin in document
// coordinates, the backing text, and the wrapped lines.
type TextLayout struct {
	Origin Point
	Text   string
	Lines  []LayoutLine
}

// Frame returns the layout's bounding rect in document coordinates.
func (l *TextLayout) Frame() Rect {
	if len(l.Lines) == 0 {
		return Rect{MinX: l.Origin.X, MinY: l.Origin.Y, MaxX: l.Origin.X, MaxY: l.Origin.Y}
	}
	frame := l.Lines[0].Bounds
	for _, ln := range l.Lines[1:] {
		frame = frame.Union(ln.Bounds)
	}
	return frame.Offset(l.Origin)
}

// normalizeRanges closes byte-range gaps left by soft wraps and dropped
// whitespace so that every offset in [0, len(Text)] resolves to a slice
// boundary or interior. The first slice is pulled back to offset 0 and the
// last extended to the end of the text; each slice's end is extended to the
// next slice's start.
func (l *TextLayout) normalizeRanges() {
	var prev *LayoutSlice
	for li := range l.Lines {
		for ri := range l.Lines[li].Runs {
			for si := range l.Lines[li].Runs[ri].Slices {
				s := &l.Lines[li].Runs[ri].Slices[si]
				if prev == nil {
					s.Range.Start = 0
				} else if prev.Range.End < s.Range.Start {
					prev.Range.End = s.Range.Start
				}
				prev = s
			}
		}
	}
	if prev != nil && prev.Range.End < len(l.Text) {
		prev.Range.End = len(l.Text)
	}
}

// LayoutCollection is the set of all per-block layouts composing one
// logical document for selection purposes.
type LayoutCollection struct {
	Layouts []*TextLayout
}

// NewLayoutCollection wraps the given per-block layouts.
func NewLayoutCollection(layouts []*TextLayout) *LayoutCollection {
	return &LayoutCollection{Layouts: layouts}
}

// Equal compares two collections by per-block layout identity, not content.
// This drives the reconciliation short-circuit on relayout.
func (c *LayoutCollection) Equal(o *LayoutCollection) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.Layouts) != len(o.Layouts) {
		return false
	}
	for i := range c.Layouts {
		if c.Layouts[i] != o.Layouts[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the collection addresses no text at all.
func (c *LayoutCollection) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, l := range c.Layouts {
		if len(l.Lines) > 0 && len(l.Text) > 0 {
			return false
		}
	}
	return true
}

// StringLength is the sum of all layouts' text lengths in bytes.
func (c *LayoutCollection) StringLength() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, l := range c.Layouts {
		n += len(l.Text)
	}
	return n
}

// StartPosition is the document-wide first position. On an empty collection
// it is the zero position, which still compares and round-trips cleanly.
func (c *LayoutCollection) StartPosition() Position {
	if p, ok := c.firstSlicePath(); ok {
		return Position{Layout: p.layout, Line: p.line, Run: p.run, Slice: p.slice, Affinity: Downstream}
	}
	return Position{}
}

// EndPosition is the document-wide last position (upstream of the final
// slice).
func (c *LayoutCollection) EndPosition() Position {
	if p, ok := c.lastSlicePath(); ok {
		return Position{Layout: p.layout, Line: p.line, Run: p.run, Slice: p.slice, Affinity: Upstream}
	}
	return Position{}
}

func (c *LayoutCollection) layout(i int) *TextLayout {
	if c == nil || i < 0 || i >= len(c.Layouts) {
		return nil
	}
	return c.Layouts[i]
}

func (c *LayoutCollection) line(p slicePath) *LayoutLine {
	l := c.layout(p.layout)
	if l == nil || p.line < 0 || p.line >= len(l.Lines) {
		return nil
	}
	return &l.Lines[p.line]
}

func (c *LayoutCollection) run(p slicePath) *LayoutRun {
	ln := c.line(p)
	if ln == nil || p.run < 0 || p.run >= len(ln.Runs) {
		return nil
	}
	return &ln.Runs[p.run]
}

func (c *LayoutCollection) slice(p slicePath) *LayoutSlice {
	r := c.run(p)
	if r == nil || p.slice < 0 || p.slice >= len(r.Slices) {
		return nil
	}
	return &r.Slices[p.slice]
}

// firstSlicePath finds the first layout that actually contains a slice.
func (c *LayoutCollection) firstSlicePath() (slicePath, bool) {
	if c == nil {
		return slicePath{}, false
	}
	for li, l := range c.Layouts {
		for lni, ln := range l.Lines {
			for ri, r := range ln.Runs {
				if len(r.Slices) > 0 {
					return slicePath{layout: li, line: lni, run: ri}, true
				}
			}
		}
	}
	return slicePath{}, false
}

func (c *LayoutCollection) lastSlicePath() (slicePath, bool) {
	if c == nil {
		return slicePath{}, false
	}
	for li := len(c.Layouts) - 1; li >= 0; li-- {
		l := c.Layouts[li]
		for lni := len(l.Lines) - 1; lni >= 0; lni-- {
			ln := l.Lines[lni]
			for ri := len(ln.Runs) - 1; ri >= 0; ri-- {
				if n := len(ln.Runs[ri].Slices); n > 0 {
					return slicePath{layout: li, line: lni, run: ri, slice: n - 1}, true
				}
			}
		}
	}
	return slicePath{}, false
}

// nextSlicePath advances one slice in document order, crossing run, line
// and layout boundaries.
func (c *LayoutCollection) nextSlicePath(p slicePath) (slicePath, bool) {
	r := c.run(p)
	if r != nil && p.slice+1 < len(r.Slices) {
		p.slice++
		return p, true
	}
	// Advance to the next non-empty run.
	li, lni, ri := p.layout, p.line, p.run+1
	for li < len(c.Layouts) {
		l := c.Layouts[li]
		for lni < len(l.Lines) {
			ln := l.Lines[lni]
			for ri < len(ln.Runs) {
				if len(ln.Runs[ri].Slices) > 0 {
					return slicePath{layout: li, line: lni, run: ri}, true
				}
				ri++
			}
			lni++
			ri = 0
		}
		li++
		lni = 0
	}
	return p, false
}

// prevSlicePath steps one slice back in document order.
func (c *LayoutCollection) prevSlicePath(p slicePath) (slicePath, bool) {
	if p.slice > 0 {
		p.slice--
		return p, true
	}
	li, lni, ri := p.layout, p.line, p.run-1
	for li >= 0 && li < len(c.Layouts) {
		l := c.Layouts[li]
		for lni >= 0 && lni < len(l.Lines) {
			ln := l.Lines[lni]
			for ri >= 0 && ri < len(ln.Runs) {
				if n := len(ln.Runs[ri].Slices); n > 0 {
					return slicePath{layout: li, line: lni, run: ri, slice: n - 1}, true
				}
				ri--
			}
			lni--
			if lni >= 0 {
				ri = len(l.Lines[lni].Runs) - 1
			}
		}
		li--
		if li >= 0 {
			prev := c.Layouts[li]
			lni = len(prev.Lines) - 1
			ri = -1
			if lni >= 0 {
				ri = len(prev.Lines[lni].Runs) - 1
			}
		}
	}
	return p, false
}

// runDirection classifies a string by its first strong directional rune.
// Strings with no strong character default to left-to-right.
func runDirection(s string) Direction {
	for i := 0; i < len(s); {
		prop, size := bidi.LookupString(s[i:])
		switch prop.Class() {
		case bidi.L:
			return LeftToRight
		case bidi.R, bidi.AL:
			return RightToLeft
		}
		i += size
	}
	return LeftToRight
}
