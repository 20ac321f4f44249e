package mdview

// SelectionRect is one filled rectangle of a rendered selection, in
// document coordinates. ContainsStart/ContainsEnd mark the first and last
// rect in document order so callers can style the selection end caps.
type SelectionRect struct {
	Rect          Rect
	Direction     Direction
	ContainsStart bool
	ContainsEnd   bool
}

// TextSpan is one layout's contribution to an extracted range.
type TextSpan struct {
	LayoutIndex int
	Text        string
}

// SelectionModel wraps N independent per-block text layouts into one
// logical addressable document and holds the current selected range. It is
// single-threaded by design: one UI owner, no locking. WillChange fires
// before any selection mutation, DidChange after, so observers reacting to
// a change never see a torn intermediate state.
type SelectionModel struct {
	layouts  *LayoutCollection
	selected *Range

	WillChange func()
	DidChange  func()
}

// NewSelectionModel returns an empty model; call SetLayoutCollection after
// every layout pass.
func NewSelectionModel() *SelectionModel { return &SelectionModel{} }

// LayoutCollection returns the current layout snapshot, possibly nil.
func (m *SelectionModel) LayoutCollection() *LayoutCollection { return m.layouts }

// SelectedRange returns the current selection, or nil when there is none.
func (m *SelectionModel) SelectedRange() *Range { return m.selected }

// SetSelectedRange replaces the selection. Pass nil to clear.
func (m *SelectionModel) SetSelectedRange(r *Range) {
	if r == nil {
		m.ClearSelection()
		return
	}
	rr := *r
	m.setRange(&rr)
}

// SelectAll selects the whole document, or clears when there is no text.
func (m *SelectionModel) SelectAll() {
	if m.layouts.IsEmpty() {
		m.ClearSelection()
		return
	}
	r := NewRange(m.layouts.StartPosition(), m.layouts.EndPosition())
	m.setRange(&r)
}

// ClearSelection drops the selection entirely. No-op when already clear.
func (m *SelectionModel) ClearSelection() {
	if m.selected == nil {
		return
	}
	m.setRange(nil)
}

func (m *SelectionModel) setRange(r *Range) {
	if m.WillChange != nil {
		m.WillChange()
	}
	m.selected = r
	if m.DidChange != nil {
		m.DidChange()
	}
}

// SetLayoutCollection installs a new layout snapshot. When the snapshot is
// identity-equal to the current one nothing happens. Otherwise an existing
// selection is reconciled by local character index against the same layout
// slots; if the layout count changed there is no meaningful correspondence
// and the selection is cleared.
func (m *SelectionModel) SetLayoutCollection(c *LayoutCollection) {
	if m.layouts.Equal(c) {
		m.layouts = c
		return
	}
	old := m.layouts
	m.layouts = c
	if m.selected == nil {
		return
	}
	if old == nil || c == nil || len(old.Layouts) != len(c.Layouts) {
		m.setRange(nil)
		return
	}
	start, ok1 := reconcilePosition(old, c, m.selected.Start())
	end, ok2 := reconcilePosition(old, c, m.selected.End())
	if !ok1 || !ok2 {
		m.setRange(nil)
		return
	}
	r := NewRange(start, end)
	m.setRange(&r)
}

// reconcilePosition re-resolves p's old local character index against the
// same layout slot in the new collection. This assumes the slot still
// indexes the same content; a content edit that keeps the block count
// intact reconciles to a plausible but possibly shifted position.
func reconcilePosition(old, next *LayoutCollection, p Position) (Position, bool) {
	local, ok := old.localIndex(p)
	if !ok {
		return Position{}, false
	}
	return next.resolveLocal(p.Layout, local)
}

// StartPosition returns the document-wide first position.
func (m *SelectionModel) StartPosition() Position { return m.layouts.StartPosition() }

// EndPosition returns the document-wide last position.
func (m *SelectionModel) EndPosition() Position { return m.layouts.EndPosition() }

// StringLength returns the total text length in bytes.
func (m *SelectionModel) StringLength() int { return m.layouts.StringLength() }

// CharacterIndex converts a position into a global character offset.
func (m *SelectionModel) CharacterIndex(p Position) int { return m.layouts.characterIndex(p) }

// PositionAt resolves a global character offset into a position, or nil
// when the offset is outside [0, StringLength].
func (m *SelectionModel) PositionAt(offset int) *Position {
	p, ok := m.layouts.positionAt(offset)
	if !ok {
		return nil
	}
	return &p
}

// PositionOffset returns the position k characters away from p, or nil when
// the result would leave the document.
func (m *SelectionModel) PositionOffset(p Position, k int) *Position {
	return m.PositionAt(m.CharacterIndex(p) + k)
}

// localIndex is p's character index within its own layout: the slice range
// lower bound for downstream affinity, upper bound for upstream.
func (c *LayoutCollection) localIndex(p Position) (int, bool) {
	sl := c.slice(p.path())
	if sl == nil {
		return 0, false
	}
	if p.Affinity == Upstream {
		return sl.Range.End, true
	}
	return sl.Range.Start, true
}

func (c *LayoutCollection) characterIndex(p Position) int {
	if c == nil {
		return 0
	}
	local, ok := c.localIndex(p)
	if !ok {
		return 0
	}
	n := 0
	for i := 0; i < p.Layout && i < len(c.Layouts); i++ {
		n += len(c.Layouts[i].Text)
	}
	return n + local
}

func (c *LayoutCollection) positionAt(offset int) (Position, bool) {
	if c == nil || offset < 0 || offset > c.StringLength() {
		return Position{}, false
	}
	acc := 0
	for i, l := range c.Layouts {
		if offset < acc+len(l.Text) {
			return c.resolveLocal(i, offset-acc)
		}
		acc += len(l.Text)
	}
	// offset == StringLength: resolves upstream of the very last slice.
	for i := len(c.Layouts) - 1; i >= 0; i-- {
		if p, ok := c.resolveLocal(i, len(c.Layouts[i].Text)); ok {
			return p, ok
		}
	}
	return Position{}, false
}

// resolveLocal finds a position for a local character index within one
// layout: first a slice whose range contains the index (downstream), then a
// slice whose upper bound equals it (upstream fallback). The fallback is
// what makes "exactly one past a slice, at the very start of the next"
// boundary indices resolvable.
func (c *LayoutCollection) resolveLocal(layoutIdx, local int) (Position, bool) {
	l := c.layout(layoutIdx)
	if l == nil {
		return Position{}, false
	}
	for lni := range l.Lines {
		for ri := range l.Lines[lni].Runs {
			for si := range l.Lines[lni].Runs[ri].Slices {
				if l.Lines[lni].Runs[ri].Slices[si].Range.Contains(local) {
					return Position{Layout: layoutIdx, Line: lni, Run: ri, Slice: si, Affinity: Downstream}, true
				}
			}
		}
	}
	for lni := range l.Lines {
		for ri := range l.Lines[lni].Runs {
			for si := range l.Lines[lni].Runs[ri].Slices {
				if l.Lines[lni].Runs[ri].Slices[si].Range.End == local {
					return Position{Layout: layoutIdx, Line: lni, Run: ri, Slice: si, Affinity: Upstream}, true
				}
			}
		}
	}
	return Position{}, false
}

// ClosestPosition hit-tests the document and returns the nearest logical
// position, or nil on an empty collection.
func (m *SelectionModel) ClosestPosition(pt Point) *Position {
	c := m.layouts
	if c.IsEmpty() {
		return nil
	}

	// Nearest layout by squared frame distance, zero when inside.
	bestLayout, bestDist := -1, 0.0
	for li, l := range c.Layouts {
		if !layoutHasSlices(l) {
			continue
		}
		d := l.Frame().distSq(pt)
		if bestLayout < 0 || d < bestDist {
			bestLayout, bestDist = li, d
		}
	}
	if bestLayout < 0 {
		return nil
	}
	l := c.Layouts[bestLayout]
	local := Point{X: pt.X - l.Origin.X, Y: pt.Y - l.Origin.Y}

	// Nearest line by vertical distance, zero when inside its y-range.
	bestLine := -1
	bestD := 0.0
	for lni := range l.Lines {
		if !lineHasSlices(&l.Lines[lni]) {
			continue
		}
		d := axisDist(local.Y, l.Lines[lni].Bounds.MinY, l.Lines[lni].Bounds.MaxY)
		if bestLine < 0 || d < bestD {
			bestLine, bestD = lni, d
		}
	}
	if bestLine < 0 {
		return nil
	}
	ln := &l.Lines[bestLine]

	// Nearest run, then nearest slice, both by horizontal distance.
	bestRun := -1
	bestD = 0
	for ri := range ln.Runs {
		if len(ln.Runs[ri].Slices) == 0 {
			continue
		}
		d := axisDist(local.X, ln.Runs[ri].Bounds.MinX, ln.Runs[ri].Bounds.MaxX)
		if bestRun < 0 || d < bestD {
			bestRun, bestD = ri, d
		}
	}
	if bestRun < 0 {
		return nil
	}
	run := &ln.Runs[bestRun]
	bestSlice := -1
	bestD = 0
	for si := range run.Slices {
		d := axisDist(local.X, run.Slices[si].Bounds.MinX, run.Slices[si].Bounds.MaxX)
		if bestSlice < 0 || d < bestD {
			bestSlice, bestD = si, d
		}
	}
	sl := &run.Slices[bestSlice]

	// Affinity: nearer the leading edge means downstream; ties favor
	// downstream. Leading and trailing swap for right-to-left runs.
	leading, trailing := sl.Bounds.MinX, sl.Bounds.MaxX
	if run.Direction == RightToLeft {
		leading, trailing = trailing, leading
	}
	aff := Upstream
	if abs(local.X-leading) <= abs(local.X-trailing) {
		aff = Downstream
	}
	return &Position{Layout: bestLayout, Line: bestLine, Run: bestRun, Slice: bestSlice, Affinity: aff}
}

// ClosestPositionInRange clamps the unconstrained nearest position into r.
func (m *SelectionModel) ClosestPositionInRange(pt Point, r Range) *Position {
	p := m.ClosestPosition(pt)
	if p == nil {
		return nil
	}
	if p.Compare(r.Start()) < 0 {
		s := r.Start()
		return &s
	}
	if p.Compare(r.End()) > 0 {
		e := r.End()
		return &e
	}
	return p
}

// CharacterRangeAt returns a zero-width range covering the character under
// the point: a downstream and an upstream position at the same slice.
func (m *SelectionModel) CharacterRangeAt(pt Point) *Range {
	p := m.ClosestPosition(pt)
	if p == nil {
		return nil
	}
	path := p.path()
	r := NewRange(
		Position{Layout: path.layout, Line: path.line, Run: path.run, Slice: path.slice, Affinity: Downstream},
		Position{Layout: path.layout, Line: path.line, Run: path.run, Slice: path.slice, Affinity: Upstream},
	)
	return &r
}

// CaretRect returns a zero-width rect at the position's edge, spanning its
// line's full typographic height.
func (m *SelectionModel) CaretRect(p Position) (Rect, bool) {
	c := m.layouts
	sl := c.slice(p.path())
	run := c.run(p.path())
	ln := c.line(p.path())
	l := c.layout(p.Layout)
	if sl == nil || run == nil || ln == nil || l == nil {
		return Rect{}, false
	}
	leading, trailing := sl.Bounds.MinX, sl.Bounds.MaxX
	if run.Direction == RightToLeft {
		leading, trailing = trailing, leading
	}
	x := leading
	if p.Affinity == Upstream {
		x = trailing
	}
	return Rect{MinX: x, MinY: ln.Bounds.MinY, MaxX: x, MaxY: ln.Bounds.MaxY}.Offset(l.Origin), true
}

type lineKey struct {
	layout, line int
}

// SelectionRects computes the filled rectangles for a range: one rect per
// same-direction run group per line, trimmed to the caret x-coordinates at
// the range boundaries, with vertical gaps between consecutive lines closed
// so a cross-paragraph selection reads as one continuous band.
func (m *SelectionModel) SelectionRects(r Range) []SelectionRect {
	c := m.layouts
	if c.IsEmpty() || r.IsCollapsed() {
		return nil
	}

	sp := r.Start().path()
	if r.Start().Affinity == Upstream {
		next, ok := c.nextSlicePath(sp)
		if !ok {
			return nil
		}
		sp = next
	}
	ep := r.End().path()
	if r.End().Affinity == Downstream {
		prev, ok := c.prevSlicePath(ep)
		if !ok {
			return nil
		}
		ep = prev
	}
	if sp.compare(ep) > 0 {
		return nil
	}

	var rects []SelectionRect
	var keys []lineKey
	cur := sp
	for {
		sl := c.slice(cur)
		run := c.run(cur)
		ln := c.line(cur)
		l := c.layout(cur.layout)
		if sl == nil || run == nil || ln == nil || l == nil {
			break
		}
		docRect := Rect{
			MinX: sl.Bounds.MinX,
			MinY: ln.Bounds.MinY,
			MaxX: sl.Bounds.MaxX,
			MaxY: ln.Bounds.MaxY,
		}.Offset(l.Origin)
		k := lineKey{layout: cur.layout, line: cur.line}
		if n := len(rects); n > 0 && keys[n-1] == k && rects[n-1].Direction == run.Direction {
			rects[n-1].Rect = rects[n-1].Rect.Union(docRect)
		} else {
			rects = append(rects, SelectionRect{Rect: docRect, Direction: run.Direction})
			keys = append(keys, k)
		}
		if cur.compare(ep) == 0 {
			break
		}
		next, ok := c.nextSlicePath(cur)
		if !ok {
			break
		}
		cur = next
	}
	if len(rects) == 0 {
		return nil
	}

	// Trim the edge rects to the boundary caret x-coordinates. For a
	// left-to-right run the start caret clips the left edge and the end
	// caret the right edge; both swap for right-to-left.
	if cr, ok := m.CaretRect(r.Start()); ok && keys[0] == (lineKey{layout: r.Start().Layout, line: r.Start().Line}) {
		if rects[0].Direction == LeftToRight {
			rects[0].Rect.MinX = cr.MinX
		} else {
			rects[0].Rect.MaxX = cr.MinX
		}
	}
	last := len(rects) - 1
	if cr, ok := m.CaretRect(r.End()); ok && keys[last] == (lineKey{layout: r.End().Layout, line: r.End().Line}) {
		if rects[last].Direction == LeftToRight {
			rects[last].Rect.MaxX = cr.MinX
		} else {
			rects[last].Rect.MinX = cr.MinX
		}
	}

	inflate(rects, keys)

	rects[0].ContainsStart = true
	rects[last].ContainsEnd = true
	return rects
}

// inflate closes vertical gaps: each line's rects are extended upward to
// touch the previous line's bottom edge when paragraph spacing leaves a
// gap between them.
func inflate(rects []SelectionRect, keys []lineKey) {
	i := 0
	prevBottom := 0.0
	havePrev := false
	for i < len(rects) {
		j := i
		top, bottom := rects[i].Rect.MinY, rects[i].Rect.MaxY
		for j < len(rects) && keys[j] == keys[i] {
			if rects[j].Rect.MinY < top {
				top = rects[j].Rect.MinY
			}
			if rects[j].Rect.MaxY > bottom {
				bottom = rects[j].Rect.MaxY
			}
			j++
		}
		if havePrev && top > prevBottom {
			for k := i; k < j; k++ {
				rects[k].Rect.MinY = prevBottom
			}
		}
		prevBottom = bottom
		havePrev = true
		i = j
	}
}

// AttributedText extracts the range layout by layout: the first and last
// layouts contribute substrings, full layouts in the middle are taken
// whole.
func (m *SelectionModel) AttributedText(r Range) []TextSpan {
	c := m.layouts
	if c == nil || r.IsCollapsed() {
		return nil
	}
	startLocal, ok1 := c.localIndex(r.Start())
	endLocal, ok2 := c.localIndex(r.End())
	if !ok1 || !ok2 {
		return nil
	}
	var spans []TextSpan
	for li := r.Start().Layout; li <= r.End().Layout && li < len(c.Layouts); li++ {
		text := c.Layouts[li].Text
		lo, hi := 0, len(text)
		if li == r.Start().Layout {
			lo = clampInt(startLocal, 0, len(text))
		}
		if li == r.End().Layout {
			hi = clampInt(endLocal, 0, len(text))
		}
		if lo >= hi {
			continue
		}
		spans = append(spans, TextSpan{LayoutIndex: li, Text: text[lo:hi]})
	}
	return spans
}

// Text is the plain-string projection of AttributedText.
func (m *SelectionModel) Text(r Range) string {
	spans := m.AttributedText(r)
	if len(spans) == 0 {
		return ""
	}
	n := 0
	for _, s := range spans {
		n += len(s.Text)
	}
	out := make([]byte, 0, n)
	for _, s := range spans {
		out = append(out, s.Text...)
	}
	return string(out)
}

const (
	hitMarginX = 8.0
	hitMarginY = 3.0
)

// TextHitRects returns the line bounding boxes expanded by a small margin,
// horizontal looser than vertical, so near-misses next to glyphs still
// count as "in text".
func (m *SelectionModel) TextHitRects() []Rect {
	c := m.layouts
	if c == nil {
		return nil
	}
	var rects []Rect
	for _, l := range c.Layouts {
		for i := range l.Lines {
			if !lineHasSlices(&l.Lines[i]) {
				continue
			}
			rects = append(rects, l.Lines[i].Bounds.Offset(l.Origin).Inset(-hitMarginX, -hitMarginY))
		}
	}
	return rects
}

// ContainsText reports whether the point falls in any text hit rect.
func (m *SelectionModel) ContainsText(pt Point) bool {
	for _, r := range m.TextHitRects() {
		if r.Contains(pt) {
			return true
		}
	}
	return false
}

func layoutHasSlices(l *TextLayout) bool {
	for i := range l.Lines {
		if lineHasSlices(&l.Lines[i]) {
			return true
		}
	}
	return false
}

func lineHasSlices(ln *LayoutLine) bool {
	for i := range ln.Runs {
		if len(ln.Runs[i].Slices) > 0 {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
