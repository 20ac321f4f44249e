package mdview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLayout makes a synthetic layout: 10px-wide slices, 20px lines, one
// run per line. Lines are joined with \n in the backing text so the
// normalization pass has real gaps to close.
func buildLayout(origin Point, lines ...string) *TextLayout {
	const charW, lineH = 10.0, 20.0
	l := &TextLayout{Origin: origin, Text: strings.Join(lines, "\n")}
	off := 0
	for i, ln := range lines {
		top := float64(i) * lineH
		line := LayoutLine{
			Bounds:   Rect{MinX: 0, MinY: top, MaxX: charW * float64(len(ln)), MaxY: top + lineH},
			Baseline: top + lineH*0.8,
		}
		var slices []LayoutSlice
		for j := range ln {
			slices = append(slices, LayoutSlice{
				Bounds: Rect{MinX: charW * float64(j), MinY: top, MaxX: charW * float64(j+1), MaxY: top + lineH},
				Range:  ByteRange{Start: off + j, End: off + j + 1},
			})
		}
		if len(slices) > 0 {
			line.Runs = []LayoutRun{{Direction: LeftToRight, Bounds: line.Bounds, Slices: slices}}
		}
		l.Lines = append(l.Lines, line)
		off += len(ln) + 1
	}
	l.normalizeRanges()
	return l
}

func newTestModel(layouts ...*TextLayout) *SelectionModel {
	m := NewSelectionModel()
	m.SetLayoutCollection(NewLayoutCollection(layouts))
	return m
}

func TestNormalizeRangesCoversWholeText(t *testing.T) {
	l := buildLayout(Point{}, "ab", "cd")
	// First slice pulled to 0; the newline gap between "ab" and "cd" is
	// absorbed by the preceding slice; the tail extends to len(text).
	first := l.Lines[0].Runs[0].Slices[0]
	assert.Equal(t, 0, first.Range.Start)
	lastOfLine0 := l.Lines[0].Runs[0].Slices[1]
	assert.Equal(t, 3, lastOfLine0.Range.End, "newline gap closed")
	last := l.Lines[1].Runs[0].Slices[1]
	assert.Equal(t, len(l.Text), last.Range.End)
}

func TestEmptyModelDegeneracy(t *testing.T) {
	m := NewSelectionModel()
	assert.Zero(t, m.StringLength())
	assert.Equal(t, Position{}, m.StartPosition())
	assert.Equal(t, Position{}, m.EndPosition())
	assert.Nil(t, m.ClosestPosition(Point{X: 10, Y: 10}))
	assert.Nil(t, m.PositionAt(0))
	assert.False(t, m.ContainsText(Point{}))
	m.SelectAll()
	assert.Nil(t, m.SelectedRange())
}

func TestPositionAtRoundTrip(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "hello world"))
	n := m.StringLength()
	require.Equal(t, 11, n)
	for off := 0; off <= n; off++ {
		p := m.PositionAt(off)
		require.NotNil(t, p, "offset %d", off)
		assert.Equal(t, off, m.CharacterIndex(*p), "offset %d", off)
	}
	assert.Nil(t, m.PositionAt(-1))
	assert.Nil(t, m.PositionAt(n+1))
}

func TestPositionAtResolvesGapOffsets(t *testing.T) {
	// The newline between the two lines has no slice of its own, but
	// every offset must still resolve somewhere.
	m := newTestModel(buildLayout(Point{}, "ab", "cd"))
	for off := 0; off <= m.StringLength(); off++ {
		assert.NotNil(t, m.PositionAt(off), "offset %d", off)
	}
}

func TestPositionOffsetWalks(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "abcde"))
	p := m.PositionAt(1)
	require.NotNil(t, p)
	q := m.PositionOffset(*p, 3)
	require.NotNil(t, q)
	assert.Equal(t, 4, m.CharacterIndex(*q))
	assert.Nil(t, m.PositionOffset(*p, 100))
}

func TestClosestPositionAffinity(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "hello"))

	p := m.ClosestPosition(Point{X: 1, Y: 10})
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Slice)
	assert.Equal(t, Downstream, p.Affinity)

	p = m.ClosestPosition(Point{X: 9, Y: 10})
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Slice)
	assert.Equal(t, Upstream, p.Affinity)

	// Far beyond the end snaps to the last slice, trailing edge.
	p = m.ClosestPosition(Point{X: 500, Y: 10})
	require.NotNil(t, p)
	assert.Equal(t, 4, p.Slice)
	assert.Equal(t, Upstream, p.Affinity)

	// Above the layout still resolves to the first line.
	p = m.ClosestPosition(Point{X: 1, Y: -50})
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Line)
}

func TestClosestPositionInRangeClamps(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "abcdef"))
	r := NewRange(*m.PositionAt(2), *m.PositionAt(4))
	p := m.ClosestPositionInRange(Point{X: 1, Y: 10}, r)
	require.NotNil(t, p)
	assert.Zero(t, p.Compare(r.Start()))
	p = m.ClosestPositionInRange(Point{X: 500, Y: 10}, r)
	require.NotNil(t, p)
	assert.Zero(t, p.Compare(r.End()))
	p = m.ClosestPositionInRange(Point{X: 25, Y: 10}, r)
	require.NotNil(t, p)
	assert.True(t, p.Compare(r.Start()) >= 0 && p.Compare(r.End()) <= 0)
}

func TestCharacterRangeAt(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "hello"))
	r := m.CharacterRangeAt(Point{X: 25, Y: 10})
	require.NotNil(t, r)
	assert.False(t, r.IsCollapsed())
	assert.Equal(t, "l", m.Text(*r))
}

func TestSelectAllAndText(t *testing.T) {
	m := newTestModel(
		buildLayout(Point{}, "hello"),
		buildLayout(Point{Y: 40}, "world"),
	)
	m.SelectAll()
	r := m.SelectedRange()
	require.NotNil(t, r)
	assert.Equal(t, "helloworld", m.Text(*r))

	spans := m.AttributedText(*r)
	require.Len(t, spans, 2)
	assert.Equal(t, TextSpan{LayoutIndex: 0, Text: "hello"}, spans[0])
	assert.Equal(t, TextSpan{LayoutIndex: 1, Text: "world"}, spans[1])
}

func TestCaretRect(t *testing.T) {
	m := newTestModel(buildLayout(Point{X: 100, Y: 50}, "abc"))
	p := m.PositionAt(1)
	require.NotNil(t, p)
	cr, ok := m.CaretRect(*p)
	require.True(t, ok)
	assert.Equal(t, 110.0, cr.MinX)
	assert.Equal(t, cr.MinX, cr.MaxX, "caret is zero width")
	assert.Equal(t, 50.0, cr.MinY)
	assert.Equal(t, 70.0, cr.MaxY)
}

func TestCaretClosestPositionFixedPoint(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "abc", "def"))
	for off := 0; off <= m.StringLength(); off++ {
		p := m.PositionAt(off)
		require.NotNil(t, p, "offset %d", off)
		cr, ok := m.CaretRect(*p)
		require.True(t, ok, "offset %d", off)

		// Hitting the caret's own x must land on a position with the same
		// caret, and re-querying that caret must be a fixed point.
		at := Point{X: cr.MinX, Y: (cr.MinY + cr.MaxY) / 2}
		q := m.ClosestPosition(at)
		require.NotNil(t, q, "offset %d", off)
		cr2, ok := m.CaretRect(*q)
		require.True(t, ok, "offset %d", off)
		assert.Equal(t, cr.MinX, cr2.MinX, "offset %d: caret x drifted", off)
		assert.Equal(t, cr.MinY, cr2.MinY, "offset %d: caret line drifted", off)

		q2 := m.ClosestPosition(Point{X: cr2.MinX, Y: (cr2.MinY + cr2.MaxY) / 2})
		require.NotNil(t, q2, "offset %d", off)
		assert.Equal(t, *q, *q2, "offset %d: not a fixed point", off)
	}
}

func TestSelectionRectsSingleLine(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "hello"))
	r := NewRange(*m.PositionAt(1), *m.PositionAt(4))
	rects := m.SelectionRects(r)
	require.Len(t, rects, 1)
	assert.Equal(t, Rect{MinX: 10, MinY: 0, MaxX: 40, MaxY: 20}, rects[0].Rect)
	assert.True(t, rects[0].ContainsStart)
	assert.True(t, rects[0].ContainsEnd)
}

func TestSelectionRectsCollapsedRangeEmpty(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "hello"))
	p := m.PositionAt(2)
	require.NotNil(t, p)
	assert.Nil(t, m.SelectionRects(NewRange(*p, *p)))
}

func TestSelectionRectsInflationClosesGaps(t *testing.T) {
	m := newTestModel(
		buildLayout(Point{}, "aaaa"),
		buildLayout(Point{Y: 30}, "bbbb"),
	)
	m.SelectAll()
	rects := m.SelectionRects(*m.SelectedRange())
	require.Len(t, rects, 2)
	assert.Equal(t, 20.0, rects[0].Rect.MaxY)
	// The 10px paragraph gap is closed by extending the second rect up.
	assert.Equal(t, 20.0, rects[1].Rect.MinY)
	assert.True(t, rects[0].ContainsStart)
	assert.True(t, rects[1].ContainsEnd)
}

func TestSetLayoutCollectionReconciles(t *testing.T) {
	first := buildLayout(Point{}, "hello")
	m := newTestModel(first)
	r := NewRange(*m.PositionAt(1), *m.PositionAt(4))
	m.SetSelectedRange(&r)

	// Same block count, new geometry: selection survives by local offset.
	moved := buildLayout(Point{Y: 200}, "hello")
	m.SetLayoutCollection(NewLayoutCollection([]*TextLayout{moved}))
	require.NotNil(t, m.SelectedRange())
	assert.Equal(t, "ell", m.Text(*m.SelectedRange()))

	// Identity-equal collection is a no-op.
	same := m.LayoutCollection()
	m.SetLayoutCollection(same)
	assert.NotNil(t, m.SelectedRange())

	// Block count change drops the selection.
	m.SetLayoutCollection(NewLayoutCollection([]*TextLayout{
		buildLayout(Point{}, "he"),
		buildLayout(Point{Y: 40}, "llo"),
	}))
	assert.Nil(t, m.SelectedRange())
}

func TestChangeHooksBracketMutation(t *testing.T) {
	m := newTestModel(buildLayout(Point{}, "abc"))
	var events []string
	m.WillChange = func() { events = append(events, "will") }
	m.DidChange = func() { events = append(events, "did") }
	m.SelectAll()
	assert.Equal(t, []string{"will", "did"}, events)
	m.ClearSelection()
	assert.Equal(t, []string{"will", "did", "will", "did"}, events)
	// Clearing an already clear selection fires nothing.
	m.ClearSelection()
	assert.Len(t, events, 4)
}

func TestTextHitRectsMargins(t *testing.T) {
	m := newTestModel(buildLayout(Point{X: 100, Y: 100}, "abc"))
	// 5px left of the first glyph: inside the loose horizontal margin.
	assert.True(t, m.ContainsText(Point{X: 95, Y: 110}))
	// 5px above: outside the tighter vertical margin.
	assert.False(t, m.ContainsText(Point{X: 110, Y: 95}))
	assert.True(t, m.ContainsText(Point{X: 110, Y: 98}))
	assert.False(t, m.ContainsText(Point{X: 300, Y: 110}))
}

func TestRangeContainsAffinity(t *testing.T) {
	start := Position{Slice: 1, Affinity: Downstream}
	end := Position{Slice: 3, Affinity: Upstream}
	r := NewRange(start, end)
	assert.False(t, r.Contains(start), "downstream start excludes itself")
	assert.False(t, r.Contains(end), "upstream end excludes itself")
	assert.True(t, r.Contains(Position{Slice: 2}))
	assert.True(t, r.Contains(Position{Slice: 1, Affinity: Upstream}))
	assert.False(t, r.Contains(Position{Slice: 4}))
}
