package mdview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsMath(t *testing.T) {
	assert.False(t, ContainsMath("no math here"))
	assert.True(t, ContainsMath("price is $5"))
	assert.True(t, ContainsMath("$x$"))
}

func TestSegmentInlinePlainText(t *testing.T) {
	segs := SegmentInline("just words")
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Kind: SegmentText, Content: "just words"}, segs[0])
}

func TestSegmentInlineInlineMath(t *testing.T) {
	segs := SegmentInline("a $x+y$ b")
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Kind: SegmentText, Content: "a "}, segs[0])
	assert.Equal(t, Segment{Kind: SegmentMath, Content: "x+y"}, segs[1])
	assert.Equal(t, Segment{Kind: SegmentText, Content: " b"}, segs[2])
}

func TestSegmentInlineDisplayMath(t *testing.T) {
	segs := SegmentInline("$$ E = mc^2 $$")
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Kind: SegmentMath, Content: "E = mc^2", Display: true}, segs[0])
}

func TestSegmentInlineDisplayBeforeInline(t *testing.T) {
	// $$...$$ wins over reading the leading $ as an inline opener.
	segs := SegmentInline("$$a$$b$")
	require.NotEmpty(t, segs)
	assert.Equal(t, Segment{Kind: SegmentMath, Content: "a", Display: true}, segs[0])
	assert.Equal(t, Segment{Kind: SegmentText, Content: "b$"}, segs[1])
}

func TestSegmentInlineUnterminatedDisplay(t *testing.T) {
	// An unclosed $$ degrades; the two dollars cannot open inline math
	// either, so everything stays text.
	segs := SegmentInline("$$x + y")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "$$x + y", segs[0].Content)
}

func TestSegmentInlineWhitespaceRules(t *testing.T) {
	for _, input := range []string{
		"$ x$",       // space after opener
		"$x $",       // space before closer
		"$5 and $6",  // currency-looking text
		"a $ b $ c",  // both delimiters whitespace-adjacent
	} {
		segs := SegmentInline(input)
		require.Len(t, segs, 1, "input %q", input)
		assert.Equal(t, SegmentText, segs[0].Kind, "input %q", input)
		assert.Equal(t, input, segs[0].Content, "input %q", input)
	}
}

func TestSegmentInlineEscapedCloser(t *testing.T) {
	segs := SegmentInline(`$a\$b$`)
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Kind: SegmentMath, Content: `a\$b`}, segs[0])
}

func TestSegmentInlineCloserStartingDoubleDollar(t *testing.T) {
	// The $ at index 2 would start a $$, so it cannot close; the next $
	// does, leaving "x$" as the expression and "y$" as trailing text.
	segs := SegmentInline("$x$$y$")
	require.Len(t, segs, 2)
	assert.Equal(t, Segment{Kind: SegmentMath, Content: "x$"}, segs[0])
	assert.Equal(t, Segment{Kind: SegmentText, Content: "y$"}, segs[1])
}

func TestSegmentInlineNewlineAborts(t *testing.T) {
	segs := SegmentInline("$x\ny$")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "$x\ny$", segs[0].Content)
}

func TestSegmentInlineTrailingDollar(t *testing.T) {
	segs := SegmentInline("cost: 5$")
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Kind: SegmentText, Content: "cost: 5$"}, segs[0])
}
