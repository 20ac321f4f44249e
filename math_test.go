package mdview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMathSymbols(t *testing.T) {
	assert.Equal(t, "α + β", FormatMath(`\alpha + \beta`))
	assert.Equal(t, "x ≤ y", FormatMath(`x \leq y`))
	assert.Equal(t, "∑ xᵢ", FormatMath(`\sum x_i`))
	assert.Equal(t, "E = mc²", FormatMath("E = mc^2"))
	assert.Equal(t, "x¹²", FormatMath("x^{12}"))
}

func TestFormatMathStructures(t *testing.T) {
	assert.Equal(t, "a/b", FormatMath(`\frac{a}{b}`))
	assert.Equal(t, "√(x+1)", FormatMath(`\sqrt{x+1}`))
	assert.Equal(t, "rate", FormatMath(`\text{rate}`))
}

func TestFormatMathUnknownCommand(t *testing.T) {
	// Unknown commands keep their name rather than vanishing.
	assert.Equal(t, "widget x", FormatMath(`\widget x`))
}

func TestFormatMathEscapes(t *testing.T) {
	assert.Equal(t, "100%", FormatMath(`100\%`))
	assert.Equal(t, "ab", FormatMath("{a}{b}"))
}

func TestFormatMathNonMappableScript(t *testing.T) {
	// Superscript letters outside the Unicode block fall back to ^ form.
	assert.Equal(t, "x^y", FormatMath("x^y"))
}

func TestUnicodeMathRendererProducesBox(t *testing.T) {
	fonts, err := LoadFonts(FontConfig{SizeBase: 16})
	require.NoError(t, err)
	mr := NewUnicodeMathRenderer(fonts, LightTheme.FG)

	img, err := mr.Render(`\alpha^2`, 16, false)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())

	display, err := mr.Render(`\sum x`, 16, true)
	require.NoError(t, err)
	assert.True(t, display.Bounds().Dy() >= img.Bounds().Dy(), "display boxes render larger")
}
