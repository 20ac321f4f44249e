package mdview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperscriptNumber(t *testing.T) {
	assert.Equal(t, "¹", superscriptNumber(1))
	assert.Equal(t, "⁴²", superscriptNumber(42))
	assert.Equal(t, "¹⁰⁰", superscriptNumber(100))
}

func TestPreprocessFootnotesBasic(t *testing.T) {
	md := "A claim[^1] and another[^note].\n\n[^1]: First source.\n[^note]: Second source.\n"
	res := PreprocessFootnotes(md)
	require.True(t, res.HasFootnotes)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"1", "note"}, res.Order)
	assert.Contains(t, res.Markdown, "A claim¹ and another².")
	assert.NotContains(t, res.Markdown, "[^1]")
	assert.Contains(t, res.Markdown, "---")
	assert.Contains(t, res.Markdown, "¹ First source.")
	assert.Contains(t, res.Markdown, "² Second source.")
}

func TestPreprocessFootnotesNoReferences(t *testing.T) {
	md := "Nothing to see here.\n"
	res := PreprocessFootnotes(md)
	assert.False(t, res.HasFootnotes)
	assert.Equal(t, md, res.Markdown)
	assert.Zero(t, res.Count)
}

func TestPreprocessFootnotesOrderIsFirstAppearance(t *testing.T) {
	md := "b[^b] then a[^a] then b again[^b]\n\n[^a]: A.\n[^b]: B.\n"
	res := PreprocessFootnotes(md)
	assert.Equal(t, []string{"b", "a"}, res.Order)
	assert.Contains(t, res.Markdown, "b¹ then a² then b again¹")
}

func TestPreprocessFootnotesUndefined(t *testing.T) {
	res := PreprocessFootnotes("See[^missing] this.\n")
	require.True(t, res.HasFootnotes)
	assert.Contains(t, res.Markdown, "¹ *[undefined]*")
}

func TestPreprocessFootnotesCodeFenceImmunity(t *testing.T) {
	md := "```\nliteral[^1] text\n```\n\n[^1]: unused\n"
	res := PreprocessFootnotes(md)
	assert.False(t, res.HasFootnotes)
	assert.Contains(t, res.Markdown, "literal[^1] text")
}

func TestPreprocessFootnotesIndentedCodeImmunity(t *testing.T) {
	md := "para\n\n    code[^1] here\n\nreal[^1]\n\n[^1]: Def.\n"
	res := PreprocessFootnotes(md)
	require.True(t, res.HasFootnotes)
	assert.Contains(t, res.Markdown, "code[^1] here")
	assert.Contains(t, res.Markdown, "real¹")
}

func TestPreprocessFootnotesContinuationLines(t *testing.T) {
	md := "x[^1]\n\n[^1]: first part\n    second part\n    third part\n"
	res := PreprocessFootnotes(md)
	assert.Equal(t, "first part second part third part", res.Definitions["1"])
	assert.Contains(t, res.Markdown, "¹ first part second part third part")
}

func TestPreprocessFootnotesUnreferencedDefinitionKept(t *testing.T) {
	md := "x[^a]\n\n[^a]: Used.\n[^b]: Orphan.\n"
	res := PreprocessFootnotes(md)
	assert.Equal(t, "Orphan.", res.Definitions["b"])
	assert.Equal(t, []string{"a"}, res.Order)
	// Orphan definitions do not show up in the appended section.
	section := res.Markdown[strings.LastIndex(res.Markdown, "---"):]
	assert.NotContains(t, section, "Orphan.")
}

func TestParseFootnoteDefinition(t *testing.T) {
	id, def, ok := parseFootnoteDefinition("[^ref]: The definition")
	require.True(t, ok)
	assert.Equal(t, "ref", id)
	assert.Equal(t, "The definition", def)

	_, _, ok = parseFootnoteDefinition("[^a b]: spaces in id")
	assert.False(t, ok)
	_, _, ok = parseFootnoteDefinition("plain line")
	assert.False(t, ok)
	_, _, ok = parseFootnoteDefinition("[^x] no colon")
	assert.False(t, ok)
}
