package mdview

import (
	"strings"
	"unicode"
)

// SegmentKind discriminates the members of the Segment union.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentMath
)

// Segment is one piece of an inline run: either literal text or a math
// expression. For math segments Display distinguishes $$...$$ blocks from
// $...$ inline expressions.
type Segment struct {
	Kind    SegmentKind
	Content string
	Display bool
}

// ContainsMath is a cheap pre-check used to skip segmentation entirely for
// the common case of text with no dollar sign in it.
func ContainsMath(text string) bool {
	return strings.ContainsRune(text, '$')
}

// SegmentInline scans text left to right and splits it into text and math
// segments. Display math ($$...$$) is tried before inline math at every
// position. Unterminated or malformed delimiters are never an error; they
// degrade to literal text.
func SegmentInline(text string) []Segment {
	if !ContainsMath(text) {
		return []Segment{{Kind: SegmentText, Content: text}}
	}

	runes := []rune(text)
	var segs []Segment
	var plain []rune
	flush := func() {
		if len(plain) > 0 {
			segs = append(segs, Segment{Kind: SegmentText, Content: string(plain)})
			plain = plain[:0]
		}
	}

	i := 0
	for i < len(runes) {
		if content, end, ok := matchDisplayMath(runes, i); ok {
			flush()
			segs = append(segs, Segment{Kind: SegmentMath, Content: content, Display: true})
			i = end
			continue
		}
		if content, end, ok := matchInlineMath(runes, i); ok {
			flush()
			segs = append(segs, Segment{Kind: SegmentMath, Content: content})
			i = end
			continue
		}
		plain = append(plain, runes[i])
		i++
	}
	flush()

	if len(segs) == 0 {
		segs = []Segment{{Kind: SegmentText, Content: text}}
	}
	return segs
}

// matchDisplayMath matches $$...$$ starting at i. The content is trimmed of
// surrounding whitespace and newlines. An opening $$ with no closing $$ is
// not math.
func matchDisplayMath(runes []rune, i int) (content string, end int, ok bool) {
	if i+1 >= len(runes) || runes[i] != '$' || runes[i+1] != '$' {
		return "", i, false
	}
	for j := i + 2; j+1 < len(runes); j++ {
		if runes[j] == '$' && runes[j+1] == '$' {
			return strings.TrimSpace(string(runes[i+2 : j])), j + 2, true
		}
	}
	return "", i, false
}

// matchInlineMath matches $...$ starting at i. The opening $ must not begin
// a $$ run; the content must be non-empty, must not start or end with
// whitespace, and must not span a newline. A candidate closing $ is skipped
// when escaped with a backslash or when it would itself start a $$.
func matchInlineMath(runes []rune, i int) (content string, end int, ok bool) {
	if runes[i] != '$' {
		return "", i, false
	}
	if i+1 >= len(runes) || runes[i+1] == '$' {
		return "", i, false
	}
	if unicode.IsSpace(runes[i+1]) {
		return "", i, false
	}
	for j := i + 1; j < len(runes); j++ {
		r := runes[j]
		if r == '\n' {
			// Hitting a newline aborts the whole match; the rest of
			// the line is not math.
			return "", i, false
		}
		if r != '$' {
			continue
		}
		if runes[j-1] == '\\' {
			continue
		}
		if j+1 < len(runes) && runes[j+1] == '$' {
			continue
		}
		body := runes[i+1 : j]
		if len(body) == 0 {
			return "", i, false
		}
		if unicode.IsSpace(body[len(body)-1]) {
			return "", i, false
		}
		return string(body), j + 1, true
	}
	return "", i, false
}
