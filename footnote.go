package mdview

import (
	"strconv"
	"strings"
)

// FootnoteResult is the outcome of PreprocessFootnotes.
type FootnoteResult struct {
	Markdown     string
	HasFootnotes bool
	Count        int
	// Definitions maps footnote identifier to its definition text. It
	// retains definitions that are never referenced.
	Definitions map[string]string
	// Order lists identifiers by first inline appearance; the index+1 is
	// the rendered superscript number.
	Order []string
}

var superscriptDigits = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
}

// superscriptNumber renders n using Unicode superscript digits.
func superscriptNumber(n int) string {
	var b strings.Builder
	for _, d := range strconv.Itoa(n) {
		if sup, ok := superscriptDigits[d]; ok {
			b.WriteRune(sup)
		} else {
			b.WriteRune(d)
		}
	}
	return b.String()
}

type footnoteLine struct {
	text     string
	excluded bool // inside a fenced or indented code block
}

// PreprocessFootnotes rewrites [^id] references into superscript markers and
// appends a trailing footnote section. Definitions ([^id]: ...) are removed
// from the body. Fenced and indented code blocks are never touched. When the
// document has no references the input is returned unchanged.
func PreprocessFootnotes(markdown string) FootnoteResult {
	res := FootnoteResult{Markdown: markdown, Definitions: map[string]string{}}

	lines := strings.Split(markdown, "\n")
	var kept []footnoteLine

	inFence := false
	fenceMarker := ""
	curID := ""
	prevBlank := true
	inIndentedCode := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indented := strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")

		if inFence {
			kept = append(kept, footnoteLine{text: line, excluded: true})
			if strings.HasPrefix(trimmed, fenceMarker) {
				inFence = false
			}
			prevBlank = false
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = true
			fenceMarker = trimmed[:3]
			curID = ""
			inIndentedCode = false
			kept = append(kept, footnoteLine{text: line, excluded: true})
			prevBlank = false
			continue
		}

		if curID != "" && indented && strings.TrimSpace(line) != "" {
			// Continuation of the current definition.
			res.Definitions[curID] += " " + strings.TrimSpace(line)
			continue
		}

		if id, def, ok := parseFootnoteDefinition(line); ok && !inIndentedCode {
			curID = id
			res.Definitions[id] = def
			continue
		}
		curID = ""

		if indented && strings.TrimSpace(line) != "" {
			if prevBlank || inIndentedCode {
				inIndentedCode = true
				kept = append(kept, footnoteLine{text: line, excluded: true})
				prevBlank = false
				continue
			}
		} else if strings.TrimSpace(line) != "" {
			inIndentedCode = false
		}

		kept = append(kept, footnoteLine{text: line, excluded: false})
		prevBlank = strings.TrimSpace(line) == ""
	}

	// Collect references in appearance order across non-excluded lines.
	type match struct {
		line, start, end int // byte offsets within the line
		id               string
	}
	var matches []match
	order := []string{}
	numbers := map[string]int{}
	for li, ln := range kept {
		if ln.excluded {
			continue
		}
		text := ln.text
		for from := 0; ; {
			rel := strings.Index(text[from:], "[^")
			if rel < 0 {
				break
			}
			start := from + rel
			rb := strings.IndexByte(text[start+2:], ']')
			if rb < 0 {
				break
			}
			end := start + 2 + rb + 1
			id := text[start+2 : end-1]
			from = end
			if id == "" || strings.ContainsAny(id, " \t") {
				continue
			}
			if end < len(text) && text[end] == ':' {
				continue
			}
			if _, seen := numbers[id]; !seen {
				order = append(order, id)
				numbers[id] = len(order)
			}
			matches = append(matches, match{line: li, start: start, end: end, id: id})
		}
	}

	if len(matches) == 0 {
		return res
	}

	// Replace in reverse match order so earlier offsets stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		text := kept[m.line].text
		kept[m.line].text = text[:m.start] + superscriptNumber(numbers[m.id]) + text[m.end:]
	}

	var out strings.Builder
	for i, ln := range kept {
		if i > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(ln.text)
	}

	out.WriteString("\n\n---\n\n")
	for i, id := range order {
		if i > 0 {
			out.WriteByte('\n')
		}
		def, ok := res.Definitions[id]
		if !ok {
			def = "*[undefined]*"
		}
		out.WriteString(superscriptNumber(i + 1))
		out.WriteByte(' ')
		out.WriteString(def)
	}
	out.WriteByte('\n')

	res.Markdown = out.String()
	res.HasFootnotes = true
	res.Count = len(order)
	res.Order = order
	return res
}

// parseFootnoteDefinition recognizes "[^id]: content" at line start.
func parseFootnoteDefinition(line string) (id, def string, ok bool) {
	if !strings.HasPrefix(line, "[^") {
		return "", "", false
	}
	rb := strings.IndexByte(line, ']')
	if rb < 0 || rb+1 >= len(line) || line[rb+1] != ':' {
		return "", "", false
	}
	id = line[2:rb]
	if id == "" || strings.ContainsAny(id, " \t") {
		return "", "", false
	}
	return id, strings.TrimSpace(line[rb+2:]), true
}
