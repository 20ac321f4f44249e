package mdview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"strings"

	"github.com/golang/freetype"
	"github.com/yuin/goldmark/ast"
	extensionAST "github.com/yuin/goldmark/extension/ast"
)

const (
	listIndentStep  = 32
	listMarkerWidth = 28
	listMarkerGap   = 8
)

// Bullet glyph rotates with nesting depth.
var bulletGlyphs = [4]string{"•", "◦", "▪", "▫"}

type renderer struct {
	c         *canvas
	baseSize  float64
	features  Features
	baseURL   *url.URL
	math      MathRenderer
	diagrams  DiagramRenderer
	tokenizer CodeTokenizer
	images    ImageSource
	source    []byte
}

func (r *renderer) render(doc ast.Node) {
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderBlock(child, r.c.margin, r.c.w-r.c.margin, 1.0)
	}
}

// renderBlock dispatches one block node. left/right bound the content area;
// spacing scales the vertical gaps (blockquote recursion halves it).
func (r *renderer) renderBlock(n ast.Node, left, right int, spacing float64) {
	switch nd := n.(type) {
	case *ast.Heading:
		var size float64
		switch nd.Level {
		case 1:
			size = r.baseSize * 1.9
		case 2:
			size = r.baseSize * 1.6
		case 3:
			size = r.baseSize * 1.4
		case 4:
			size = r.baseSize * 1.25
		default:
			size = r.baseSize * 1.15
		}
		var ic inlineCollector
		r.collectInlineTokens(nd, r.c.fonts.Bold, size, r.c.th.FG, &ic)
		r.c.addVSpace(int(r.baseSize * 0.75 * spacing))
		_ = r.c.drawTokens(ic.tokens, left, right, ic.text.String())
		r.c.addVSpace(int(r.baseSize * 0.5 * spacing))
	case *ast.Paragraph:
		if expr, ok := r.pureDisplayMath(nd); ok {
			r.renderDisplayMath(expr, left, right, spacing)
			return
		}
		var ic inlineCollector
		r.collectInlineTokens(nd, r.c.fonts.Regular, r.baseSize, r.c.th.FG, &ic)
		if len(ic.tokens) > 0 {
			_ = r.c.drawTokens(ic.tokens, left, right, ic.text.String())
			r.c.addVSpace(int(r.baseSize * 0.9 * spacing))
		}
	case *ast.List:
		r.renderList(nd, left, right, 0, spacing)
	case *extensionAST.Table:
		r.renderTable(nd, left, right, spacing)
	case *ast.FencedCodeBlock:
		lang := ""
		if nd.Info != nil {
			lang = strings.TrimSpace(string(nd.Language(r.source)))
		}
		text := strings.TrimRight(string(nd.Text(r.source)), "\n")
		if strings.EqualFold(lang, "mermaid") {
			r.renderDiagram(text, left, right, spacing)
			return
		}
		r.c.addVSpace(4)
		r.c.drawCodeBlock(text, left, right, r.baseSize*0.95, r.colorizer(lang))
	case *ast.CodeBlock:
		text := strings.TrimRight(string(nd.Text(r.source)), "\n")
		r.c.addVSpace(4)
		r.c.drawCodeBlock(text, left, right, r.baseSize*0.95, nil)
	case *ast.Blockquote:
		r.renderBlockquote(nd, left, right, spacing)
	case *ast.ThematicBreak:
		r.c.drawHRule()
	case *ast.HTMLBlock:
		r.renderHTMLBlock(nd, left, right, spacing)
	default:
		// Unknown blocks render nothing.
	}
}

// pureDisplayMath reports whether the paragraph is a lone $$...$$
// expression, which bypasses inline flow and renders as a display block.
func (r *renderer) pureDisplayMath(p *ast.Paragraph) (string, bool) {
	text := strings.TrimSpace(string(p.Text(r.source)))
	if !ContainsMath(text) {
		return "", false
	}
	segs := SegmentInline(text)
	if len(segs) == 1 && segs[0].Kind == SegmentMath && segs[0].Display {
		return segs[0].Content, true
	}
	return "", false
}

func (r *renderer) renderDisplayMath(expr string, left, right int, spacing float64) {
	img, err := r.math.Render(expr, r.baseSize, true)
	if err != nil || img == nil {
		ic := inlineCollector{}
		ic.add(textToken{text: expr, font: r.c.fonts.Italic, size: r.baseSize, color: r.c.th.FG})
		_ = r.c.drawTokens(ic.tokens, left, right, ic.text.String())
		r.c.addVSpace(int(r.baseSize * 0.9 * spacing))
		return
	}
	tokens := []textToken{{image: img, center: true}}
	r.c.addVSpace(int(r.baseSize * 0.3 * spacing))
	_ = r.c.drawTokens(tokens, left, right, "")
	r.c.addVSpace(int(r.baseSize * 0.3 * spacing))
}

func (r *renderer) renderDiagram(source string, left, right int, spacing float64) {
	dr := r.diagrams
	if dr == nil || !r.features.Has(FeatureMermaid) {
		dr = NewDiagramPlaceholder(r.c.fonts, r.c.th, r.baseSize*0.9)
	}
	img, err := dr.Render(source, right-left)
	if err != nil || img == nil {
		r.c.addVSpace(4)
		r.c.drawCodeBlock(source, left, right, r.baseSize*0.95, nil)
		return
	}
	tokens := []textToken{{image: img}}
	r.c.addVSpace(int(r.baseSize * 0.3 * spacing))
	_ = r.c.drawTokens(tokens, left, right, "")
}

func (r *renderer) colorizer(lang string) func(line string) []CodeToken {
	if !r.features.Has(FeatureSyntaxHighlighting) || r.tokenizer == nil || lang == "" {
		return nil
	}
	return func(line string) []CodeToken {
		return r.tokenizer.Tokenize(lang, line)
	}
}

func (r *renderer) renderBlockquote(bq *ast.Blockquote, left, right int, spacing float64) {
	startY := r.c.cursorY
	r.c.addVSpace(2)
	for child := bq.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderBlock(child, left+14, right, spacing*0.5)
	}
	r.c.addVSpace(4)
	r.c.drawQuoteBar(left, startY+2, r.c.cursorY-startY-2)
	r.c.addVSpace(int(r.baseSize * 0.5 * spacing))
}

func (r *renderer) renderHTMLBlock(nd *ast.HTMLBlock, left, right int, spacing float64) {
	var sb strings.Builder
	for i := 0; i < nd.Lines().Len(); i++ {
		seg := nd.Lines().At(i)
		sb.Write(seg.Value(r.source))
	}
	if nd.HasClosure() {
		sb.Write(nd.ClosureLine.Value(r.source))
	}
	text := strings.TrimRight(sb.String(), "\n")
	if text == "" {
		return
	}
	var ic inlineCollector
	for i, ln := range strings.Split(text, "\n") {
		if i > 0 {
			ic.add(textToken{newline: true})
		}
		ic.add(textToken{text: ln, font: r.c.fonts.Mono, size: r.baseSize * 0.95, color: r.c.th.FG})
	}
	_ = r.c.drawTokens(ic.tokens, left, right, ic.text.String())
	r.c.addVSpace(int(r.baseSize * 0.9 * spacing))
}

// ---- Inline collection ----

func (r *renderer) collectInlineTokens(node ast.Node, font *FontAndFace, size float64, col color.Color, ic *inlineCollector) {
	if font == nil {
		font = r.c.fonts.Regular
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			text := string(c.Segment.Value(r.source))
			if text != "" {
				parts := strings.Split(text, "\n")
				for i, part := range parts {
					if part != "" {
						r.collectTextPart(part, font, size, col, ic)
					}
					if i < len(parts)-1 {
						ic.add(textToken{newline: true})
					}
				}
			}
			if c.SoftLineBreak() || c.HardLineBreak() {
				ic.add(textToken{newline: true})
			}
		case *ast.String:
			if len(c.Value) > 0 {
				r.collectTextPart(string(c.Value), font, size, col, ic)
			}
		case *ast.Link:
			before := len(ic.tokens)
			r.collectInlineTokens(c, font, size, r.c.th.Link, ic)
			dest := r.resolveLink(string(c.Destination))
			for i := before; i < len(ic.tokens); i++ {
				ic.tokens[i].color = r.c.th.Link
				ic.tokens[i].underline = true
				if r.features.Has(FeatureLinks) {
					ic.tokens[i].link = dest
				}
			}
		case *ast.AutoLink:
			label := string(c.Label(r.source))
			if label == "" {
				label = string(c.URL(r.source))
			}
			if label != "" {
				tok := textToken{text: label, font: font, size: size, color: r.c.th.Link, underline: true}
				if r.features.Has(FeatureLinks) {
					tok.link = r.resolveLink(string(c.URL(r.source)))
				}
				ic.add(tok)
			}
		case *ast.Image:
			r.collectImage(c, font, size, ic)
		case *ast.Paragraph, *ast.TextBlock:
			r.collectInlineTokens(child, font, size, col, ic)
			if child.NextSibling() != nil {
				ic.add(textToken{newline: true})
			}
		case *ast.Emphasis:
			nextFont := font
			if c.Level >= 2 {
				if r.c.fonts.Bold != nil {
					nextFont = r.c.fonts.Bold
				}
			} else if r.c.fonts.Italic != nil {
				nextFont = r.c.fonts.Italic
			}
			r.collectInlineTokens(c, nextFont, size, col, ic)
		case *extensionAST.Strikethrough:
			before := len(ic.tokens)
			r.collectInlineTokens(c, font, size, col, ic)
			for i := before; i < len(ic.tokens); i++ {
				ic.tokens[i].strike = true
			}
		case *extensionAST.TaskCheckBox:
			glyph := "☐"
			if c.IsChecked {
				glyph = "☑"
			}
			ic.add(textToken{text: glyph + " ", font: font, size: size, color: col})
		case *ast.CodeSpan:
			mono := r.c.fonts.Mono
			if mono == nil {
				mono = font
			}
			txt := string(c.Text(r.source))
			if txt != "" {
				ic.add(textToken{text: txt, font: mono, size: size * 0.95, color: col})
			}
		case *ast.RawHTML:
			var sb strings.Builder
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				sb.Write(seg.Value(r.source))
			}
			if sb.Len() > 0 {
				ic.add(textToken{text: sb.String(), font: r.c.fonts.Mono, size: size * 0.95, color: col})
			}
		default:
			if child.HasChildren() {
				r.collectInlineTokens(child, font, size, col, ic)
			}
		}
	}
}

// collectTextPart runs the math segmenter over one newline-free span and
// emits text tokens and math boxes.
func (r *renderer) collectTextPart(part string, font *FontAndFace, size float64, col color.Color, ic *inlineCollector) {
	if !ContainsMath(part) {
		ic.add(textToken{text: part, font: font, size: size, color: col})
		return
	}
	for _, seg := range SegmentInline(part) {
		if seg.Kind == SegmentText {
			if seg.Content != "" {
				ic.add(textToken{text: seg.Content, font: font, size: size, color: col})
			}
			continue
		}
		ic.add(r.mathToken(seg.Content, size, seg.Display, col))
	}
}

func (r *renderer) mathToken(expr string, size float64, display bool, col color.Color) textToken {
	img, err := r.math.Render(expr, size, display)
	if err != nil || img == nil {
		return textToken{text: expr, font: r.c.fonts.Italic, size: size, color: col}
	}
	boxText := FormatMath(expr)
	if boxText == "" {
		boxText = expr
	}
	return textToken{box: img, boxText: boxText, size: size, color: col}
}

func (r *renderer) resolveLink(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" || r.baseURL == nil {
		return dest
	}
	u, err := url.Parse(dest)
	if err != nil {
		return dest
	}
	return r.baseURL.ResolveReference(u).String()
}

func (r *renderer) collectImage(c *ast.Image, font *FontAndFace, size float64, ic *inlineCollector) {
	dest := strings.TrimSpace(string(c.Destination))
	alt := strings.TrimSpace(string(c.Text(r.source)))
	if alt == "" {
		alt = strings.TrimSpace(string(c.Title))
	}
	if !r.features.Has(FeatureImages) || r.images == nil {
		label := alt
		if label == "" {
			label = dest
		}
		ic.add(textToken{text: "[" + label + "]", font: font, size: size, color: r.c.th.FG})
		return
	}
	img, err := r.images.Load(dest)
	switch {
	case err == nil && img != nil:
		ic.add(textToken{image: img, center: true, boxText: alt})
	case errors.Is(err, ErrImagePending):
		label := alt
		if label == "" {
			label = dest
		}
		ic.add(textToken{text: "⏳ " + label, font: r.c.fonts.Italic, size: size, color: r.c.th.QuoteBar})
	default:
		fallback := alt
		fallbackColor := r.c.th.FG
		if fallback == "" {
			fallback = dest
			fallbackColor = warningColor
		}
		if fallback != "" {
			ic.add(textToken{text: fallback, font: font, size: size, color: fallbackColor})
		}
	}
}

// ---- Lists ----

func (r *renderer) markerPositions(left, level int) (markerLeft, markerRight, contentLeft int) {
	markerLeft = left + level*listIndentStep
	markerRight = markerLeft + listMarkerWidth
	contentLeft = markerRight + listMarkerGap
	return
}

func (r *renderer) drawListMarker(marker string, baseline int, markerLeft, markerRight int) {
	font := r.c.fonts.Regular
	if font == nil {
		return
	}
	r.c.setFace(font, r.c.th.FG, r.baseSize)
	width := measureWidth(font, r.baseSize, marker)
	x := markerRight - int(width)
	if x < markerLeft {
		x = markerLeft
	}
	pt := freetype.Pt(x, baseline)
	_, _ = r.c.dc.DrawString(marker, pt)
}

func (r *renderer) renderList(list *ast.List, left, right, level int, spacing float64) {
	markerLeft, markerRight, contentLeft := r.markerPositions(left, level)
	itemSpacing := int(r.baseSize * 0.6 * spacing)
	start := list.Start
	if !list.IsOrdered() || start == 0 {
		start = 1
	}
	index := 0
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := bulletGlyphs[level%len(bulletGlyphs)]
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d%c", start+index, list.Marker)
		}
		if itemHasTaskCheckBox(li) {
			marker = ""
		}
		r.renderListItem(li, right, level, marker, markerLeft, markerRight, contentLeft, spacing)
		if item.NextSibling() != nil {
			r.c.addVSpace(itemSpacing)
		}
		index++
	}
	r.c.addVSpace(int(r.baseSize * 0.7 * spacing))
}

// itemHasTaskCheckBox reports whether the item's first inline child is a
// task checkbox; those items draw the checkbox glyph instead of a bullet.
func itemHasTaskCheckBox(li *ast.ListItem) bool {
	first := li.FirstChild()
	if first == nil {
		return false
	}
	if _, ok := first.FirstChild().(*extensionAST.TaskCheckBox); ok {
		return true
	}
	return false
}

func (r *renderer) renderListItem(li *ast.ListItem, right, level int, marker string, markerLeft, markerRight, contentLeft int, spacing float64) {
	startY := r.c.cursorY
	markerDrawn := marker == ""
	blockSpacing := int(r.baseSize * 0.5 * spacing)

	ensureMarker := func(baseline int) {
		if markerDrawn {
			return
		}
		r.drawListMarker(marker, baseline, markerLeft, markerRight)
		markerDrawn = true
	}

	itemLeft := contentLeft
	if marker == "" {
		// Task items draw the checkbox inline; content starts where the
		// marker column would.
		itemLeft = markerLeft
	}

	inlineBlock := func(node ast.Node) {
		var ic inlineCollector
		r.collectInlineTokens(node, r.c.fonts.Regular, r.baseSize, r.c.th.FG, &ic)
		if len(ic.tokens) == 0 {
			text := strings.TrimRight(string(node.Text(r.source)), "\n")
			if text == "" {
				return
			}
			ic.add(textToken{text: text, font: r.c.fonts.Regular, size: r.baseSize, color: r.c.th.FG})
		}
		metrics := r.c.drawTokens(ic.tokens, itemLeft, right, ic.text.String())
		if len(metrics) > 0 {
			ensureMarker(metrics[0].baseline)
		} else {
			ensureMarker(startY + int(r.baseSize))
		}
		if node.NextSibling() != nil {
			r.c.addVSpace(blockSpacing)
		}
	}

	for child := li.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Paragraph:
			if expr, ok := r.pureDisplayMath(c); ok {
				ensureMarker(startY + int(r.baseSize))
				r.renderDisplayMath(expr, itemLeft, right, spacing)
				continue
			}
			inlineBlock(c)
		case *ast.TextBlock:
			inlineBlock(c)
		case *ast.List:
			ensureMarker(startY + int(r.baseSize))
			r.c.addVSpace(int(r.baseSize * 0.3 * spacing))
			r.renderList(c, markerLeft-level*listIndentStep, right, level+1, spacing)
		default:
			ensureMarker(startY + int(r.baseSize))
			r.c.addVSpace(int(r.baseSize * 0.2 * spacing))
			r.renderBlock(child, itemLeft, right, spacing)
			if child.NextSibling() != nil {
				r.c.addVSpace(blockSpacing)
			}
		}
	}

	if !markerDrawn {
		ensureMarker(startY + int(r.baseSize))
	}
}

// ---- Tables ----

type tableCell struct {
	tokens []textToken
	text   string
}

type tableRow struct {
	cells  []tableCell
	header bool
}

func (r *renderer) collectTableRow(row ast.Node, header bool) tableRow {
	tr := tableRow{header: header}
	font := r.c.fonts.Regular
	if header {
		font = r.c.fonts.Bold
	}
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if tc, ok := cell.(*extensionAST.TableCell); ok {
			var ic inlineCollector
			r.collectInlineTokens(tc, font, r.baseSize, r.c.th.FG, &ic)
			tr.cells = append(tr.cells, tableCell{tokens: ic.tokens, text: ic.text.String()})
		}
	}
	return tr
}

func (r *renderer) renderTable(tbl *extensionAST.Table, left, right int, spacing float64) {
	var rows []tableRow
	for node := tbl.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *extensionAST.TableHeader:
			rows = append(rows, r.collectTableRow(n, true))
		case *extensionAST.TableRow:
			rows = append(rows, r.collectTableRow(n, false))
		}
	}
	if len(rows) == 0 {
		return
	}
	colCount := 0
	for _, row := range rows {
		if len(row.cells) > colCount {
			colCount = len(row.cells)
		}
	}
	if colCount == 0 {
		return
	}

	border := 1
	cellPadding := int(r.baseSize * 0.6)
	if cellPadding < 8 {
		cellPadding = 8
	}
	availableWidth := right - left
	minWidth := colCount*40 + border*(colCount+1)
	if availableWidth < minWidth {
		availableWidth = minWidth
	}
	colWidth := (availableWidth - border*(colCount+1)) / colCount
	if colWidth < 60 {
		colWidth = 60
	}
	tableWidth := colCount*colWidth + border*(colCount+1)
	if tableWidth > availableWidth {
		tableWidth = availableWidth
	}
	tableLeft := left
	tableRight := tableLeft + tableWidth

	r.c.addVSpace(int(r.baseSize * 0.3 * spacing))
	tableTop := r.c.cursorY
	r.c.fillRect(image.Rect(tableLeft, tableTop, tableRight, tableTop+border), r.c.th.HRule)
	y := tableTop + border

	cellBounds := func(col, rowTop int) (contentLeft, contentRight, start int) {
		cellLeft := tableLeft + border + col*(colWidth+border)
		cellRight := cellLeft + colWidth
		contentLeft = cellLeft + cellPadding
		contentRight = cellRight - cellPadding
		if contentRight <= contentLeft {
			contentRight = cellRight - 2
		}
		start = rowTop + cellPadding
		return
	}

	for _, row := range rows {
		rowTop := y

		// Measure first so header background can be filled before any
		// text lands on it.
		maxCellHeight := 0
		for col := 0; col < colCount; col++ {
			contentLeft, contentRight, _ := cellBounds(col, rowTop)
			var tokens []textToken
			if col < len(row.cells) {
				tokens = row.cells[col].tokens
			}
			height := r.c.measureTokens(tokens, contentLeft, contentRight)
			if height == 0 {
				height = int(r.baseSize * 1.1)
			}
			if height > maxCellHeight {
				maxCellHeight = height
			}
		}
		if maxCellHeight < int(r.baseSize*1.1) {
			maxCellHeight = int(r.baseSize * 1.1)
		}
		rowBottom := rowTop + maxCellHeight + 2*cellPadding

		if row.header {
			r.c.fillRect(image.Rect(tableLeft, rowTop, tableRight, rowBottom), r.c.th.TableHeaderBG)
		}
		for col := 0; col < colCount; col++ {
			contentLeft, contentRight, start := cellBounds(col, rowTop)
			if col >= len(row.cells) {
				continue
			}
			r.c.cursorY = start
			_ = r.c.drawTokens(row.cells[col].tokens, contentLeft, contentRight, row.cells[col].text)
		}
		r.c.fillRect(image.Rect(tableLeft, rowBottom, tableRight, rowBottom+border), r.c.th.HRule)
		y = rowBottom + border
	}

	tableBottom := y - border
	for col := 0; col <= colCount; col++ {
		x := tableLeft + col*(colWidth+border)
		r.c.fillRect(image.Rect(x, tableTop, x+border, tableBottom+border), r.c.th.HRule)
	}
	r.c.cursorY = tableBottom + int(r.baseSize*0.7*spacing)
}
