package mdview

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Markdown -> raster image renderer with math segments, footnotes and a
// selection geometry capture.
// Goals:
//  - Pure Go (no JS, no browser engine)
//  - Reasonable rendering: headings, paragraphs, lists, tables, code,
//    blockquotes, hr, inline and display math
//  - Word wrap by width; adjustable width, margins, fonts, theme
//  - Optional per-grapheme layout capture for read-only text selection
//
// Not a full HTML renderer; keep expectations practical.

// Features toggles the optional rendering capabilities. The zero value
// disables everything optional; core text rendering and math segmentation
// are always on.
type Features uint32

const (
	FeatureLinks Features = 1 << iota
	FeatureImages
	FeatureMermaid
	FeatureSyntaxHighlighting
	FeatureFootnotes
	FeatureTextSelection
)

const FeatureNone Features = 0

const FeatureAll = FeatureLinks | FeatureImages | FeatureMermaid |
	FeatureSyntaxHighlighting | FeatureFootnotes | FeatureTextSelection

// Has reports whether all bits of f2 are set.
func (f Features) Has(f2 Features) bool { return f&f2 == f2 }

var featureNames = map[string]Features{
	"links":     FeatureLinks,
	"images":    FeatureImages,
	"mermaid":   FeatureMermaid,
	"syntax":    FeatureSyntaxHighlighting,
	"footnotes": FeatureFootnotes,
	"selection": FeatureTextSelection,
}

// ParseFeatures parses a comma-separated feature list ("links,footnotes"),
// or "all" / "none".
func ParseFeatures(s string) (Features, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "none":
		return FeatureNone, nil
	case "all":
		return FeatureAll, nil
	}
	var f Features
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(strings.ToLower(part))
		if name == "" {
			continue
		}
		bit, ok := featureNames[name]
		if !ok {
			return 0, fmt.Errorf("mdview: unknown feature: %s", name)
		}
		f |= bit
	}
	return f, nil
}

// LinkHandler receives the resolved destination when a rendered link is
// activated.
type LinkHandler func(dest string)

// LinkRegion is the document-space rectangle of one rendered link.
type LinkRegion struct {
	Rect Rect
	URL  string
}

// RenderOptions configure how markdown is rendered. Zero values enable
// sensible defaults (1024px width, 48px margin, 16pt base font, light
// theme, bundled fonts, no optional features).
type RenderOptions struct {
	Width        int
	Margin       int
	BaseFontSize float64
	Theme        Theme
	Fonts        Fonts
	Features     Features

	// BaseURL resolves relative link destinations.
	BaseURL string
	// BaseDir resolves relative local image paths.
	BaseDir string

	LinkHandler LinkHandler

	// Pluggable boundaries; nil selects the built-in implementation.
	Math      MathRenderer
	Diagrams  DiagramRenderer
	Tokenizer CodeTokenizer
	Images    ImageSource
}

// Document is the result of one render pass.
type Document struct {
	Image *image.RGBA
	// Layouts carries the captured selection geometry; empty unless
	// FeatureTextSelection was set.
	Layouts *LayoutCollection
	// Links are the clickable regions; empty unless FeatureLinks was set.
	Links []LinkRegion
	// Footnotes reports what the footnote preprocessor did.
	Footnotes FootnoteResult

	linkHandler LinkHandler
}

// LinkAt returns the destination of the link under pt, or "".
func (d *Document) LinkAt(pt Point) string {
	for _, lr := range d.Links {
		if lr.Rect.Contains(pt) {
			return lr.URL
		}
	}
	return ""
}

// HandleTap dispatches the link under pt to the document's LinkHandler.
// Returns true when a link was hit.
func (d *Document) HandleTap(pt Point) bool {
	dest := d.LinkAt(pt)
	if dest == "" {
		return false
	}
	if d.linkHandler != nil {
		d.linkHandler(dest)
	}
	return true
}

// Render converts the markdown document into a raster image plus selection
// geometry using the supplied options. Malformed markdown never fails;
// errors are environmental (fonts, options).
func Render(source []byte, opts RenderOptions) (*Document, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Margin <= 0 {
		opts.Margin = 48
	}
	if opts.BaseFontSize <= 0 {
		opts.BaseFontSize = 16
	}
	if (opts.Theme == Theme{}) {
		opts.Theme = lightTheme
	}
	opts.Theme = opts.Theme.normalized()

	if opts.Fonts.Regular == nil || opts.Fonts.Bold == nil || opts.Fonts.Italic == nil || opts.Fonts.Mono == nil {
		fallback, err := LoadFonts(FontConfig{SizeBase: opts.BaseFontSize})
		if err != nil {
			return nil, err
		}
		if opts.Fonts.Regular == nil {
			opts.Fonts.Regular = fallback.Regular
		}
		if opts.Fonts.Bold == nil {
			opts.Fonts.Bold = fallback.Bold
		}
		if opts.Fonts.Italic == nil {
			opts.Fonts.Italic = fallback.Italic
		}
		if opts.Fonts.Mono == nil {
			opts.Fonts.Mono = fallback.Mono
		}
	}
	if opts.Fonts.Regular == nil || opts.Fonts.Bold == nil || opts.Fonts.Mono == nil {
		return nil, errors.New("mdview: incomplete font configuration")
	}

	var baseURL *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("mdview: invalid base URL: %w", err)
		}
		baseURL = u
	}

	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	} else if !filepath.IsAbs(baseDir) {
		if abs, err := filepath.Abs(baseDir); err == nil {
			baseDir = abs
		}
	}

	var footnotes FootnoteResult
	if opts.Features.Has(FeatureFootnotes) {
		footnotes = PreprocessFootnotes(string(source))
		source = []byte(footnotes.Markdown)
	}

	c := newCanvas(opts.Width, opts.Margin, opts.Theme, opts.Fonts, opts.BaseFontSize)
	c.capturing = opts.Features.Has(FeatureTextSelection)

	math := opts.Math
	if math == nil {
		math = NewUnicodeMathRenderer(opts.Fonts, opts.Theme.FG)
	}
	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tokenizer = NewCodeTokenizer()
	}
	images := opts.Images
	if images == nil && opts.Features.Has(FeatureImages) {
		images = NewImageLoader(baseDir)
	}

	r := &renderer{
		c:         c,
		baseSize:  opts.BaseFontSize,
		features:  opts.Features,
		baseURL:   baseURL,
		math:      math,
		diagrams:  opts.Diagrams,
		tokenizer: tokenizer,
		images:    images,
		source:    source,
	}

	mdParser := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	doc := mdParser.Parser().Parse(text.NewReader(source))
	r.render(doc)

	used := c.cursorY + opts.Margin
	if used < opts.Margin+50 {
		used = opts.Margin + 50
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, used))
	draw.Draw(img, img.Bounds(), c.img, image.Point{}, draw.Src)

	return &Document{
		Image:       img,
		Layouts:     NewLayoutCollection(c.layouts),
		Links:       c.links,
		Footnotes:   footnotes,
		linkHandler: opts.LinkHandler,
	}, nil
}
