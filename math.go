package mdview

import (
	"image"
	"image/color"
	"strings"

	"github.com/golang/freetype"
)

// MathRenderer turns a math expression into a self-contained image box that
// flows with the surrounding text (inline) or stands alone (display).
// Implementations must not fail on malformed input; worst case they render
// the raw expression.
type MathRenderer interface {
	Render(expr string, size float64, display bool) (image.Image, error)
}

// unicodeMathRenderer is the built-in MathRenderer: TeX-style commands are
// substituted with Unicode glyphs and the result is drawn in the italic
// face. No real typesetting (fractions and radicals stay linear), which
// keeps rendering dependency-free and deterministic.
type unicodeMathRenderer struct {
	fonts Fonts
	fg    color.Color
}

// NewUnicodeMathRenderer builds the default math renderer drawing with the
// given fonts and foreground color onto a transparent background.
func NewUnicodeMathRenderer(fonts Fonts, fg color.Color) MathRenderer {
	return &unicodeMathRenderer{fonts: fonts, fg: fg}
}

func (r *unicodeMathRenderer) Render(expr string, size float64, display bool) (image.Image, error) {
	text := FormatMath(expr)
	if text == "" {
		text = expr
	}
	ff := r.fonts.Italic
	if ff == nil {
		ff = r.fonts.Regular
	}
	if display {
		size *= 1.15
	}
	w := int(measureWidth(ff, size, text))
	if w <= 0 {
		w = 1
	}
	h := int(size * 1.4)
	pad := 2
	img := image.NewRGBA(image.Rect(0, 0, w+2*pad, h))

	dc := freetype.NewContext()
	dc.SetDPI(fontDPI)
	dc.SetClip(img.Bounds())
	dc.SetDst(img)
	dc.SetSrc(image.NewUniform(r.fg))
	dc.SetFont(ff.Font)
	dc.SetFontSize(size)
	pt := freetype.Pt(pad, int(size))
	if _, err := dc.DrawString(text, pt); err != nil {
		return img, err
	}
	return img, nil
}

// FormatMath converts a TeX-flavored expression to a plain Unicode
// rendition: command substitution, superscript and subscript digit runs,
// brace stripping. Unknown commands keep their name without the backslash.
func FormatMath(expr string) string {
	var out strings.Builder
	runes := []rune(strings.TrimSpace(expr))
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch r {
		case '\\':
			name, next := readCommand(runes, i+1)
			if name == "" {
				// Escaped single character.
				if next < len(runes) {
					out.WriteRune(runes[next])
					i = next + 1
				} else {
					i = next
				}
				continue
			}
			if sym, ok := mathSymbols[name]; ok {
				out.WriteString(sym)
			} else if name == "frac" {
				num, after := readGroup(runes, next)
				den, after2 := readGroup(runes, after)
				out.WriteString(FormatMath(num))
				out.WriteRune('/')
				out.WriteString(FormatMath(den))
				i = after2
				continue
			} else if name == "sqrt" {
				arg, after := readGroup(runes, next)
				out.WriteString("√(")
				out.WriteString(FormatMath(arg))
				out.WriteRune(')')
				i = after
				continue
			} else if name == "text" || name == "mathrm" {
				arg, after := readGroup(runes, next)
				out.WriteString(arg)
				i = after
				continue
			} else {
				out.WriteString(name)
			}
			i = next
		case '^', '_':
			arg, after := readGroup(runes, i+1)
			table := superscriptRunes
			if r == '_' {
				table = subscriptRunes
			}
			if mapped, ok := mapScript(arg, table); ok {
				out.WriteString(mapped)
			} else {
				out.WriteRune(r)
				out.WriteString(FormatMath(arg))
			}
			i = after
		case '{', '}':
			i++
		default:
			out.WriteRune(r)
			i++
		}
	}
	return out.String()
}

func readCommand(runes []rune, i int) (string, int) {
	start := i
	for i < len(runes) && isCommandRune(runes[i]) {
		i++
	}
	return string(runes[start:i]), i
}

func isCommandRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// readGroup reads a {...} group, or a single command, or a single rune.
func readGroup(runes []rune, i int) (string, int) {
	if i >= len(runes) {
		return "", i
	}
	if runes[i] == '{' {
		depth := 1
		j := i + 1
		for j < len(runes) && depth > 0 {
			switch runes[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			j++
		}
		end := j
		if depth == 0 {
			return string(runes[i+1 : j-1]), end
		}
		return string(runes[i+1:]), len(runes)
	}
	if runes[i] == '\\' {
		name, next := readCommand(runes, i+1)
		return "\\" + name, next
	}
	return string(runes[i]), i + 1
}

func mapScript(s string, table map[rune]rune) (string, bool) {
	var out strings.Builder
	for _, r := range s {
		m, ok := table[r]
		if !ok {
			return "", false
		}
		out.WriteRune(m)
	}
	return out.String(), out.Len() > 0
}

var superscriptRunes = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'n': 'ⁿ', 'i': 'ⁱ',
}

var subscriptRunes = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ',
	'm': 'ₘ', 'n': 'ₙ', 'x': 'ₓ',
}

var mathSymbols = map[string]string{
	// Greek lowercase.
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ",
	"epsilon": "ε", "varepsilon": "ε", "zeta": "ζ", "eta": "η",
	"theta": "θ", "vartheta": "ϑ", "iota": "ι", "kappa": "κ",
	"lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ",
	"pi": "π", "rho": "ρ", "sigma": "σ", "tau": "τ",
	"upsilon": "υ", "phi": "φ", "varphi": "φ", "chi": "χ",
	"psi": "ψ", "omega": "ω",
	// Greek uppercase.
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ",
	"Xi": "Ξ", "Pi": "Π", "Sigma": "Σ", "Upsilon": "Υ",
	"Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",
	// Operators and relations.
	"times": "×", "div": "÷", "pm": "±", "mp": "∓",
	"cdot": "·", "ast": "∗", "star": "⋆", "circ": "∘",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥",
	"neq": "≠", "ne": "≠", "approx": "≈", "equiv": "≡",
	"sim": "∼", "simeq": "≃", "propto": "∝",
	"ll": "≪", "gg": "≫",
	// Arrows.
	"to": "→", "rightarrow": "→", "leftarrow": "←",
	"Rightarrow": "⇒", "Leftarrow": "⇐", "leftrightarrow": "↔",
	"Leftrightarrow": "⇔", "mapsto": "↦", "uparrow": "↑", "downarrow": "↓",
	// Sets and logic.
	"in": "∈", "notin": "∉", "ni": "∋", "subset": "⊂",
	"supset": "⊃", "subseteq": "⊆", "supseteq": "⊇",
	"cup": "∪", "cap": "∩", "setminus": "∖", "emptyset": "∅",
	"varnothing": "∅", "forall": "∀", "exists": "∃",
	"neg": "¬", "lnot": "¬", "land": "∧", "wedge": "∧",
	"lor": "∨", "vee": "∨",
	// Calculus and big operators.
	"sum": "∑", "prod": "∏", "int": "∫", "oint": "∮",
	"partial": "∂", "nabla": "∇", "infty": "∞",
	"lim": "lim", "sup": "sup", "inf": "inf",
	"sin": "sin", "cos": "cos", "tan": "tan", "log": "log",
	"ln": "ln", "exp": "exp", "min": "min", "max": "max",
	// Misc.
	"ldots": "…", "cdots": "⋯", "dots": "…",
	"prime": "′", "hbar": "ℏ", "ell": "ℓ",
	"Re": "ℜ", "Im": "ℑ", "aleph": "ℵ",
	"angle": "∠", "perp": "⊥", "parallel": "∥",
	"langle": "⟨", "rangle": "⟩",
	"lfloor": "⌊", "rfloor": "⌋", "lceil": "⌈", "rceil": "⌉",
	"degree": "°", "quad": "  ", "qquad": "    ",
}
