package mdview

import (
	"strings"
	"unicode"

	"github.com/go-enry/go-enry/v2"
)

// TokenType classifies a span of source code for coloring.
type TokenType int

const (
	TokenPlain TokenType = iota
	TokenKeyword
	TokenString
	TokenComment
	TokenNumber
	TokenTypeName
	TokenFunction
)

// CodeToken is one colored span of a code line.
type CodeToken struct {
	Text string
	Type TokenType
}

// CodeTokenizer splits a single line of code into colored tokens. Lines are
// tokenized independently, so multi-line constructs (block comments,
// raw strings) degrade to per-line classification.
type CodeTokenizer interface {
	Tokenize(lang, line string) []CodeToken
}

type langProfile struct {
	keywords    map[string]bool
	types       map[string]bool
	lineComment string
}

var langProfiles = map[string]langProfile{
	"Go": {
		keywords:    wordSet("break case chan const continue default defer else fallthrough for func go goto if import interface map package range return select struct switch type var nil true false"),
		types:       wordSet("bool byte complex64 complex128 error float32 float64 int int8 int16 int32 int64 rune string uint uint8 uint16 uint32 uint64 uintptr any"),
		lineComment: "//",
	},
	"Python": {
		keywords:    wordSet("False None True and as assert async await break class continue def del elif else except finally for from global if import in is lambda nonlocal not or pass raise return try while with yield"),
		types:       wordSet("int float str bytes bool list dict set tuple object"),
		lineComment: "#",
	},
	"JavaScript": {
		keywords:    wordSet("break case catch class const continue debugger default delete do else export extends finally for function if import in instanceof let new of return static super switch this throw try typeof var void while with yield async await null undefined true false"),
		types:       wordSet("Array Boolean Map Number Object Promise Set String Symbol"),
		lineComment: "//",
	},
	"TypeScript": {
		keywords:    wordSet("break case catch class const continue debugger default delete do else enum export extends finally for function if implements import in instanceof interface let namespace new of readonly return static super switch this throw try type typeof var void while with yield async await null undefined true false"),
		types:       wordSet("any boolean never number object string symbol unknown void Array Map Promise Record Set"),
		lineComment: "//",
	},
	"Rust": {
		keywords:    wordSet("as async await break const continue crate dyn else enum extern fn for if impl in let loop match mod move mut pub ref return self Self static struct super trait type unsafe use where while true false"),
		types:       wordSet("bool char f32 f64 i8 i16 i32 i64 i128 isize str u8 u16 u32 u64 u128 usize String Vec Option Result Box"),
		lineComment: "//",
	},
	"C": {
		keywords:    wordSet("auto break case const continue default do else enum extern for goto if inline register restrict return sizeof static struct switch typedef union volatile while"),
		types:       wordSet("char double float int long short signed unsigned void size_t int8_t int16_t int32_t int64_t uint8_t uint16_t uint32_t uint64_t"),
		lineComment: "//",
	},
	"Shell": {
		keywords:    wordSet("if then else elif fi for while until do done case esac function in select time coproc return break continue local export readonly declare"),
		types:       map[string]bool{},
		lineComment: "#",
	},
	"Java": {
		keywords:    wordSet("abstract assert break case catch class const continue default do else enum extends final finally for goto if implements import instanceof interface native new package private protected public return static strictfp super switch synchronized this throw throws transient try volatile while null true false var record"),
		types:       wordSet("boolean byte char double float int long short void String Integer Long Double Boolean Object List Map Set"),
		lineComment: "//",
	},
	"SQL": {
		keywords:    wordSet("select from where insert into values update set delete create table drop alter index join left right inner outer on group by order having limit offset union all distinct as and or not null primary key foreign references"),
		types:       wordSet("int integer bigint smallint varchar char text boolean date timestamp numeric decimal float real blob"),
		lineComment: "--",
	},
}

// greedyTokenizer is the built-in CodeTokenizer: a single-pass lexer with
// per-language keyword sets. Language names are normalized through enry so
// fence info strings like "golang", "py" or "js" resolve to profiles.
type greedyTokenizer struct{}

// NewCodeTokenizer returns the built-in syntax tokenizer.
func NewCodeTokenizer() CodeTokenizer { return greedyTokenizer{} }

func (greedyTokenizer) Tokenize(lang, line string) []CodeToken {
	profile, ok := lookupProfile(lang)
	if !ok || line == "" {
		if line == "" {
			return nil
		}
		return []CodeToken{{Text: line, Type: TokenPlain}}
	}
	return tokenizeLine(line, profile)
}

func lookupProfile(lang string) (langProfile, bool) {
	if lang == "" {
		return langProfile{}, false
	}
	name, ok := enry.GetLanguageByAlias(lang)
	if !ok {
		name = lang
	}
	// Bash/Zsh and friends share the Shell profile.
	if g := enry.GetLanguageGroup(name); g != "" {
		if p, ok := langProfiles[g]; ok {
			return p, true
		}
	}
	p, ok := langProfiles[name]
	return p, ok
}

func tokenizeLine(line string, p langProfile) []CodeToken {
	var out []CodeToken
	runes := []rune(line)
	i := 0
	emit := func(text string, t TokenType) {
		if text == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Type == t {
			out[n-1].Text += text
			return
		}
		out = append(out, CodeToken{Text: text, Type: t})
	}

	for i < len(runes) {
		r := runes[i]

		// Line comment runs to end of line.
		if p.lineComment != "" && strings.HasPrefix(string(runes[i:]), p.lineComment) {
			emit(string(runes[i:]), TokenComment)
			break
		}

		// String literal: ", ' or `.
		if r == '"' || r == '\'' || r == '`' {
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\\' && r != '`' && j+1 < len(runes) {
					j += 2
					continue
				}
				if runes[j] == r {
					j++
					break
				}
				j++
			}
			emit(string(runes[i:j]), TokenString)
			i = j
			continue
		}

		// Number.
		if unicode.IsDigit(r) {
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.' || runes[j] == '_' ||
				runes[j] == 'x' || runes[j] == 'X' || runes[j] == 'b' || runes[j] == 'o' ||
				('a' <= unicode.ToLower(runes[j]) && unicode.ToLower(runes[j]) <= 'f') ||
				runes[j] == 'e' || runes[j] == 'E') {
				j++
			}
			emit(string(runes[i:j]), TokenNumber)
			i = j
			continue
		}

		// Identifier or keyword.
		if unicode.IsLetter(r) || r == '_' {
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			lower := word
			if p.caseInsensitive() {
				lower = strings.ToLower(word)
			}
			switch {
			case p.keywords[lower]:
				emit(word, TokenKeyword)
			case p.types[lower]:
				emit(word, TokenTypeName)
			case j < len(runes) && runes[j] == '(':
				emit(word, TokenFunction)
			default:
				emit(word, TokenPlain)
			}
			i = j
			continue
		}

		emit(string(r), TokenPlain)
		i++
	}
	return out
}

func (p langProfile) caseInsensitive() bool {
	// SQL keywords match regardless of case.
	return p.lineComment == "--"
}

func wordSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
