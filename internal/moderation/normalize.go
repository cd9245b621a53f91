package moderation

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Transformer chains carry state, so each goroutine borrows its own.
var stripPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.Predicate(isInvisible)),
			norm.NFKC,
			width.Fold,
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		)
	},
}

var foldPool = sync.Pool{
	New: func() any { return cases.Fold() },
}

// isInvisible matches zero-width and other code points that render as nothing.
func isInvisible(r rune) bool {
	if unicode.Is(unicode.Cf, r) {
		return true
	}
	switch r {
	case 0x034F, // combining grapheme joiner
		0x115F, 0x1160, 0x3164, 0xFFA0, // hangul fillers
		0x2800: // braille blank
		return true
	}
	return r >= 0xFE00 && r <= 0xFE0F
}

// homoglyphs maps look-alike letters from other scripts to Latin lowercase.
var homoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'А': 'a', 'в': 'b', 'В': 'b', 'е': 'e', 'Е': 'e', 'ԁ': 'd',
	'һ': 'h', 'Н': 'h', 'н': 'h', 'і': 'i', 'І': 'i', 'ӏ': 'l', 'Ӏ': 'l',
	'ј': 'j', 'Ј': 'j', 'к': 'k', 'К': 'k', 'м': 'm', 'М': 'm', 'о': 'o',
	'О': 'o', 'р': 'p', 'Р': 'p', 'ԛ': 'q', 'с': 'c', 'С': 'c', 'ѕ': 's',
	'Ѕ': 's', 'т': 't', 'Т': 't', 'у': 'y', 'У': 'y', 'ԝ': 'w', 'Ԝ': 'w',
	'х': 'x', 'Х': 'x', 'г': 'r', 'п': 'n', 'ь': 'b', 'Ь': 'b',
	// Greek
	'α': 'a', 'Α': 'a', 'β': 'b', 'Β': 'b', 'ε': 'e', 'Ε': 'e', 'Ζ': 'z',
	'η': 'n', 'Η': 'h', 'ι': 'i', 'Ι': 'i', 'κ': 'k', 'Κ': 'k', 'Μ': 'm',
	'ν': 'v', 'Ν': 'n', 'ο': 'o', 'Ο': 'o', 'ρ': 'p', 'Ρ': 'p', 'τ': 't',
	'Τ': 't', 'υ': 'u', 'Υ': 'y', 'χ': 'x', 'Χ': 'x', 'γ': 'y',
	// Latin look-alikes that survive accent stripping
	'ı': 'i', 'ł': 'l', 'Ł': 'l', 'ø': 'o', 'Ø': 'o', 'đ': 'd', 'Đ': 'd',
	'ɡ': 'g', 'ɑ': 'a', 'ǀ': 'l', 'ℓ': 'l',
}

// leetMap folds digit and symbol substitutions back to letters.
var leetMap = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'!': 'i',
	'|': 'i',
	'3': 'e',
	'€': 'e',
	'4': 'a',
	'@': 'a',
	'5': 's',
	'$': 's',
	'7': 't',
	'+': 't',
	'8': 'b',
	'9': 'g',
}

// wildcard stands for one unknown letter inside a masked word ("f*ck").
const wildcard = '*'

// collapseMinRun is the minimum run of single-letter chunks joined into one
// token ("f u c k").
const collapseMinRun = 3

// normalized holds the matching-only views of a text.
type normalized struct {
	// stripped has invisible characters, compatibility forms and diacritics
	// removed but keeps case, digits and punctuation.
	stripped string
	// views are space-padded token streams used for phrase matching.
	views []string
	// masked are leet tokens that contain the wildcard.
	masked []string
}

func (n normalized) empty() bool {
	return strings.TrimSpace(n.stripped) == ""
}

// Normalize returns the canonical matching view of text: invisible characters
// stripped, homoglyphs mapped to Latin, leetspeak folded inside words and case
// folded. It is never meant for storage or display.
func Normalize(text string) string {
	folded := foldCase(mapHomoglyphs(strip(text)))
	return strings.Join(leetTokens(folded), " ")
}

func normalizeText(text string) normalized {
	stripped := strip(text)
	folded := foldCase(mapHomoglyphs(stripped))

	plain := tokenize(folded, isWordRune)
	leet := leetTokens(folded)
	collapsed := collapseSingles(folded)

	n := normalized{stripped: stripped}
	n.views = appendView(n.views, plain)
	n.views = appendView(n.views, leet)
	n.views = appendView(n.views, collapsed)
	for _, tok := range leet {
		if strings.ContainsRune(tok, wildcard) {
			n.masked = append(n.masked, tok)
		}
	}
	return n
}

func appendView(views []string, tokens []string) []string {
	if len(tokens) == 0 {
		return views
	}
	v := pad(strings.Join(tokens, " "))
	for _, existing := range views {
		if existing == v {
			return views
		}
	}
	return append(views, v)
}

func pad(s string) string {
	return " " + s + " "
}

func strip(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	t := stripPool.Get().(transform.Transformer)
	out, _, err := transform.String(t, s)
	t.Reset()
	stripPool.Put(t)
	if err != nil {
		return s
	}
	return out
}

func foldCase(s string) string {
	c := foldPool.Get().(cases.Caser)
	out := c.String(s)
	foldPool.Put(c)
	return out
}

func mapHomoglyphs(s string) string {
	return strings.Map(func(r rune) rune {
		if m, ok := homoglyphs[r]; ok {
			return m
		}
		return r
	}, s)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isLeetWordRune(r rune) bool {
	return isWordRune(r) || r == wildcard
}

func isTrailingPunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '?', '!':
		return true
	}
	return false
}

// tokenize splits s into runs of runes accepted by keep.
func tokenize(s string, keep func(rune) bool) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !keep(r) })
}

// leetTokens folds leet substitutions inside whitespace-separated chunks that
// contain at least one letter. Chunks without letters, such as "2025" or
// "$5.99", are kept as they are.
func leetTokens(folded string) []string {
	var out []string
	for _, chunk := range strings.Fields(folded) {
		chunk = strings.TrimRightFunc(chunk, isTrailingPunct)
		if chunk == "" {
			continue
		}
		if strings.IndexFunc(chunk, unicode.IsLetter) >= 0 {
			chunk = foldLeet(chunk)
		}
		for _, tok := range tokenize(chunk, isLeetWordRune) {
			if tok = strings.Trim(tok, "*"); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

func foldLeet(s string) string {
	return strings.Map(func(r rune) rune {
		if m, ok := leetMap[r]; ok {
			return m
		}
		return r
	}, s)
}

// collapseSingles joins runs of single-character chunks ("n i g g a") into
// one token and keeps every other chunk as its plain tokens. A run is also
// emitted without its first or last letter, since a neighbouring "a" or "i"
// is usually a real word ("you are a n i g g a").
//
// A digit only joins a run that already holds a real letter, and a run with
// as many digits as letters is left as plain tokens, so spaced numbers
// ("seats 4 5 5", "call 9 0 0 k") keep their meaning.
func collapseSingles(folded string) []string {
	var (
		out     []string
		run     []rune
		chunks  []string
		letters int
		digits  int
	)
	flush := func() {
		if len(run) >= collapseMinRun && digits < letters {
			out = append(out, string(run))
			if len(run) > collapseMinRun {
				out = append(out, string(run[1:]), string(run[:len(run)-1]))
			}
		} else {
			for _, c := range chunks {
				out = append(out, tokenize(c, isWordRune)...)
			}
		}
		run = run[:0]
		chunks = chunks[:0]
		letters, digits = 0, 0
	}

	for _, chunk := range strings.Fields(folded) {
		if utf8.RuneCountInString(chunk) == 1 {
			r, _ := utf8.DecodeRuneInString(chunk)
			switch {
			case unicode.IsLetter(r):
				letters++
			case unicode.IsDigit(r):
				if letters == 0 {
					break
				}
				if m, ok := leetMap[r]; ok {
					r = m
					digits++
				}
			default:
				if m, ok := leetMap[r]; ok {
					r = m
				}
			}
			if unicode.IsLetter(r) {
				run = append(run, r)
				chunks = append(chunks, chunk)
				continue
			}
		}
		flush()
		out = append(out, tokenize(chunk, isWordRune)...)
	}
	flush()
	return out
}
