package moderation

import (
	"strings"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// Matcher finds lexical category hits in normalized text. Every phrase is
// stored padded with spaces, so a hit always covers whole tokens: "bigger"
// can never match a slur built from the same letters. A Matcher is immutable
// once built and safe for concurrent use.
type Matcher struct {
	automaton *ahocorasick.Matcher
	// keys[i] are the categories of dictionary entry i.
	keys   [][]Category
	words  map[int][]wordEntry
	combos []compiledCombo
}

type wordEntry struct {
	word       []rune
	categories []Category
}

type compiledCombo struct {
	category Category
	parts    []string
}

// NewMatcher compiles the given language tables into one automaton.
func NewMatcher(tables ...LanguageTable) *Matcher {
	index := make(map[string]int)
	var (
		dict []string
		keys [][]Category
	)
	m := &Matcher{words: make(map[int][]wordEntry)}

	for _, table := range tables {
		for _, cat := range priorityOrder {
			for _, phrase := range table.Phrases[cat] {
				key := phraseKey(phrase)
				if key == "" {
					continue
				}
				i, ok := index[key]
				if !ok {
					i = len(dict)
					index[key] = i
					dict = append(dict, key)
					keys = append(keys, nil)
				}
				keys[i] = appendCategory(keys[i], cat)
			}
		}
		for _, combo := range table.Combos {
			cc := compiledCombo{category: combo.Category}
			for _, part := range combo.Parts {
				if key := phraseKey(part); key != "" {
					cc.parts = append(cc.parts, key)
				}
			}
			if len(cc.parts) > 0 {
				m.combos = append(m.combos, cc)
			}
		}
	}

	for i, key := range dict {
		word := strings.TrimSpace(key)
		if strings.ContainsRune(word, ' ') {
			continue
		}
		r := []rune(word)
		m.words[len(r)] = append(m.words[len(r)], wordEntry{word: r, categories: keys[i]})
	}

	m.automaton = ahocorasick.NewStringMatcher(dict)
	m.keys = keys
	return m
}

// phraseKey tokenizes a table phrase with the same rules as user text.
func phraseKey(phrase string) string {
	tokens := tokenize(foldCase(strip(phrase)), isWordRune)
	if len(tokens) == 0 {
		return ""
	}
	return pad(strings.Join(tokens, " "))
}

func appendCategory(list []Category, c Category) []Category {
	for _, got := range list {
		if got == c {
			return list
		}
	}
	return append(list, c)
}

// matchLexical adds every phrase, masked-word and combo hit to found.
func (m *Matcher) matchLexical(n normalized, found categorySet) {
	for _, view := range n.views {
		for _, hit := range m.automaton.MatchThreadSafe([]byte(view)) {
			if hit < 0 || hit >= len(m.keys) {
				continue
			}
			for _, c := range m.keys[hit] {
				found.add(c)
			}
		}
	}

	for _, tok := range n.masked {
		for _, c := range m.matchMasked(tok) {
			found.add(c)
		}
	}

	for _, combo := range m.combos {
		if found.has(combo.category) {
			continue
		}
		if n.containsAll(combo.parts) {
			found.add(combo.category)
		}
	}
}

// matchMasked resolves a token such as "f*ck" against single-word entries of
// the same length. At least two letters must be visible.
func (m *Matcher) matchMasked(tok string) []Category {
	runes := []rune(tok)
	visible := 0
	for _, r := range runes {
		if r != wildcard {
			visible++
		}
	}
	if visible < 2 || visible == len(runes) {
		return nil
	}

	var out []Category
	for _, entry := range m.words[utf8.RuneCountInString(tok)] {
		if maskEqual(runes, entry.word) {
			for _, c := range entry.categories {
				out = appendCategory(out, c)
			}
		}
	}
	return out
}

func maskEqual(masked, word []rune) bool {
	if len(masked) != len(word) {
		return false
	}
	for i, r := range masked {
		if r != wildcard && r != word[i] {
			return false
		}
	}
	return true
}

func (n normalized) containsAll(parts []string) bool {
	for _, part := range parts {
		hit := false
		for _, view := range n.views {
			if strings.Contains(view, part) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
