package moderation

// LanguageTable holds the lexical pattern lists of one language. Phrases are
// written in lowercase without diacritics; they are tokenized with the same
// rules as user text, so "t'aime" and "t aime" are equivalent.
type LanguageTable struct {
	Language string
	Phrases  map[Category][]string
	// Combos fire a category when every part appears in the text, in any
	// order ("click here" ... "claim").
	Combos []Combo
}

// Combo is a set of phrases that only violate a category together.
type Combo struct {
	Category Category
	Parts    []string
}

// DefaultLanguages returns the built-in English and French tables.
func DefaultLanguages() []LanguageTable {
	return []LanguageTable{English, French}
}
