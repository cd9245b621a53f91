package moderation

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// minHistory is the number of recent messages needed before duplicates
	// are checked at all.
	minHistory = 2
	// nearDuplicateWindow is how many of the newest messages are compared
	// for near-duplicates.
	nearDuplicateWindow = 3
	// nearDuplicateRatio is the similarity a message must exceed to count as
	// a near-duplicate.
	nearDuplicateRatio = 0.8
	// comparableLengthRatio is the minimum shorter/longer length ratio for two
	// messages to be compared.
	comparableLengthRatio = 0.8
)

// IsSpamMessage reports whether text repeats the sender's recent messages.
// recent is ordered oldest to newest. An exact case-insensitive match against
// any entry is spam; otherwise text is compared with the newest three entries
// and counts as spam when it is almost the same message.
func IsSpamMessage(text string, recent []string) bool {
	candidate := canonicalMessage(text)
	if candidate == "" || len(recent) < minHistory {
		return false
	}

	for _, prev := range recent {
		if canonicalMessage(prev) == candidate {
			return true
		}
	}

	start := max(len(recent)-nearDuplicateWindow, 0)
	cn := utf8.RuneCountInString(candidate)
	for _, prev := range recent[start:] {
		p := canonicalMessage(prev)
		pn := utf8.RuneCountInString(p)
		if pn == 0 || !comparableLength(cn, pn) {
			continue
		}
		if similarity(candidate, p, max(cn, pn)) > nearDuplicateRatio {
			return true
		}
	}
	return false
}

func canonicalMessage(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func comparableLength(a, b int) bool {
	lo, hi := min(a, b), max(a, b)
	return float64(lo)/float64(hi) >= comparableLengthRatio
}

// similarity is 1 minus the Levenshtein distance normalized by the longer
// input, longest being its length in runes.
func similarity(a, b string, longest int) float64 {
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
