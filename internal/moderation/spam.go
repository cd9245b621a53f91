package moderation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Structural detectors run on the stripped text, which keeps case, digits and
// punctuation. The patterns are compiled once and shared by every caller.
var (
	// shortenerPattern matches link-shortener URLs, which hide the real
	// destination. A path is required so that "t.co" in prose is not flagged.
	shortenerPattern = regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|ow\.ly|is\.gd|buff\.ly|cutt\.ly|rebrand\.ly|shorturl\.at|tiny\.cc|rb\.gy|t\.ly|v\.gd|s\.id|lnkd\.in)/\S+`)

	// riskyTLDPattern matches hosts on top-level domains dominated by abuse.
	riskyTLDPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9-]+\.)+(?:tk|ml|ga|cf|gq|top|xyz|click|loan|icu|cam|buzz|rest|country|stream)\b`)

	// ipURLPattern matches URLs that point at a bare IPv4 address.
	ipURLPattern = regexp.MustCompile(`(?i)https?://\d{1,3}(?:\.\d{1,3}){3}`)

	// punycodePattern matches internationalized hosts often used to spoof brands.
	punycodePattern = regexp.MustCompile(`(?i)\bxn--[a-z0-9-]+\.`)

	// phonePattern finds phone-number-shaped candidates; looksLikePhone
	// bounds the digit count afterwards.
	phonePattern = regexp.MustCompile(`(?:\+|\(|\b)\d[\d\s().-]{6,}\d`)

	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)

	// obfuscatedEmailPattern matches "name [at] host [dot] com" spellings.
	obfuscatedEmailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+\s*[\[(]\s*(?:at|arobase)\s*[\])]\s*[a-z0-9-]+\s*(?:[\[(]\s*(?:dot|point)\s*[\])]|\.)\s*[a-z]{2,}\b`)

	digitGroupPattern = regexp.MustCompile(`\d+`)

	dottedQuadPattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
)

const (
	phoneMinDigits = 9
	phoneMaxDigits = 15

	capsMinLength       = 20
	capsMinLetters      = 10
	capsMinUpperPercent = 70

	charFloodThreshold = 5
	wordFloodThreshold = 4
)

func hasPhishingLink(text string) bool {
	return shortenerPattern.MatchString(text) ||
		riskyTLDPattern.MatchString(text) ||
		ipURLPattern.MatchString(text) ||
		punycodePattern.MatchString(text)
}

func hasPersonalData(text string) bool {
	if emailPattern.MatchString(text) || obfuscatedEmailPattern.MatchString(text) {
		return true
	}
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		if looksLikePhone(candidate) {
			return true
		}
	}
	return false
}

// looksLikePhone bounds the digit count and rejects IPv4 addresses and runs
// of years such as "2024 2025 2026".
func looksLikePhone(candidate string) bool {
	if dottedQuadPattern.MatchString(strings.TrimSpace(candidate)) {
		return false
	}
	groups := digitGroupPattern.FindAllString(candidate, -1)
	digits := 0
	years := 0
	for _, g := range groups {
		digits += len(g)
		if len(g) == 4 && (strings.HasPrefix(g, "19") || strings.HasPrefix(g, "20")) {
			years++
		}
	}
	if digits < phoneMinDigits || digits > phoneMaxDigits {
		return false
	}
	return years != len(groups)
}

// hasCapsAbuse fires when the text is long, has enough letters, and most of
// those letters are uppercase. Digits and punctuation are ignored.
func hasCapsAbuse(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < capsMinLength {
		return false
	}

	letters, upper := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < capsMinLetters {
		return false
	}
	return upper*100 >= letters*capsMinUpperPercent
}

// hasCharFlood returns true if text contains 5 or more consecutive identical
// non-space characters. Go's regexp package (RE2) does not support
// backreferences, so this is a linear scan.
func hasCharFlood(text string) bool {
	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev && !unicode.IsSpace(r) {
			count++
			if count >= charFloodThreshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood returns true if the same word appears 4 or more times
// consecutively (case-insensitive).
func hasWordFlood(text string) bool {
	words := strings.Fields(text)
	if len(words) < wordFloodThreshold {
		return false
	}

	count := 1
	prev := ""
	for _, w := range words {
		lower := strings.ToLower(strings.TrimFunc(w, unicode.IsPunct))
		if lower != "" && lower == prev {
			count++
			if count >= wordFloodThreshold {
				return true
			}
		} else {
			count = 1
			prev = lower
		}
	}
	return false
}
