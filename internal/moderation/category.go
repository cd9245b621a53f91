package moderation

import (
	"fmt"
	"strings"
)

// Category is a violation category reported in a Verdict.
type Category string

const (
	CategoryHateSpeech   Category = "hate_speech"
	CategoryHarassment   Category = "harassment"
	CategoryProfanity    Category = "profanity"
	CategoryPhishing     Category = "phishing"
	CategoryPersonalData Category = "personal_data"
	CategoryCapsAbuse    Category = "caps_abuse"
	CategorySpam         Category = "spam"
)

// Severity is an ordinal label summarizing how serious a verdict is.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{
	SeverityNone:     "none",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// String returns the lowercase label of s.
func (s Severity) String() string {
	if s < SeverityNone || s > SeverityCritical {
		return "unknown"
	}
	return severityNames[s]
}

// MarshalText encodes the severity as its label.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityNone || s > SeverityCritical {
		return nil, fmt.Errorf("moderation: invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity label.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity maps a label such as "high" to its Severity.
func ParseSeverity(label string) (Severity, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	for i, name := range severityNames {
		if name == label {
			return Severity(i), nil
		}
	}
	return SeverityNone, fmt.Errorf("moderation: unknown severity %q", label)
}

// categoryPolicy holds the fixed attributes of a category. Rank is only used
// to pick the reason; weight is independent of rank.
type categoryPolicy struct {
	rank   int
	weight Severity
	reason string
}

// categoryTable is the single source of rank, weight and reason per category.
var categoryTable = map[Category]categoryPolicy{
	CategoryHateSpeech:   {rank: 1, weight: SeverityCritical, reason: "Content contains hate speech"},
	CategoryHarassment:   {rank: 2, weight: SeverityCritical, reason: "Content contains harassment or threats"},
	CategoryProfanity:    {rank: 3, weight: SeverityHigh, reason: "Content contains profanity"},
	CategoryPhishing:     {rank: 4, weight: SeverityHigh, reason: "Content contains suspicious links or scam patterns"},
	CategoryPersonalData: {rank: 5, weight: SeverityLow, reason: "Content contains personal information such as a phone number or email address"},
	CategoryCapsAbuse:    {rank: 6, weight: SeverityMedium, reason: "Excessive use of capital letters"},
	CategorySpam:         {rank: 7, weight: SeverityLow, reason: "Content contains repetitive or spam-like patterns"},
}

// priorityOrder lists categories from highest to lowest priority.
var priorityOrder = []Category{
	CategoryHateSpeech,
	CategoryHarassment,
	CategoryProfanity,
	CategoryPhishing,
	CategoryPersonalData,
	CategoryCapsAbuse,
	CategorySpam,
}

// Categories returns all categories in priority order.
func Categories() []Category {
	out := make([]Category, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Rank is the priority rank of c; 1 is the highest priority.
func (c Category) Rank() int {
	return categoryTable[c].rank
}

// Severity is the fixed severity weight of c.
func (c Category) Severity() Severity {
	return categoryTable[c].weight
}

// Reason is the fixed user-facing message for c.
func (c Category) Reason() string {
	return categoryTable[c].reason
}

type categorySet map[Category]struct{}

func (s categorySet) add(c Category) {
	s[c] = struct{}{}
}

func (s categorySet) has(c Category) bool {
	_, ok := s[c]
	return ok
}
