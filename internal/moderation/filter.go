// Package moderation screens user-generated text for policy violations.
// Text is normalized to defeat evasion, matched against per-category pattern
// tables for every supported language, and aggregated into a single Verdict.
// All pattern tables are built once and shared read-only, so a Filter is safe
// for concurrent use without locking.
package moderation

import "sync"

// Filter evaluates text against the compiled category tables.
type Filter struct {
	matcher *Matcher
}

// Option configures a Filter.
type Option func(*filterOptions)

type filterOptions struct {
	tables []LanguageTable
}

// WithLanguages replaces the default language tables (English and French).
func WithLanguages(tables ...LanguageTable) Option {
	return func(o *filterOptions) {
		o.tables = tables
	}
}

// NewFilter builds a Filter. The returned value is immutable.
func NewFilter(opts ...Option) *Filter {
	o := filterOptions{tables: DefaultLanguages()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Filter{matcher: NewMatcher(o.tables...)}
}

var defaultFilter = sync.OnceValue(func() *Filter { return NewFilter() })

// FilterContent runs text through the default Filter.
func FilterContent(text string, mc ModerationContext) Verdict {
	return defaultFilter().FilterContent(text, mc)
}

// FilterContent classifies text produced in the given context. It never fails:
// empty or unparseable input yields the clean verdict.
func (f *Filter) FilterContent(text string, mc ModerationContext) Verdict {
	if text == "" {
		return CleanVerdict()
	}

	n := normalizeText(text)
	if n.empty() {
		return CleanVerdict()
	}

	found := make(categorySet)

	// Every category is evaluated; no early exit.
	f.matcher.matchLexical(n, found)

	if hasPhishingLink(n.stripped) {
		found.add(CategoryPhishing)
	}
	if mc.checksPersonalData() && hasPersonalData(n.stripped) {
		found.add(CategoryPersonalData)
	}
	if hasCapsAbuse(n.stripped) {
		found.add(CategoryCapsAbuse)
	}
	if hasCharFlood(n.stripped) || hasWordFlood(n.stripped) {
		found.add(CategorySpam)
	}

	return aggregate(found)
}
