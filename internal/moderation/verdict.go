package moderation

import "sort"

// Verdict is the outcome of classifying one piece of text. A clean verdict
// has no violations, SeverityNone and an empty Reason; any violation makes it
// non-clean. Verdicts are never mutated after construction.
type Verdict struct {
	Clean      bool       `json:"clean"`
	Violations []Category `json:"violations"`
	Severity   Severity   `json:"severity"`
	Reason     string     `json:"reason,omitempty"`
}

// CleanVerdict returns the verdict for text with no violations.
func CleanVerdict() Verdict {
	return Verdict{Clean: true, Violations: []Category{}, Severity: SeverityNone}
}

// Has reports whether c is among the verdict's violations.
func (v Verdict) Has(c Category) bool {
	for _, got := range v.Violations {
		if got == c {
			return true
		}
	}
	return false
}

// AtLeast reports whether the verdict severity is s or worse.
func (v Verdict) AtLeast(s Severity) bool {
	return !v.Clean && v.Severity >= s
}

// aggregate folds a candidate set into a Verdict. Severity is the maximum
// weight; the reason comes from the lowest-ranked (highest priority) category.
func aggregate(found categorySet) Verdict {
	if len(found) == 0 {
		return CleanVerdict()
	}

	violations := make([]Category, 0, len(found))
	severity := SeverityNone
	var top Category
	for c := range found {
		violations = append(violations, c)
		if w := c.Severity(); w > severity {
			severity = w
		}
		if top == "" || c.Rank() < top.Rank() {
			top = c
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Rank() < violations[j].Rank()
	})

	return Verdict{
		Clean:      false,
		Violations: violations,
		Severity:   severity,
		Reason:     top.Reason(),
	}
}
