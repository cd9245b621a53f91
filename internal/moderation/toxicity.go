package moderation

import (
	"context"
	"fmt"
)

// ToxicityAction is the decision returned by an external toxicity classifier.
type ToxicityAction string

const (
	ToxicityPass  ToxicityAction = "pass"
	ToxicityBlock ToxicityAction = "block"
)

// ToxicityResult is the auxiliary signal produced by an ML classifier.
type ToxicityResult struct {
	Action      ToxicityAction `json:"action"`
	MaxScore    float64        `json:"maxScore"`
	TopCategory *string        `json:"topCategory"`
}

// ToxicityClassifier is implemented by the external scoring service.
type ToxicityClassifier interface {
	Classify(ctx context.Context, text string) (ToxicityResult, error)
}

// Decision is the combined accept/reject outcome for a piece of content.
type Decision struct {
	Accept   bool            `json:"accept"`
	Verdict  Verdict         `json:"verdict"`
	Toxicity *ToxicityResult `json:"toxicity,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// rejectSeverity is the lowest verdict severity that rejects content on its
// own. Low-weight categories such as personal data or spam are flagged but do
// not block the write.
const rejectSeverity = SeverityMedium

const toxicityReason = "Content was flagged by the toxicity classifier"

// Combine merges a pattern verdict with an optional toxicity result. The
// verdict wins when it rejects; otherwise a blocking toxicity result rejects.
func Combine(v Verdict, tox *ToxicityResult) Decision {
	d := Decision{Accept: true, Verdict: v, Toxicity: tox}

	if !v.Clean && v.AtLeast(rejectSeverity) {
		d.Accept = false
		d.Reason = v.Reason
		return d
	}
	if tox != nil && tox.Action == ToxicityBlock {
		d.Accept = false
		d.Reason = toxicityReason
		if tox.TopCategory != nil && *tox.TopCategory != "" {
			d.Reason = fmt.Sprintf("%s (%s)", toxicityReason, *tox.TopCategory)
		}
	}
	return d
}
