package moderation

import (
	"strings"
	"testing"
)

func TestCombine(t *testing.T) {
	insult := "insult"
	tests := []struct {
		name       string
		verdict    Verdict
		tox        *ToxicityResult
		accept     bool
		wantReason string
	}{
		{"clean without classifier", CleanVerdict(), nil, true, ""},
		{"clean and pass", CleanVerdict(), &ToxicityResult{Action: ToxicityPass, MaxScore: 0.1}, true, ""},
		{
			"clean but blocked", CleanVerdict(),
			&ToxicityResult{Action: ToxicityBlock, MaxScore: 0.97, TopCategory: &insult},
			false, "toxicity classifier (insult)",
		},
		{
			"blocked without category", CleanVerdict(),
			&ToxicityResult{Action: ToxicityBlock, MaxScore: 0.9},
			false, "toxicity classifier",
		},
		{
			"hate speech overrides pass", FilterContent("you are a nigger", In(ContextPost)),
			&ToxicityResult{Action: ToxicityPass},
			false, CategoryHateSpeech.Reason(),
		},
		{"low severity accepted", FilterContent("aaaaaaa", In(ContextPost)), nil, true, ""},
		{"caps abuse rejected", FilterContent("THIS IS ABSOLUTELY UNACCEPTABLE", In(ContextPost)), nil, false, CategoryCapsAbuse.Reason()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Combine(tt.verdict, tt.tox)
			if d.Accept != tt.accept {
				t.Errorf("Accept = %v, want %v", d.Accept, tt.accept)
			}
			if !strings.Contains(d.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", d.Reason, tt.wantReason)
			}
			if tt.accept && d.Reason != "" {
				t.Errorf("accepted decision has reason %q", d.Reason)
			}
		})
	}
}
