package escalation

import (
	"context"
	"fmt"
)

// Result describes the outcome of one escalation check.
type Result struct {
	Subject    Subject `json:"subject"`
	Action     Action  `json:"action"`
	Previous   Status  `json:"previous_status"`
	Status     Status  `json:"status"`
	Reports    int64   `json:"reports"`
	Violations int64   `json:"violations"`
}

// Escalated reports whether the check changed the subject's status.
func (r Result) Escalated() bool {
	return r.Action != ActionNone
}

// Check reads the counters of s, computes the target status from th and
// advances the subject if the target is stricter than its current status.
// A subject already at or above the target is left untouched.
func Check(ctx context.Context, store Store, th Thresholds, s Subject) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{Subject: s, Action: ActionNone}, err
	}

	snap, err := store.Snapshot(ctx, s)
	if err != nil {
		return Result{Subject: s, Action: ActionNone}, fmt.Errorf("escalation: snapshot %s: %w", s, err)
	}

	res := Result{
		Subject:    s,
		Action:     ActionNone,
		Previous:   snap.Status,
		Status:     snap.Status,
		Reports:    snap.Reports,
		Violations: snap.Violations,
	}

	target := th.Target(snap)
	if target <= snap.Status {
		return res, nil
	}

	prev, advanced, err := store.AdvanceStatus(ctx, s, target)
	if err != nil {
		return res, fmt.Errorf("escalation: advance %s to %s: %w", s, target, err)
	}
	res.Previous = prev
	if !advanced {
		// A concurrent check got there first.
		res.Status = prev
		return res, nil
	}

	res.Status = target
	res.Action = actionFor(target)
	return res, nil
}

// CheckUserEscalation checks the user with the given id against p.User.
func CheckUserEscalation(ctx context.Context, store Store, p Policy, userID string) (Result, error) {
	return Check(ctx, store, p.User, User(userID))
}

// CheckPostEscalation checks the post with the given id against p.Post.
func CheckPostEscalation(ctx context.Context, store Store, p Policy, postID string) (Result, error) {
	return Check(ctx, store, p.Post, Post(postID))
}

// CheckPeakEscalation checks the peak with the given id against p.Peak.
func CheckPeakEscalation(ctx context.Context, store Store, p Policy, peakID string) (Result, error) {
	return Check(ctx, store, p.Peak, Peak(peakID))
}
