package escalation

import (
	"context"
	"errors"
)

var (
	ErrEmptySubjectID    = errors.New("escalation: empty subject id")
	ErrInvalidStatus     = errors.New("escalation: invalid status")
	ErrEmptyReporter     = errors.New("escalation: empty reporter id")
	ErrNegativeThreshold = errors.New("escalation: negative threshold")
	ErrThresholdOrder    = errors.New("escalation: thresholds out of order")
)

// Snapshot is the state of a subject as read from a Store. A subject that
// was never seen has zero counters and StatusActive.
type Snapshot struct {
	Reports    int64  `json:"reports"`
	Violations int64  `json:"violations"`
	Status     Status `json:"status"`
}

// Store is the moderation store shared by report ingestion and the engine.
// Counters never decrease, and AdvanceStatus never moves a subject to a
// laxer status. Implementations must make each method atomic per subject.
type Store interface {
	// Snapshot reads the current counters and status of s.
	Snapshot(ctx context.Context, s Subject) (Snapshot, error)

	// AdvanceStatus sets the status of s to target if target is stricter than
	// the stored status. It returns the status held before the call and
	// whether it changed.
	AdvanceStatus(ctx context.Context, s Subject, target Status) (Status, bool, error)

	// Reinstate sets the status of s unconditionally. It is reserved for
	// administrative action.
	Reinstate(ctx context.Context, s Subject, status Status) error

	// AddReport counts one report by reporterID against s. A reporter is
	// counted at most once per subject; counted is false for repeats.
	AddReport(ctx context.Context, s Subject, reporterID string) (counted bool, err error)

	// AddViolation increments the violation counter of s.
	AddViolation(ctx context.Context, s Subject) error
}
