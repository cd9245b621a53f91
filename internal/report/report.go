// Package report ingests user reports against users, posts and peaks. A
// report is validated, rate-limited per reporter, counted at most once per
// reporter and subject, and then handed to the escalation engine in the
// background. Escalation failures never fail the submission.
package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
)

var (
	ErrDuplicateReport = errors.New("report: duplicate report")
	ErrSelfReport      = errors.New("report: cannot report yourself")
	ErrRateLimited     = errors.New("report: rate limited")
	ErrInvalidReason   = errors.New("report: invalid reason")
)

// Reason is why a subject was reported.
type Reason string

const (
	ReasonHateSpeech    Reason = "hate_speech"
	ReasonHarassment    Reason = "harassment"
	ReasonSpam          Reason = "spam"
	ReasonScam          Reason = "scam"
	ReasonExplicit      Reason = "explicit"
	ReasonViolence      Reason = "violence"
	ReasonImpersonation Reason = "impersonation"
	ReasonOther         Reason = "other"
)

// validReasons matches the CHECK constraint on moderation_reports.reason.
var validReasons = map[Reason]bool{
	ReasonHateSpeech:    true,
	ReasonHarassment:    true,
	ReasonSpam:          true,
	ReasonScam:          true,
	ReasonExplicit:      true,
	ReasonViolence:      true,
	ReasonImpersonation: true,
	ReasonOther:         true,
}

// Valid reports whether r is an accepted reason.
func (r Reason) Valid() bool {
	return validReasons[r]
}

// Report is a single report as persisted.
type Report struct {
	ID         uuid.UUID
	Subject    escalation.Subject
	ReporterID string
	Reason     Reason
	Details    string
	CreatedAt  time.Time
}

// Submission is an inbound report request.
type Submission struct {
	ReporterID string `json:"reporter_id" validate:"notblank,max=128"`
	Kind       string `json:"kind" validate:"required,subject_kind"`
	SubjectID  string `json:"subject_id" validate:"notblank,max=128"`
	Reason     string `json:"reason" validate:"required,oneof=hate_speech harassment spam scam explicit violence impersonation other"`
	Details    string `json:"details,omitempty" validate:"max=1000"`
}

// Receipt is returned for an accepted report.
type Receipt struct {
	ReportID uuid.UUID          `json:"report_id"`
	Subject  escalation.Subject `json:"subject"`
}
