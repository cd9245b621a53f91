package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
)

// Store is the PostgreSQL moderation store. It keeps every report in
// moderation_reports and the per-subject counters and status in
// moderation_subjects. It implements both Ledger and escalation.Store.
type Store struct {
	db *sql.DB
}

var (
	_ Ledger           = (*Store)(nil)
	_ escalation.Store = (*Store)(nil)
)

// NewStore creates a new store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts the report and increments the subject's report counter in
// one transaction. A second report by the same reporter on the same subject
// is ignored and leaves the counter unchanged.
func (s *Store) Record(ctx context.Context, r Report) (bool, error) {
	if !r.Reason.Valid() {
		return false, fmt.Errorf("%w %q", ErrInvalidReason, r.Reason)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("report: begin: %w", err)
	}
	defer tx.Rollback()

	const insertReport = `
		INSERT INTO moderation_reports (id, kind, subject_id, reporter_id, reason, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		ON CONFLICT (kind, subject_id, reporter_id) DO NOTHING`

	var createdAt sql.NullTime
	if !r.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: r.CreatedAt, Valid: true}
	}
	res, err := tx.ExecContext(ctx, insertReport,
		r.ID, string(r.Subject.Kind), r.Subject.ID, r.ReporterID, string(r.Reason), r.Details, createdAt)
	if err != nil {
		return false, fmt.Errorf("report: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("report: insert rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	const bumpCounter = `
		INSERT INTO moderation_subjects (kind, subject_id, report_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, subject_id)
		DO UPDATE SET report_count = moderation_subjects.report_count + 1, updated_at = NOW()`

	if _, err := tx.ExecContext(ctx, bumpCounter, string(r.Subject.Kind), r.Subject.ID); err != nil {
		return false, fmt.Errorf("report: bump counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("report: commit: %w", err)
	}
	return true, nil
}

// Snapshot reads the counters and status of subj.
func (s *Store) Snapshot(ctx context.Context, subj escalation.Subject) (escalation.Snapshot, error) {
	const query = `
		SELECT report_count, violation_count, status
		FROM moderation_subjects
		WHERE kind = $1 AND subject_id = $2`

	var (
		snap   escalation.Snapshot
		status int
	)
	err := s.db.QueryRowContext(ctx, query, string(subj.Kind), subj.ID).
		Scan(&snap.Reports, &snap.Violations, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return escalation.Snapshot{}, nil
	}
	if err != nil {
		return escalation.Snapshot{}, fmt.Errorf("report: snapshot: %w", err)
	}
	if snap.Status, err = storedStatus(status); err != nil {
		return escalation.Snapshot{}, fmt.Errorf("report: snapshot %s: %w", subj, err)
	}
	return snap, nil
}

// storedStatus converts a status column value, rejecting values outside the
// known range.
func storedStatus(v int) (escalation.Status, error) {
	s := escalation.Status(v)
	if !s.Valid() {
		return escalation.StatusActive, fmt.Errorf("%w: stored value %d", escalation.ErrInvalidStatus, v)
	}
	return s, nil
}

// AdvanceStatus locks the subject row and raises its status to target if
// target is stricter.
func (s *Store) AdvanceStatus(ctx context.Context, subj escalation.Subject, target escalation.Status) (escalation.Status, bool, error) {
	if !target.Valid() {
		return escalation.StatusActive, false, escalation.ErrInvalidStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return escalation.StatusActive, false, fmt.Errorf("report: begin: %w", err)
	}
	defer tx.Rollback()

	const ensureRow = `
		INSERT INTO moderation_subjects (kind, subject_id)
		VALUES ($1, $2)
		ON CONFLICT (kind, subject_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, ensureRow, string(subj.Kind), subj.ID); err != nil {
		return escalation.StatusActive, false, fmt.Errorf("report: ensure subject: %w", err)
	}

	const lockRow = `
		SELECT status FROM moderation_subjects
		WHERE kind = $1 AND subject_id = $2
		FOR UPDATE`
	var cur int
	if err := tx.QueryRowContext(ctx, lockRow, string(subj.Kind), subj.ID).Scan(&cur); err != nil {
		return escalation.StatusActive, false, fmt.Errorf("report: lock subject: %w", err)
	}
	prev, err := storedStatus(cur)
	if err != nil {
		return escalation.StatusActive, false, fmt.Errorf("report: advance %s: %w", subj, err)
	}
	if target <= prev {
		return prev, false, tx.Commit()
	}

	const update = `
		UPDATE moderation_subjects SET status = $3, updated_at = NOW()
		WHERE kind = $1 AND subject_id = $2`
	if _, err := tx.ExecContext(ctx, update, string(subj.Kind), subj.ID, int(target)); err != nil {
		return prev, false, fmt.Errorf("report: update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return prev, false, fmt.Errorf("report: commit: %w", err)
	}
	return prev, true, nil
}

// Reinstate sets the status of subj unconditionally.
func (s *Store) Reinstate(ctx context.Context, subj escalation.Subject, status escalation.Status) error {
	if !status.Valid() {
		return escalation.ErrInvalidStatus
	}
	const query = `
		INSERT INTO moderation_subjects (kind, subject_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, subject_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, string(subj.Kind), subj.ID, int(status)); err != nil {
		return fmt.Errorf("report: reinstate: %w", err)
	}
	return nil
}

// AddReport records a report with reason "other" and no details.
func (s *Store) AddReport(ctx context.Context, subj escalation.Subject, reporterID string) (bool, error) {
	if strings.TrimSpace(reporterID) == "" {
		return false, escalation.ErrEmptyReporter
	}
	return s.Record(ctx, Report{Subject: subj, ReporterID: reporterID, Reason: ReasonOther})
}

// AddViolation increments the violation counter of subj.
func (s *Store) AddViolation(ctx context.Context, subj escalation.Subject) error {
	const query = `
		INSERT INTO moderation_subjects (kind, subject_id, violation_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, subject_id)
		DO UPDATE SET violation_count = moderation_subjects.violation_count + 1, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, string(subj.Kind), subj.ID); err != nil {
		return fmt.Errorf("report: add violation: %w", err)
	}
	return nil
}

// ListBySubject returns the most recent reports filed against subj, newest
// first, for moderator review.
func (s *Store) ListBySubject(ctx context.Context, subj escalation.Subject, limit int) ([]Report, error) {
	const query = `
		SELECT id, reporter_id, reason, details, created_at
		FROM moderation_reports
		WHERE kind = $1 AND subject_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, string(subj.Kind), subj.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r := Report{Subject: subj}
		var reason string
		if err := rows.Scan(&r.ID, &r.ReporterID, &reason, &r.Details, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("report: scan: %w", err)
		}
		r.Reason = Reason(reason)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report: rows: %w", err)
	}
	return out, nil
}
