package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/metrics"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/ratelimit"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/validate"
)

// Ledger persists reports. Record must write the report and increment the
// subject's report counter atomically, and return counted=false without
// touching the counter when the reporter already reported the subject.
type Ledger interface {
	Record(ctx context.Context, r Report) (counted bool, err error)
}

// RateLimiter throttles identifiers against a rule.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

// Escalator schedules background escalation checks.
type Escalator interface {
	Trigger(ctx context.Context, subjects ...escalation.Subject)
}

// CounterLedger records reports as counters only, using an escalation.Store.
// Report details are not kept.
type CounterLedger struct {
	Store escalation.Store
}

func (c CounterLedger) Record(ctx context.Context, r Report) (bool, error) {
	return c.Store.AddReport(ctx, r.Subject, r.ReporterID)
}

// Recorder ingests report submissions.
type Recorder struct {
	ledger    Ledger
	escalator Escalator
	limiter   RateLimiter
	rule      ratelimit.Rule
	log       zerolog.Logger
	now       func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRateLimit throttles submissions per reporter.
func WithRateLimit(l RateLimiter, rule ratelimit.Rule) RecorderOption {
	return func(r *Recorder) {
		if l == nil {
			return
		}
		r.limiter = l
		r.rule = rule
	}
}

// WithLogger sets the recorder logger.
func WithLogger(l zerolog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = l.With().Str("component", "report").Logger() }
}

// NewRecorder creates a Recorder writing to ledger and escalating through e.
func NewRecorder(ledger Ledger, e Escalator, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		ledger:    ledger,
		escalator: e,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit records one report. It returns once the report is durably written;
// the escalation check runs in the background and cannot fail the call.
func (r *Recorder) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	kind := sub.Kind
	if !escalation.Kind(kind).Valid() {
		kind = "unknown"
	}
	if err := validate.Struct(sub); err != nil {
		metrics.ReportsTotal.WithLabelValues(kind, "invalid").Inc()
		return Receipt{}, err
	}

	subject := escalation.Subject{Kind: escalation.Kind(sub.Kind), ID: strings.TrimSpace(sub.SubjectID)}
	reporter := strings.TrimSpace(sub.ReporterID)
	if subject.Kind == escalation.KindUser && subject.ID == reporter {
		metrics.ReportsTotal.WithLabelValues(kind, "invalid").Inc()
		return Receipt{}, ErrSelfReport
	}

	if r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, reporter, r.rule)
		if err != nil {
			r.log.Warn().Err(err).Str("reporter_id", reporter).Msg("rate limiter unavailable")
		}
		if !allowed {
			metrics.ReportsTotal.WithLabelValues(kind, "rate_limited").Inc()
			return Receipt{}, ErrRateLimited
		}
	}

	rep := Report{
		ID:         uuid.New(),
		Subject:    subject,
		ReporterID: reporter,
		Reason:     Reason(sub.Reason),
		Details:    strings.TrimSpace(sub.Details),
		CreatedAt:  r.now().UTC(),
	}

	counted, err := r.ledger.Record(ctx, rep)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues(kind, "error").Inc()
		return Receipt{}, fmt.Errorf("report: record: %w", err)
	}
	if !counted {
		metrics.ReportsTotal.WithLabelValues(kind, "duplicate").Inc()
		return Receipt{}, ErrDuplicateReport
	}

	metrics.ReportsTotal.WithLabelValues(kind, "counted").Inc()
	r.log.Info().
		Str("report_id", rep.ID.String()).
		Str("kind", string(subject.Kind)).
		Str("subject_id", subject.ID).
		Str("reason", string(rep.Reason)).
		Msg("report recorded")

	if r.escalator != nil {
		r.escalator.Trigger(ctx, subject)
	}
	return Receipt{ReportID: rep.ID, Subject: subject}, nil
}

// IsClientError reports whether err was caused by the submission itself
// rather than by storage.
func IsClientError(err error) bool {
	var verr *validate.Error
	return errors.As(err, &verr) ||
		errors.Is(err, ErrDuplicateReport) ||
		errors.Is(err, ErrSelfReport) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrInvalidReason)
}
