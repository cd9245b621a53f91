package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/metrics"
)

// DefaultTimeout bounds one background check.
const DefaultTimeout = 5 * time.Second

// Engine runs escalation checks against a Store with a fixed Policy. Trigger
// runs checks in the background and never reports failures to its caller;
// they are logged, counted and handed to Hooks.OnFailed.
type Engine struct {
	store   Store
	policy  Policy
	hooks   Hooks
	log     zerolog.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHooks sets the hooks notified of escalations and failures.
func WithHooks(h Hooks) EngineOption {
	return func(e *Engine) { e.hooks = h }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l.With().Str("component", "escalation").Logger() }
}

// WithTimeout bounds each background check. Zero or negative keeps the default.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates an Engine. The policy is not validated here; config
// loading does that.
func NewEngine(store Store, policy Policy, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		policy:  policy,
		hooks:   NopHooks{},
		log:     zerolog.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the engine's store.
func (e *Engine) Store() Store { return e.store }

// Check runs one synchronous check of s and returns its result. Errors are
// returned to the caller; use Trigger on paths that must not fail.
func (e *Engine) Check(ctx context.Context, s Subject) (Result, error) {
	start := time.Now()
	res, err := Check(ctx, e.store, e.policy.For(s.Kind), s)
	metrics.EscalationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return res, err
	}

	metrics.EscalationsTotal.WithLabelValues(string(s.Kind), string(res.Action)).Inc()
	if res.Escalated() {
		e.log.Info().
			Str("kind", string(s.Kind)).
			Str("subject_id", s.ID).
			Str("action", string(res.Action)).
			Stringer("from", res.Previous).
			Stringer("to", res.Status).
			Int64("reports", res.Reports).
			Int64("violations", res.Violations).
			Msg("subject escalated")
		if herr := e.hooks.OnEscalated(ctx, res); herr != nil {
			e.log.Warn().Err(herr).Str("subject", s.String()).Msg("escalation hook failed")
		}
	}
	return res, nil
}

// CheckUser checks a user.
func (e *Engine) CheckUser(ctx context.Context, userID string) (Result, error) {
	return e.Check(ctx, User(userID))
}

// CheckPost checks a post.
func (e *Engine) CheckPost(ctx context.Context, postID string) (Result, error) {
	return e.Check(ctx, Post(postID))
}

// CheckPeak checks a peak.
func (e *Engine) CheckPeak(ctx context.Context, peakID string) (Result, error) {
	return e.Check(ctx, Peak(peakID))
}

// Trigger schedules a background check for each subject and returns
// immediately. ctx only contributes values; its cancellation does not stop
// the checks.
func (e *Engine) Trigger(ctx context.Context, subjects ...Subject) {
	base := context.WithoutCancel(ctx)
	for _, s := range subjects {
		e.wg.Add(1)
		go e.run(base, s, false)
	}
}

// RecordViolation schedules, for each subject, a violation increment followed
// by a check. Like Trigger, it never reports failures to the caller.
func (e *Engine) RecordViolation(ctx context.Context, subjects ...Subject) {
	base := context.WithoutCancel(ctx)
	for _, s := range subjects {
		e.wg.Add(1)
		go e.run(base, s, true)
	}
}

func (e *Engine) run(base context.Context, s Subject, violation bool) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(base, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, s, fmt.Errorf("escalation: panic: %v", r))
		}
	}()

	if violation {
		if err := e.store.AddViolation(ctx, s); err != nil {
			e.fail(ctx, s, fmt.Errorf("escalation: add violation %s: %w", s, err))
			return
		}
	}
	if _, err := e.Check(ctx, s); err != nil {
		e.fail(ctx, s, err)
	}
}

func (e *Engine) fail(ctx context.Context, s Subject, err error) {
	metrics.EscalationFailures.WithLabelValues(string(s.Kind)).Inc()
	e.log.Error().
		Err(err).
		Str("kind", string(s.Kind)).
		Str("subject_id", s.ID).
		Msg("escalation check failed")
	if herr := e.hooks.OnFailed(ctx, s, err); herr != nil {
		e.log.Warn().Err(herr).Str("subject", s.String()).Msg("escalation failure hook failed")
	}
}

// Wait blocks until every triggered check has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}
