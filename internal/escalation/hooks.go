package escalation

import "context"

// Hooks receives escalation outcomes. Hook errors are logged by the engine
// and never change the result of a check.
type Hooks interface {
	// OnEscalated is called after a subject's status was advanced.
	OnEscalated(ctx context.Context, r Result) error

	// OnFailed is called when a background check fails.
	OnFailed(ctx context.Context, s Subject, err error) error
}

// NopHooks is a no-op implementation of Hooks.
type NopHooks struct{}

func (NopHooks) OnEscalated(ctx context.Context, r Result) error { return nil }
func (NopHooks) OnFailed(ctx context.Context, s Subject, err error) error { return nil }

var _ Hooks = NopHooks{}

// ChainHooks calls each Hooks in order and stops at the first error.
type ChainHooks []Hooks

func (ch ChainHooks) OnEscalated(ctx context.Context, r Result) error {
	for _, h := range ch {
		if err := h.OnEscalated(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (ch ChainHooks) OnFailed(ctx context.Context, s Subject, err error) error {
	for _, h := range ch {
		if herr := h.OnFailed(ctx, s, err); herr != nil {
			return herr
		}
	}
	return nil
}

// FuncHooks adapts plain functions to Hooks. Nil fields are skipped.
type FuncHooks struct {
	OnEscalatedFunc func(ctx context.Context, r Result) error
	OnFailedFunc    func(ctx context.Context, s Subject, err error) error
}

func (fh FuncHooks) OnEscalated(ctx context.Context, r Result) error {
	if fh.OnEscalatedFunc != nil {
		return fh.OnEscalatedFunc(ctx, r)
	}
	return nil
}

func (fh FuncHooks) OnFailed(ctx context.Context, s Subject, err error) error {
	if fh.OnFailedFunc != nil {
		return fh.OnFailedFunc(ctx, s, err)
	}
	return nil
}
