package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/protocol"
)

// EscalationSink publishes encoded escalation events for a subject kind.
// *NATSClient implements it.
type EscalationSink interface {
	PublishEscalation(kind string, data []byte) error
}

// EscalationPublisher is an escalation.Hooks that publishes every status
// transition on moderation.escalation.<kind>.
type EscalationPublisher struct {
	sink EscalationSink
	now  func() time.Time
}

var _ escalation.Hooks = (*EscalationPublisher)(nil)

// NewEscalationPublisher creates hooks publishing through sink.
func NewEscalationPublisher(sink EscalationSink) *EscalationPublisher {
	return &EscalationPublisher{sink: sink, now: time.Now}
}

func (p *EscalationPublisher) OnEscalated(_ context.Context, r escalation.Result) error {
	data, err := protocol.NewResponse(protocol.TypeEscalationEvent, "", protocol.EscalationEvent{
		Result: r,
		Ts:     p.now().Unix(),
	})
	if err != nil {
		return err
	}
	if err := p.sink.PublishEscalation(string(r.Subject.Kind), data); err != nil {
		return fmt.Errorf("messaging: publish escalation %s: %w", r.Subject, err)
	}
	return nil
}

// OnFailed does nothing; the engine already logs and counts failures.
func (p *EscalationPublisher) OnFailed(context.Context, escalation.Subject, error) error {
	return nil
}
