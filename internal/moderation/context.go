package moderation

import "fmt"

// Context names the surface a piece of text was written on.
type Context string

const (
	ContextPost     Context = "post"
	ContextComment  Context = "comment"
	ContextLiveChat Context = "live_chat"
	ContextBio      Context = "bio"
	ContextGroup    Context = "group"
	ContextEvent    Context = "event"
	ContextSpot     Context = "spot"
	ContextChat     Context = "chat"
)

var knownContexts = map[Context]bool{
	ContextPost:     true,
	ContextComment:  true,
	ContextLiveChat: true,
	ContextBio:      true,
	ContextGroup:    true,
	ContextEvent:    true,
	ContextSpot:     true,
	ContextChat:     true,
}

// Valid reports whether c is a known context.
func (c Context) Valid() bool {
	return knownContexts[c]
}

// ParseContext validates a context name received from a caller.
func ParseContext(s string) (Context, error) {
	c := Context(s)
	if !c.Valid() {
		return "", fmt.Errorf("moderation: unknown context %q", s)
	}
	return c, nil
}

// ModerationContext describes where text originates. It is built per call.
type ModerationContext struct {
	Context Context `json:"context"`
	// SkipPersonalDataCheck only has an effect for direct messages (ContextChat).
	SkipPersonalDataCheck bool `json:"skip_personal_data_check,omitempty"`
}

// In is shorthand for a ModerationContext without flags.
func In(c Context) ModerationContext {
	return ModerationContext{Context: c}
}

func (mc ModerationContext) checksPersonalData() bool {
	return !(mc.Context == ContextChat && mc.SkipPersonalDataCheck)
}
