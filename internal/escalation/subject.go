// Package escalation turns accumulated reports and violations into
// enforcement state changes for users, posts and peaks.
//
// Subjects move through a strictly forward state machine:
//
//	active -> warned -> restricted -> suspended
//
// A check reads the subject's counters from a Store, computes the target
// status from configured thresholds, and advances the status only if the
// target is stricter than the current one. Only Store.Reinstate, an
// administrative action, moves a subject backwards.
package escalation

import (
	"fmt"
	"strings"
)

// Kind identifies what sort of subject is being moderated.
type Kind string

const (
	KindUser Kind = "user"
	KindPost Kind = "post"
	KindPeak Kind = "peak"
)

// Kinds lists every subject kind.
func Kinds() []Kind {
	return []Kind{KindUser, KindPost, KindPeak}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindPost, KindPeak:
		return true
	}
	return false
}

// ParseKind validates a kind name received from a caller.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("escalation: unknown subject kind %q", s)
	}
	return k, nil
}

// Subject is a user, post or peak tracked by the engine.
type Subject struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// User, Post and Peak build subjects.
func User(id string) Subject { return Subject{Kind: KindUser, ID: id} }
func Post(id string) Subject { return Subject{Kind: KindPost, ID: id} }
func Peak(id string) Subject { return Subject{Kind: KindPeak, ID: id} }

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID
}

// Validate checks the kind and that the id is not empty.
func (s Subject) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("escalation: unknown subject kind %q", s.Kind)
	}
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptySubjectID
	}
	return nil
}

// Status is the moderation state of a subject. Statuses are ordered; a larger
// value is stricter.
type Status int

const (
	StatusActive Status = iota
	StatusWarned
	StatusRestricted
	StatusSuspended
)

var statusNames = [...]string{
	StatusActive:     "active",
	StatusWarned:     "warned",
	StatusRestricted: "restricted",
	StatusSuspended:  "suspended",
}

func (s Status) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return statusNames[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s >= StatusActive && s <= StatusSuspended
}

// ParseStatus maps a status name to its Status.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusActive, fmt.Errorf("escalation: unknown status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("escalation: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Action is what a check did to a subject.
type Action string

const (
	ActionNone     Action = "none"
	ActionWarn     Action = "warn"
	ActionRestrict Action = "restrict"
	ActionSuspend  Action = "suspend"
)

// actionFor returns the action that moves a subject into s.
func actionFor(s Status) Action {
	switch s {
	case StatusWarned:
		return ActionWarn
	case StatusRestricted:
		return ActionRestrict
	case StatusSuspended:
		return ActionSuspend
	default:
		return ActionNone
	}
}
