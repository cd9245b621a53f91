package escalation

import (
	"errors"
	"fmt"
)

// Trigger fires when either counter reaches its limit. A zero limit disables
// that counter.
type Trigger struct {
	Reports    int64 `yaml:"reports" json:"reports"`
	Violations int64 `yaml:"violations" json:"violations"`
}

// Enabled reports whether any counter is configured.
func (t Trigger) Enabled() bool {
	return t.Reports > 0 || t.Violations > 0
}

// Met reports whether the snapshot reaches the trigger.
func (t Trigger) Met(s Snapshot) bool {
	if t.Reports > 0 && s.Reports >= t.Reports {
		return true
	}
	return t.Violations > 0 && s.Violations >= t.Violations
}

// Thresholds are the per-status triggers for one subject kind.
type Thresholds struct {
	Warn     Trigger `yaml:"warn" json:"warn"`
	Restrict Trigger `yaml:"restrict" json:"restrict"`
	Suspend  Trigger `yaml:"suspend" json:"suspend"`
}

// Target returns the strictest status whose trigger the snapshot meets, or
// StatusActive when none is met.
func (th Thresholds) Target(s Snapshot) Status {
	switch {
	case th.Suspend.Met(s):
		return StatusSuspended
	case th.Restrict.Met(s):
		return StatusRestricted
	case th.Warn.Met(s):
		return StatusWarned
	default:
		return StatusActive
	}
}

// Validate checks that, for each counter, enabled limits never decrease from
// warn to restrict to suspend.
func (th Thresholds) Validate() error {
	if th.Warn.Reports < 0 || th.Restrict.Reports < 0 || th.Suspend.Reports < 0 ||
		th.Warn.Violations < 0 || th.Restrict.Violations < 0 || th.Suspend.Violations < 0 {
		return ErrNegativeThreshold
	}
	if err := monotonic("reports", th.Warn.Reports, th.Restrict.Reports, th.Suspend.Reports); err != nil {
		return err
	}
	return monotonic("violations", th.Warn.Violations, th.Restrict.Violations, th.Suspend.Violations)
}

func monotonic(counter string, limits ...int64) error {
	var prev int64
	for _, l := range limits {
		if l == 0 {
			continue
		}
		if l < prev {
			return fmt.Errorf("%w: %s limit %d below %d", ErrThresholdOrder, counter, l, prev)
		}
		prev = l
	}
	return nil
}

// Policy holds the thresholds for every subject kind.
type Policy struct {
	User Thresholds `yaml:"user" json:"user"`
	Post Thresholds `yaml:"post" json:"post"`
	Peak Thresholds `yaml:"peak" json:"peak"`
}

// For returns the thresholds of kind k.
func (p Policy) For(k Kind) Thresholds {
	switch k {
	case KindPost:
		return p.Post
	case KindPeak:
		return p.Peak
	default:
		return p.User
	}
}

// Validate validates every kind's thresholds.
func (p Policy) Validate() error {
	var errs []error
	for _, k := range Kinds() {
		if err := p.For(k).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
