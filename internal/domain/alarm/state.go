package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the alarm controller state.
type State int

const (
	// Triggered means the alarm condition holds and notifications may have been sent.
	// It is the zero value so a fresh controller starts fail-safe.
	Triggered State = iota
	// Active is normal monitoring.
	Active
	// Stopped suspends automatic transitions until an operator resumes monitoring.
	Stopped
)

// ErrUnknownState is returned by ParseState for unrecognized names.
var ErrUnknownState = errors.New("unknown alarm state")

// States lists every state in a stable order.
func States() []State {
	return []State{Active, Triggered, Stopped}
}

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Triggered:
		return "triggered"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState converts a state name (case-insensitive) into a State.
func ParseState(name string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "active", "resume", "on":
		return Active, nil
	case "triggered":
		return Triggered, nil
	case "stopped", "stop", "off":
		return Stopped, nil
	default:
		return Triggered, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
}

// Actor identifies who performed an action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as an audit caller, e.g. "o.shokin@boiler-room".
func (a *Actor) String() string {
	switch {
	case a == nil:
		return "operator"
	case a.Username == "" && a.Hostname == "":
		return "operator"
	case a.Hostname == "":
		return a.Username
	case a.Username == "":
		return "@" + a.Hostname
	default:
		return a.Username + "@" + a.Hostname
	}
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	// State is the current alarm state.
	State State
	// Temperature is the last valid reading, meaningful only if HasReading.
	Temperature float64
	// HasReading reports whether any valid reading was observed.
	HasReading bool
	// Thresholds are the hysteresis bounds in effect.
	Thresholds Thresholds
	// Phones are the notification recipients.
	Phones []string
	// Changed is when State last changed.
	Changed time.Time
	// LastActor is who last changed the state; nil for automatic transitions.
	LastActor *Actor
}

// Clone returns a copy of the status to avoid leaking internal references.
func (s *Status) Clone() *Status {
	cloned := *s
	cloned.Phones = append([]string(nil), s.Phones...)
	cloned.LastActor = s.LastActor.Clone()

	return &cloned
}
