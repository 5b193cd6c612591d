// Package clock is the wall-clock collaborator: calendar days for the daily SMS
// quota and minute-resolution timestamps for history rows and audit lines.
package clock

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DateLayout is the calendar-day format persisted by the quota.
	DateLayout = "2006-01-02"
	// TimestampLayout is the history/audit timestamp format.
	TimestampLayout = "2006-01-02 15:04"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Local reads the system clock in a fixed location.
type Local struct {
	loc *time.Location
}

// NewLocal resolves an IANA zone name. An empty name means the host zone.
func NewLocal(zone string) (*Local, error) {
	if zone == "" {
		return &Local{loc: time.Local}, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}

	return &Local{loc: loc}, nil
}

// Now implements Clock.
func (l *Local) Now() time.Time {
	return time.Now().In(l.loc)
}

// Date returns the current calendar day of c.
func Date(c Clock) string {
	return c.Now().Format(DateLayout)
}

// Timestamp returns the current minute of c.
func Timestamp(c Clock) string {
	return c.Now().Format(TimestampLayout)
}

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a clock stopped at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
}
