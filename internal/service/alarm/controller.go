package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/boiler-alarm/internal/clock"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/domain/phone"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/logstore"
	"github.com/oshokin/boiler-alarm/internal/metrics"
	"github.com/oshokin/boiler-alarm/internal/repository/settings"
)

// Transition origins used in metrics.
const (
	originSensor   = "sensor"
	originOperator = "operator"
	originQuota    = "quota"
)

// DefaultCaller names automatic transitions in the audit trail.
const DefaultCaller = "katilinė"

// ErrMissingDependency is returned by NewController for incomplete options.
var ErrMissingDependency = errors.New("controller dependency missing")

// Quota decides whether another notification may be sent today.
type Quota interface {
	TryConsume(ctx context.Context) (bool, error)
}

// Enqueuer accepts notification jobs without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) bool
}

// Options wires a Controller.
type Options struct {
	// Audit receives one record per transition.
	Audit logstore.Store
	// Settings persists thresholds and phones.
	Settings settings.Store
	// Quota limits notifications per day.
	Quota Quota
	// Dispatcher delivers notifications.
	Dispatcher Enqueuer
	// Clock stamps audit records.
	Clock clock.Clock
	// Caller names automatic transitions; DefaultCaller if empty.
	Caller string
	// Range bounds operator thresholds.
	Range domain.Range
	// Defaults apply until thresholds are persisted.
	Defaults domain.Thresholds
	// Initial is the start state; the zero value is Triggered.
	Initial domain.State
}

// Controller is the hysteresis state machine. All methods are safe for
// concurrent use; transitions are serialized.
type Controller struct {
	audit      logstore.Store
	settings   settings.Store
	quota      Quota
	dispatcher Enqueuer
	clock      clock.Clock
	caller     string
	rng        domain.Range

	mu         sync.Mutex
	state      domain.State
	tempC      float64
	hasReading bool
	thresholds domain.Thresholds
	phones     []string
	changed    time.Time
	lastActor  *domain.Actor
}

// NewController loads thresholds and phones from settings and returns a
// controller in opts.Initial state.
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Audit == nil || opts.Settings == nil || opts.Quota == nil || opts.Dispatcher == nil || opts.Clock == nil {
		return nil, ErrMissingDependency
	}

	caller := opts.Caller
	if caller == "" {
		caller = DefaultCaller
	}

	c := &Controller{
		audit:      opts.Audit,
		settings:   opts.Settings,
		quota:      opts.Quota,
		dispatcher: opts.Dispatcher,
		clock:      opts.Clock,
		caller:     caller,
		rng:        opts.Range,
		state:      opts.Initial,
		changed:    opts.Clock.Now(),
	}

	thresholds, err := c.loadThresholds(ctx, opts.Defaults)
	if err != nil {
		return nil, err
	}

	raw, err := settings.String(ctx, opts.Settings, settings.KeyPhones, "")
	if err != nil {
		return nil, fmt.Errorf("load phones: %w", err)
	}

	c.thresholds = thresholds
	c.phones = phone.Parse(raw)

	metrics.SetAlarmState(c.state.String(), stateNames())

	logger.InfoKV(ctx, "Alarm controller ready",
		"state", c.state.String(),
		"trigger_c", thresholds.TriggerC,
		"reset_c", thresholds.ResetC,
		"phones", len(c.phones))

	return c, nil
}

func (c *Controller) loadThresholds(ctx context.Context, defaults domain.Thresholds) (domain.Thresholds, error) {
	trigger, err := settings.Float(ctx, c.settings, settings.KeyTriggerC, defaults.TriggerC)
	if err != nil {
		return defaults, fmt.Errorf("load trigger threshold: %w", err)
	}

	reset, err := settings.Float(ctx, c.settings, settings.KeyResetC, defaults.ResetC)
	if err != nil {
		return defaults, fmt.Errorf("load reset threshold: %w", err)
	}

	stored := domain.Thresholds{TriggerC: trigger, ResetC: reset}

	valid, err := stored.Validate(c.rng)
	if err != nil {
		logger.WarnKV(ctx, "Stored thresholds rejected, using defaults", "error", err)

		return defaults.Validate(c.rng)
	}

	return valid, nil
}

// OnReading feeds one sensor reading. ok == false means no reading and is
// ignored. It returns the state after the reading.
func (c *Controller) OnReading(ctx context.Context, tempC float64, ok bool) domain.State {
	if !ok {
		return c.State()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tempC, c.hasReading = tempC, true

	switch c.state {
	case domain.Active:
		if tempC < c.thresholds.TriggerC {
			c.trigger(ctx, tempC)
		}
	case domain.Triggered:
		if tempC > c.thresholds.ResetC {
			c.setState(ctx, domain.Active, nil, originSensor)
			c.record(ctx, readingLine(c.caller, tempC, auditActive))
		}
	case domain.Stopped:
	}

	return c.state
}

// trigger runs the Active → Triggered side effects. The audit record is
// written before any notification is queued.
func (c *Controller) trigger(ctx context.Context, tempC float64) {
	c.setState(ctx, domain.Triggered, nil, originSensor)
	c.record(ctx, readingLine(c.caller, tempC, auditNotified))

	permitted, err := c.quota.TryConsume(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Quota storage failed", "error", err, "permitted", permitted)
	}

	if !permitted {
		c.setState(ctx, domain.Stopped, nil, originQuota)
		c.record(ctx, readingLine(c.caller, tempC, auditQuotaLimit))

		return
	}

	if len(c.phones) == 0 {
		logger.WarnKV(ctx, "No recipients configured, notification skipped")
		return
	}

	job := Job{
		Event: Event{
			Caller:       c.caller,
			TemperatureC: tempC,
			At:           c.clock.Now(),
			Thresholds:   c.thresholds,
		},
		Recipients: append([]string(nil), c.phones...),
	}

	c.dispatcher.Enqueue(ctx, job)
}

// SetState applies an operator command. Only Active and Stopped may be
// requested; requesting the current state is a no-op and reports false.
func (c *Controller) SetState(ctx context.Context, actor *domain.Actor, target domain.State) (bool, error) {
	if target != domain.Active && target != domain.Stopped {
		return false, &domain.ValidationError{Field: "state", Reason: target.String() + " cannot be requested"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == target {
		return false, nil
	}

	c.setState(ctx, target, actor, originOperator)

	suffix := auditActive
	if target == domain.Stopped {
		suffix = auditStopped
	}

	c.record(ctx, fmt.Sprintf("%s būsena: %s", actor.String(), suffix))

	return true, nil
}

// UpdateThresholds validates, persists and applies new thresholds. On error
// the previous thresholds stay in effect.
func (c *Controller) UpdateThresholds(
	ctx context.Context,
	actor *domain.Actor,
	t domain.Thresholds,
) (domain.Thresholds, error) {
	valid, err := t.Validate(c.rng)
	if err != nil {
		return c.Thresholds(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.settings.Put(ctx, map[string]any{
		settings.KeyTriggerC: valid.TriggerC,
		settings.KeyResetC:   valid.ResetC,
	})
	if err != nil {
		return c.thresholds, fmt.Errorf("persist thresholds: %w", err)
	}

	c.thresholds = valid
	c.record(ctx, fmt.Sprintf("%s ribos: %.1fC/%.1fC", actor.String(), valid.TriggerC, valid.ResetC))

	return valid, nil
}

// UpdatePhones parses raw, persists the accepted numbers and applies them.
// Blank input clears the list; input with no valid number is rejected.
func (c *Controller) UpdatePhones(ctx context.Context, actor *domain.Actor, raw string) ([]string, error) {
	phones := phone.Parse(raw)
	if len(phones) == 0 && strings.TrimSpace(raw) != "" {
		return c.Phones(), &domain.ValidationError{Field: "phones", Reason: "no valid number in input"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.settings.Put(ctx, map[string]any{settings.KeyPhones: phone.Join(phones)}); err != nil {
		return append([]string(nil), c.phones...), fmt.Errorf("persist phones: %w", err)
	}

	c.phones = phones
	c.record(ctx, fmt.Sprintf("%s telefonai: %d", actor.String(), len(phones)))

	return append([]string(nil), phones...), nil
}

// State returns the current state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Temperature returns the last valid reading.
func (c *Controller) Temperature() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tempC, c.hasReading
}

// Thresholds returns the thresholds in effect.
func (c *Controller) Thresholds() domain.Thresholds {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.thresholds
}

// Phones returns a copy of the recipients.
func (c *Controller) Phones() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.phones...)
}

// Status returns a snapshot for transports.
func (c *Controller) Status() *domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := domain.Status{
		State:       c.state,
		Temperature: c.tempC,
		HasReading:  c.hasReading,
		Thresholds:  c.thresholds,
		Phones:      c.phones,
		Changed:     c.changed,
		LastActor:   c.lastActor,
	}

	return s.Clone()
}

// setState must be called with mu held.
func (c *Controller) setState(ctx context.Context, to domain.State, actor *domain.Actor, origin string) {
	from := c.state

	c.state = to
	c.changed = c.clock.Now()
	c.lastActor = actor.Clone()

	metrics.SetAlarmState(to.String(), stateNames())
	metrics.IncTransition(to.String(), origin)

	logger.InfoKV(ctx, "Alarm state changed", "from", from.String(), "to", to.String(), "origin", origin)
}

// record writes an audit line stamped with the current minute. Failures are
// logged and dropped; the next transition writes again.
func (c *Controller) record(ctx context.Context, message string) {
	line := clock.Timestamp(c.clock) + " " + oneLine(message)

	if err := c.audit.Append(ctx, line); err != nil {
		logger.ErrorKV(ctx, "Failed to write audit record", "record", line, "error", err)
	}
}

func stateNames() []string {
	states := domain.States()
	names := make([]string, 0, len(states))

	for _, s := range states {
		names = append(names, s.String())
	}

	return names
}
