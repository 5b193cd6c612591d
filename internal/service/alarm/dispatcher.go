package alarm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/boiler-alarm/internal/clock"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/logstore"
	"github.com/oshokin/boiler-alarm/internal/metrics"
	"github.com/oshokin/boiler-alarm/internal/retry"
)

const (
	// DefaultTemplate renders the SMS text.
	DefaultTemplate = `{{.Caller}}: temperatūra {{printf "%.1f" .TemperatureC}}C ` +
		`žemiau {{printf "%.1f" .Thresholds.TriggerC}}C ({{.At.Format "2006-01-02 15:04"}})`
	// DefaultQueueSize bounds pending jobs.
	DefaultQueueSize = 16
	// DefaultAttempts is the per-recipient attempt count.
	DefaultAttempts = 3
	// DefaultRetryDelay separates attempts.
	DefaultRetryDelay = 5 * time.Second
)

// Notifier delivers one message to one recipient, handshake included.
type Notifier interface {
	Deliver(ctx context.Context, recipient, message string) error
}

// Event describes the transition that caused a notification.
type Event struct {
	Caller       string
	TemperatureC float64
	At           time.Time
	Thresholds   domain.Thresholds
}

// Job is one notification to every recipient.
type Job struct {
	// ID correlates log lines of one job; assigned on Enqueue if empty.
	ID         string
	Event      Event
	Recipients []string
}

// DispatcherOptions wires a Dispatcher.
type DispatcherOptions struct {
	Notifier Notifier
	// Audit receives one record per abandoned recipient.
	Audit logstore.Store
	Clock clock.Clock
	// Template is a text/template over Event; DefaultTemplate if empty.
	Template   string
	Attempts   int
	RetryDelay time.Duration
	QueueSize  int
}

// Dispatcher delivers jobs on its own goroutine so the control loop never
// waits for the portal.
type Dispatcher struct {
	notifier Notifier
	audit    logstore.Store
	clock    clock.Clock
	tmpl     *template.Template
	attempts int
	delay    time.Duration
	queue    chan Job
}

// NewDispatcher validates options and parses the message template.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Notifier == nil || opts.Audit == nil || opts.Clock == nil {
		return nil, ErrMissingDependency
	}

	text := opts.Template
	if text == "" {
		text = DefaultTemplate
	}

	tmpl, err := template.New("sms").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse sms template: %w", err)
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &Dispatcher{
		notifier: opts.Notifier,
		audit:    opts.Audit,
		clock:    opts.Clock,
		tmpl:     tmpl,
		attempts: attempts,
		delay:    opts.RetryDelay,
		queue:    make(chan Job, size),
	}, nil
}

// Enqueue queues job and reports whether it was accepted. A full queue drops
// the job: the alarm is already recorded in the audit trail.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) bool {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	select {
	case d.queue <- job:
		logger.DebugKV(ctx, "Notification queued", "job_id", job.ID, "recipients", len(job.Recipients))

		return true
	default:
		metrics.IncDispatchDropped()
		logger.ErrorKV(ctx, "Notification queue full, job dropped", "job_id", job.ID)
		d.recordUndelivered(ctx, job.Recipients, auditQueueFull)

		return false
	}
}

// Run delivers queued jobs until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "dispatcher")

	for {
		if ctx.Err() != nil {
			d.abandonQueued(ctx)
			return nil
		}

		select {
		case <-ctx.Done():
		case job := <-d.queue:
			d.Deliver(ctx, job)
		}
	}
}

// abandonQueued audits every job still buffered at shutdown.
func (d *Dispatcher) abandonQueued(ctx context.Context) {
	for {
		select {
		case job := <-d.queue:
			metrics.IncDispatchDropped()
			logger.WarnKV(ctx, "Notification abandoned by shutdown", "job_id", job.ID)
			d.recordUndelivered(ctx, job.Recipients, auditAbandoned)
		default:
			return
		}
	}
}

// recordUndelivered writes one audit line per recipient that will not be notified.
func (d *Dispatcher) recordUndelivered(ctx context.Context, recipients []string, reason string) {
	ctx = context.WithoutCancel(ctx)

	for _, recipient := range recipients {
		d.record(ctx, fmt.Sprintf("%s %s: %s", recipient, auditDeliveryErr, reason))
	}
}

// Deliver sends job to every recipient independently and returns the
// recipients that could not be reached.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) []string {
	ctx = logger.WithKV(ctx, "job_id", job.ID)

	message, err := d.Render(job.Event)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to render notification", "error", err)
		d.record(ctx, fmt.Sprintf("%s: %s", auditDeliveryErr, err))

		return job.Recipients
	}

	var failed []string

	for _, recipient := range job.Recipients {
		if err = d.deliverOne(ctx, recipient, message); err != nil {
			failed = append(failed, recipient)

			if errors.Is(err, context.Canceled) {
				logger.WarnKV(ctx, "Delivery interrupted by shutdown", "recipient", recipient)
				d.recordUndelivered(ctx, []string{recipient}, auditAbandoned)

				continue
			}

			d.record(ctx, fmt.Sprintf("%s %s: %s", recipient, auditDeliveryErr, err))

			continue
		}

		logger.InfoKV(ctx, "Notification delivered", "recipient", recipient)
	}

	return failed
}

// Render executes the message template for event.
func (d *Dispatcher) Render(event Event) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, event); err != nil {
		return "", fmt.Errorf("render sms template: %w", err)
	}

	return buf.String(), nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, recipient, message string) error {
	return retry.Do(ctx, d.attempts, d.delay, func(ctx context.Context, attempt int) error {
		err := d.notifier.Deliver(ctx, recipient, message)

		metrics.IncSMSAttempt(err)

		if err != nil {
			logger.WarnKV(ctx, "Delivery attempt failed",
				"recipient", recipient, "attempt", attempt, "of", d.attempts, "error", err)
		}

		return err
	})
}

func (d *Dispatcher) record(ctx context.Context, message string) {
	line := clock.Timestamp(d.clock) + " " + oneLine(message)

	if err := d.audit.Append(ctx, line); err != nil {
		logger.ErrorKV(ctx, "Failed to write audit record", "record", line, "error", err)
	}
}
