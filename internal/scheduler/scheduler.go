// Package scheduler runs periodic tasks from a single loop.
//
// Tasks run in registration order whenever they are due, one at a time, and
// receive the application context explicitly instead of closing over globals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
)

var (
	// ErrInvalidInterval is returned for non-positive intervals.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrNoTasks is returned by Run when nothing is registered.
	ErrNoTasks = errors.New("no tasks registered")
	// ErrRunning is returned by Every once Run has started.
	ErrRunning = errors.New("scheduler already running")
)

// Task is one periodic job.
type Task[T any] func(ctx context.Context, app T)

type entry[T any] struct {
	name     string
	interval time.Duration
	task     Task[T]
	next     time.Time
}

// Scheduler holds (interval, task) entries over an application value.
type Scheduler[T any] struct {
	app     T
	entries []*entry[T]
	running bool
}

// New creates an empty scheduler passing app to every task.
func New[T any](app T) *Scheduler[T] {
	return &Scheduler[T]{app: app}
}

// Every registers task to run each interval. The first run happens as soon
// as Run starts.
func (s *Scheduler[T]) Every(name string, interval time.Duration, task Task[T]) error {
	if s.running {
		return ErrRunning
	}

	if interval <= 0 {
		return fmt.Errorf("task %s: %w", name, ErrInvalidInterval)
	}

	s.entries = append(s.entries, &entry[T]{
		name:     name,
		interval: interval,
		task:     task,
	})

	return nil
}

// Run executes due tasks until ctx is done. A task that overran its interval
// is not repeated to catch up; it runs once and is rescheduled from now.
func (s *Scheduler[T]) Run(ctx context.Context) error {
	if len(s.entries) == 0 {
		return ErrNoTasks
	}

	s.running = true
	defer func() {
		s.running = false
	}()

	start := time.Now()
	for _, e := range s.entries {
		e.next = start
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		s.runDue(ctx)

		timer.Reset(time.Until(s.nextDue()))
	}
}

func (s *Scheduler[T]) runDue(ctx context.Context) {
	for _, e := range s.entries {
		if ctx.Err() != nil {
			return
		}

		now := time.Now()
		if now.Before(e.next) {
			continue
		}

		metrics.ObserveTask(e.name, now.Sub(e.next))

		e.task(logger.WithKV(ctx, "task", e.name), s.app)

		e.next = e.next.Add(e.interval)
		if after := time.Now(); !e.next.After(after) {
			logger.WarnKV(ctx, "Task overran its interval", "task", e.name, "interval", e.interval)
			e.next = after.Add(e.interval)
		}
	}
}

func (s *Scheduler[T]) nextDue() time.Time {
	next := s.entries[0].next
	for _, e := range s.entries[1:] {
		if e.next.Before(next) {
			next = e.next
		}
	}

	return next
}
