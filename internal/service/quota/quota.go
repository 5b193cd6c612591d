// Package quota enforces the daily cap on outbound notifications.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/boiler-alarm/internal/clock"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
	"github.com/oshokin/boiler-alarm/internal/repository/settings"
)

// ErrInvalidLimit is returned by New for negative limits.
var ErrInvalidLimit = errors.New("quota limit must not be negative")

// Quota is a persisted per-day counter.
type Quota struct {
	store settings.Store
	clock clock.Clock
	limit int
	mu    sync.Mutex
}

// New creates a quota allowing limit notifications per calendar day.
func New(store settings.Store, c clock.Clock, limit int) (*Quota, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	return &Quota{
		store: store,
		clock: c,
		limit: limit,
	}, nil
}

// Limit returns the daily cap.
func (q *Quota) Limit() int {
	return q.limit
}

// TryConsume records one notification attempt and reports whether it is
// permitted. The decision uses the count before the increment, and the first
// attempt of a new day counts against that day. Refused attempts are recorded
// too, so exhaustion survives a restart.
//
// On a storage error the decision is still returned alongside the error.
func (q *Quota) TryConsume(ctx context.Context) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := clock.Date(q.clock)

	day, err := settings.String(ctx, q.store, settings.KeyQuotaDay, "")
	if err != nil {
		logger.WarnKV(ctx, "Failed to read quota day", "error", err)
	}

	count, err := settings.Int(ctx, q.store, settings.KeyQuotaCount, 0)
	if err != nil {
		logger.WarnKV(ctx, "Failed to read quota count", "error", err)
	}

	if day != today {
		count = 0
	}

	permitted := count < q.limit

	metrics.IncQuotaDecision(permitted)

	err = q.store.Put(ctx, map[string]any{
		settings.KeyQuotaDay:   today,
		settings.KeyQuotaCount: count + 1,
	})
	if err != nil {
		return permitted, fmt.Errorf("persist quota: %w", err)
	}

	logger.DebugKV(ctx, "Quota consumed", "day", today, "count", count+1, "limit", q.limit, "permitted", permitted)

	return permitted, nil
}

// Used returns today's recorded attempts.
func (q *Quota) Used(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	day, err := settings.String(ctx, q.store, settings.KeyQuotaDay, "")
	if err != nil {
		return 0, err
	}

	if day != clock.Date(q.clock) {
		return 0, nil
	}

	return settings.Int(ctx, q.store, settings.KeyQuotaCount, 0)
}
