package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/boiler-alarm/internal/clock"
	"github.com/oshokin/boiler-alarm/internal/repository/settings"
)

// TestTryConsume_DailyLimit checks [true, true, false] and the next-day reset.
func TestTryConsume_DailyLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := clock.NewManual(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	store := settings.NewFileRepository(filepath.Join(t.TempDir(), "settings.json"))

	q, err := New(store, c, 2)
	require.NoError(t, err)

	var got []bool

	for range 3 {
		ok, err := q.TryConsume(ctx)
		require.NoError(t, err)

		got = append(got, ok)
	}

	require.Equal(t, []bool{true, true, false}, got)

	used, err := q.Used(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, used)

	c.Advance(2 * time.Hour)

	ok, err := q.TryConsume(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	used, err = q.Used(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, used)
}

// TestTryConsume_SurvivesRestart keeps exhaustion across a new Quota on the same store.
func TestTryConsume_SurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := clock.NewManual(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "settings.json")

	q, err := New(settings.NewFileRepository(path), c, 1)
	require.NoError(t, err)

	ok, err := q.TryConsume(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	restarted, err := New(settings.NewFileRepository(path), c, 1)
	require.NoError(t, err)

	ok, err = restarted.TryConsume(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestTryConsume_ZeroLimit refuses everything.
func TestTryConsume_ZeroLimit(t *testing.T) {
	t.Parallel()

	q, err := New(settings.NewMemoryRepository(), clock.NewManual(time.Now()), 0)
	require.NoError(t, err)

	ok, err := q.TryConsume(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = New(settings.NewMemoryRepository(), clock.NewManual(time.Now()), -1)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

// TestTryConsume_StorageFailure still returns the decision.
func TestTryConsume_StorageFailure(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryRepository()
	store.PutErr = errors.New("flash is read-only")

	q, err := New(store, clock.NewManual(time.Now()), 3)
	require.NoError(t, err)

	ok, err := q.TryConsume(context.Background())
	require.Error(t, err)
	require.True(t, ok)
}
