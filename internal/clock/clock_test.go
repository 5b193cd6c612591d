package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFormatting checks the day and minute layouts used on disk.
func TestFormatting(t *testing.T) {
	t.Parallel()

	c := NewManual(time.Date(2024, time.January, 31, 23, 59, 42, 0, time.UTC))
	require.Equal(t, "2024-01-31", Date(c))
	require.Equal(t, "2024-01-31 23:59", Timestamp(c))

	c.Advance(time.Minute)
	require.Equal(t, "2024-02-01", Date(c))
}

// TestNewLocal resolves zones and rejects unknown names.
func TestNewLocal(t *testing.T) {
	t.Parallel()

	l, err := NewLocal("UTC")
	require.NoError(t, err)
	require.Equal(t, time.UTC, l.Now().Location())

	_, err = NewLocal("Mars/Olympus_Mons")
	require.Error(t, err)

	l, err = NewLocal("")
	require.NoError(t, err)
	require.NotNil(t, l)
}
