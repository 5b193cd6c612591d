package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())

	a := &Actor{
		Hostname: "boiler-room",
		Username: "o.shokin",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
}

// TestActorString checks the audit caller rendering.
func TestActorString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "operator", (*Actor)(nil).String())
	require.Equal(t, "operator", (&Actor{}).String())
	require.Equal(t, "o.shokin", (&Actor{Username: "o.shokin"}).String())
	require.Equal(t, "@pi", (&Actor{Hostname: "pi"}).String())
	require.Equal(t, "o.shokin@pi", (&Actor{Username: "o.shokin", Hostname: "pi"}).String())
}

// TestStateNames covers String and ParseState.
func TestStateNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, Triggered, State(0), "zero value must be fail-safe")

	for _, s := range States() {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	parsed, err := ParseState(" STOP ")
	require.NoError(t, err)
	require.Equal(t, Stopped, parsed)

	_, err = ParseState("panic")
	require.ErrorIs(t, err, ErrUnknownState)
	require.Equal(t, "state(9)", State(9).String())
}

// TestStatusClone verifies that Status.Clone copies fields and deep-copies references.
func TestStatusClone(t *testing.T) {
	t.Parallel()

	s := Status{
		State:       Stopped,
		Temperature: 58.5,
		HasReading:  true,
		Thresholds:  Thresholds{TriggerC: 60, ResetC: 66},
		Phones:      []string{"+37060000000"},
		Changed:     time.Now().UTC().Truncate(time.Second),
		LastActor: &Actor{
			Hostname: "boiler-room",
			Username: "o.shokin",
		},
	}

	c := s.Clone()
	require.Equal(t, s, *c)
	require.NotSame(t, s.LastActor, c.LastActor)

	c.Phones[0] = "+37069999999"
	require.Equal(t, "+37060000000", s.Phones[0])
}
