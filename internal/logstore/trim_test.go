package logstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTrimNewest keeps the first n lines.
func TestTrimNewest(t *testing.T) {
	t.Parallel()

	data := []byte("d\nc\nb\na\n")

	require.Equal(t, "d\nc\n", string(TrimNewest(data, 2)))
	require.Equal(t, "d\nc\nb\na\n", string(TrimNewest(data, 4)))
	require.Equal(t, "d\nc\nb\na\n", string(TrimNewest(data, 10)))
	require.Empty(t, TrimNewest(data, 0))
}

// TestTrimLast keeps the last n lines and is idempotent.
func TestTrimLast(t *testing.T) {
	t.Parallel()

	data := []byte("a\nb\nc\nd\n")

	once := TrimLast(data, 2)
	require.Equal(t, "c\nd\n", string(once))
	require.Equal(t, string(once), string(TrimLast(once, 2)))

	require.Equal(t, "a\nb\nc\nd\n", string(TrimLast(data, 4)))
	require.Equal(t, "a\nb\nc\nd\n", string(TrimLast(data, 5)))
	require.Empty(t, TrimLast(data, -1))

	// Unterminated last line still counts as a line.
	require.Equal(t, "c\nd", string(TrimLast([]byte("a\nb\nc\nd"), 2)))
}

// TestTrimLast_Idempotent checks trimming compliant input is a no-op for many sizes.
func TestTrimLast_Idempotent(t *testing.T) {
	t.Parallel()

	data := []byte("1\n2\n3\n4\n5\n6\n7\n")

	for n := 1; n <= 9; n++ {
		trimmed := TrimLast(data, n)
		require.Equal(t, string(trimmed), string(TrimLast(trimmed, n)), "n=%d", n)
		require.LessOrEqual(t, countLines(trimmed), n)
	}
}

// TestPolicyString names the policies.
func TestPolicyString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "keep-newest", KeepNewest.String())
	require.Equal(t, "keep-last", KeepLast.String())
	require.Equal(t, "unknown", Policy(42).String())
}
