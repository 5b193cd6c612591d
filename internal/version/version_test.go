package version

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
}

// TestDescribe renders boot and system time in the caller's zone.
func TestDescribe(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)
	info := Describe(now)

	require.Equal(t, Commit, info.Commit)
	require.Equal(t, BuildTime, info.CompileTime)
	require.Equal(t, "2024-01-15T06:30:00Z", info.SystemTime)
	require.False(t, BootTime().IsZero())

	parsed, err := time.Parse(time.RFC3339, info.LastBoot)
	require.NoError(t, err)
	require.WithinDuration(t, BootTime(), parsed, time.Second)
}

// TestVersionCommand runs the attached subcommand in both output modes.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "boiler-ctl"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Equal(t, Full()+"\n", out.String())

	out.Reset()
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())

	var info Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	require.Equal(t, Commit, info.Commit)
}
