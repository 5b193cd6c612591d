package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/service/client"
	"github.com/oshokin/boiler-alarm/internal/version"
)

var (
	// options holds the persistent connection flags.
	options client.Options

	auditLines    int
	historyLimit  int
	historyWidth  int
	watchInterval time.Duration
	tokenUser     string
	tokenHost     string
	tokenTTL      time.Duration

	// rootCmd represents the base command for talking to the monitor.
	rootCmd = &cobra.Command{
		Use:   "boiler-ctl",
		Short: "Control and inspect a running boiler-monitor.",
		Long: `Talks to boiler-monitor over gRPC.

Server address is taken from grpc_addr in the configuration file unless
--server is given. State changes are signed with this machine's user and
hostname and recorded in the monitor's audit trail.`,
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show temperature, state, thresholds and recent audit records.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Status(cmd.Context(), &options, auditLines)
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Suspend automatic alarms until resumed.",
		Long: `Requests the Stopped state and keeps retrying until the monitor confirms it.
Press Ctrl+C to give up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.SetState(cmd.Context(), &options, domain.Stopped)
		},
	}

	resumeCmd = &cobra.Command{
		Use:     "resume",
		Aliases: []string{"start"},
		Short:   "Resume active monitoring.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.SetState(cmd.Context(), &options, domain.Active)
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Print temperature history as CSV rows or a sparkline.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.History(cmd.Context(), &options, historyLimit, historyWidth)
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view with stop/resume keys.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Watch(cmd.Context(), &options, watchInterval)
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token for the HTTP API.",
		Long: `Signs a token with operator.jwt_secret from the configuration file.
Run it on the monitor host; the secret never leaves the file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return client.Token(&options, tokenUser, tokenHost, tokenTTL)
		},
	}
)

// Execute runs the boiler-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above.
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	options.Out = os.Stdout

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	persistent.StringVarP(&options.ServerAddress, "server", "s", "", "monitor gRPC address (overrides grpc_addr)")

	statusCmd.Flags().IntVarP(&auditLines, "audit", "a", 5, "number of audit records to show")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 288, "number of newest rows, 0 for all")
	historyCmd.Flags().IntVarP(&historyWidth, "sparkline", "w", 0, "render a sparkline this wide instead of rows")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 5*time.Second, "refresh interval")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "operator username (default: current user)")
	tokenCmd.Flags().StringVar(&tokenHost, "host", "", "operator hostname (default: this host)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: operator.token_ttl)")

	rootCmd.AddCommand(statusCmd, stopCmd, resumeCmd, historyCmd, watchCmd, tokenCmd)
}
