package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/boiler-alarm/internal/config"
	"github.com/oshokin/boiler-alarm/internal/service/monitor"
	"github.com/oshokin/boiler-alarm/internal/version"
)

var (
	// options collects flag overrides for the monitor.
	options monitor.Options

	// rootCmd represents the base command for running the monitor daemon.
	rootCmd = &cobra.Command{
		Use:   "boiler-monitor",
		Short: "Watch the boiler temperature and send SMS alarms.",
		Long: `Reads the boiler temperature sensor, keeps a bounded history and audit
trail on disk, and raises an alarm with SMS notifications when the temperature
drops below the trigger threshold.

The monitor serves a status page and operator API over HTTP and the
boiler.v1.AlarmService over gRPC for boiler-ctl. Only one instance may use a
data directory at a time.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return monitor.Run(ctx, &options)
		},
	}
)

// Execute runs the boiler-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&options.GRPCAddress, "grpc-addr", "", "gRPC listen address (overrides grpc_addr)")
	flags.StringVar(&options.HTTPAddress, "http-addr", "", "HTTP listen address (overrides http_addr)")
	flags.StringVarP(&options.DataDir, "data-dir", "d", "", "directory for audit, history and settings")
	flags.StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}
