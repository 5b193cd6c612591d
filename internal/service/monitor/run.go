package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"

	grpcalarm "github.com/oshokin/boiler-alarm/internal/api/grpc/alarm"
	httpalarm "github.com/oshokin/boiler-alarm/internal/api/http/alarm"
	"github.com/oshokin/boiler-alarm/internal/config"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/logstore"
	"github.com/oshokin/boiler-alarm/internal/metrics"
	pb "github.com/oshokin/boiler-alarm/internal/pb/v1"
	"github.com/oshokin/boiler-alarm/internal/version"
)

// Options controls the boiler-monitor process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// GRPCAddress overrides grpc_addr.
	GRPCAddress string
	// HTTPAddress overrides http_addr.
	HTTPAddress string
	// DataDir overrides data_dir.
	DataDir string
	// LogLevel overrides log_level.
	LogLevel string
}

// Run loads configuration, takes the instance lock and serves until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "boiler-monitor")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return err
	}

	metrics.Init()

	if err = ensureDir(cfg.DataDir); err != nil {
		return err
	}

	lock, err := AcquireLock(ctx, filepath.Join(cfg.DataDir, PIDFilename), selfExecutable())
	if err != nil {
		return err
	}

	defer lock.Release(ctx)

	app, err := NewApp(ctx, cfg, Overrides{})
	if err != nil {
		return fmt.Errorf("initialise monitor: %w", err)
	}

	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", cfg.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}

	var httpLis net.Listener

	if cfg.HTTPAddress != "" {
		httpLis, err = lc.Listen(ctx, "tcp", cfg.HTTPAddress)
		if err != nil {
			_ = grpcLis.Close()

			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddress, err)
		}
	}

	logger.InfoKV(ctx, "Boiler monitor starting",
		"version", version.Full(),
		"grpc_address", cfg.GRPCAddress,
		"http_address", cfg.HTTPAddress,
		"data_dir", cfg.DataDir,
		"history_strategy", cfg.History.Strategy)

	return app.Serve(ctx, grpcLis, httpLis)
}

func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.GRPCAddress != "" {
		cfg.GRPCAddress = opts.GRPCAddress
	}

	if opts.HTTPAddress != "" {
		cfg.HTTPAddress = opts.HTTPAddress
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

// Serve runs the dispatcher, the scheduler and both transports until ctx is
// canceled, then stops them gracefully. httpLis may be nil.
//
//nolint:funlen // One goroutine per component reads best in one place.
func (a *App) Serve(ctx context.Context, grpcLis, httpLis net.Listener) error {
	sched, err := NewScheduler(a)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 4)
	fail := func(err error) {
		errs <- err
		cancel()
	}

	grpcServer := grpc.NewServer()
	pb.RegisterAlarmServiceServer(grpcServer, grpcalarm.NewServer(a.Controller, a.History, a.Audit))

	var httpServer *http.Server
	if httpLis != nil {
		httpServer = &http.Server{
			Handler: httpalarm.NewHandler(httpalarm.Options{
				Service: a.Controller,
				History: a.History,
				Audit:   a.Audit,
				Quota:   a.Quota,
				Clock:   a.Clock,
				Secret:  []byte(a.Config.Operator.JWTSecret),
			}),
			ReadHeaderTimeout: a.Config.Timeout,
		}
	}

	var wg sync.WaitGroup

	wg.Go(func() {
		if err := a.Dispatcher.Run(runCtx); err != nil {
			fail(fmt.Errorf("dispatcher: %w", err))
		}
	})

	wg.Go(func() {
		if err := sched.Run(runCtx); err != nil {
			fail(fmt.Errorf("scheduler: %w", err))
		}
	})

	wg.Go(func() {
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			fail(fmt.Errorf("serve gRPC: %w", err))
		}
	})

	if httpServer != nil {
		wg.Go(func() {
			if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail(fmt.Errorf("serve HTTP: %w", err))
			}
		})
	}

	logger.Info(ctx, "Boiler monitor running")

	<-runCtx.Done()
	logger.Info(ctx, "Shutting down")

	a.shutdown(ctx, grpcServer, httpServer)
	wg.Wait()

	close(errs)

	var result error
	for err := range errs {
		result = errors.Join(result, err)
	}

	logger.Info(ctx, "Boiler monitor stopped")

	return result
}

func (a *App) shutdown(ctx context.Context, grpcServer *grpc.Server, httpServer *http.Server) {
	stopped := make(chan struct{})

	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(a.Config.Timeout):
		logger.Warn(ctx, "gRPC graceful stop timed out, forcing")
		grpcServer.Stop()
	}

	if httpServer == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "HTTP shutdown incomplete", "error", err)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, logstore.DefaultDirMode); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	return nil
}
