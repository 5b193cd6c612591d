package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/service/common"
)

// Options configures how boiler-ctl reaches the monitor.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides grpc_addr from config when specified.
	ServerAddress string

	// Out receives human-readable output.
	Out io.Writer
}

// DefaultPushInterval is the retry delay when pushing a state to the monitor.
const DefaultPushInterval = 1 * time.Second

// StateSetter is the part of the client SetState needs.
type StateSetter interface {
	SetState(ctx context.Context, actor *domain.Actor, target domain.State) (*domain.Status, error)
}

// connect loads settings and dials the monitor.
func connect(ctx context.Context, opts *Options) (*common.Client, *config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	address := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		address = opts.ServerAddress
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("dial monitor: %w", err)
	}

	return client, cfg, nil
}

// SetState pushes target (Active or Stopped) until the monitor confirms it.
func SetState(ctx context.Context, opts *Options, target domain.State) error {
	ctx = logger.WithName(ctx, "boiler-ctl")

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	current, err := PushState(ctx, client, actor, target, DefaultPushInterval)
	if err != nil {
		return err
	}

	fmt.Fprintln(opts.Out, FormatStatus(current))

	return nil
}

// PushState retries SetState every interval until the returned state equals
// target or ctx is done. Transport errors are logged and retried; a rejected
// request (InvalidArgument) is returned at once.
func PushState(
	ctx context.Context,
	setter StateSetter,
	actor *domain.Actor,
	target domain.State,
	interval time.Duration,
) (*domain.Status, error) {
	logger.InfoKV(ctx, "Pushing desired state", "state", target.String(), "actor", actor.String())

	// attempt tries once to change the state. It returns the confirmed status,
	// nil to retry, or an error that retrying cannot fix.
	attempt := func() (*domain.Status, error) {
		current, err := setter.SetState(ctx, actor, target)
		if err != nil {
			if status.Code(err) == codes.InvalidArgument {
				return nil, fmt.Errorf("monitor rejected %s: %w", target, err)
			}

			logger.ErrorKV(ctx, "SetState failed", "error", err)

			return nil, nil
		}

		if current.State != target {
			return nil, nil
		}

		return current, nil
	}

	if current, err := attempt(); current != nil || err != nil {
		return current, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if current, err := attempt(); current != nil || err != nil {
				return current, err
			}
		}
	}
}

// FormatStatus renders a one-line summary.
func FormatStatus(s *domain.Status) string {
	if s == nil {
		return "<nil status>"
	}

	temp := "--"
	if s.HasReading {
		temp = fmt.Sprintf("%.1fC", s.Temperature)
	}

	changed := "<unknown>"
	if !s.Changed.IsZero() {
		changed = s.Changed.Format(time.RFC3339)
	}

	by := "sensor"
	if s.LastActor != nil {
		by = s.LastActor.String()
	}

	return fmt.Sprintf("%s, temp %s, thresholds %.1fC/%.1fC, since %s by %s",
		s.State, temp, s.Thresholds.TriggerC, s.Thresholds.ResetC, changed, by)
}
