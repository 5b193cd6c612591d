package client

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/boiler-alarm/internal/auth"
	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/service/common"
	"github.com/oshokin/boiler-alarm/internal/tui"
)

// errNoSecret is returned by Token when operator.jwt_secret is empty.
var errNoSecret = errors.New("operator.jwt_secret is not configured")

// Status prints the controller snapshot and the audit tail.
func Status(ctx context.Context, opts *Options, auditLines int) error {
	client, _, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(opts.Out, FormatStatus(status))

	if len(status.Phones) > 0 {
		fmt.Fprintln(opts.Out, "phones:", strings.Join(status.Phones, ", "))
	}

	if auditLines <= 0 {
		return nil
	}

	records, err := client.Audit(ctx)
	if err != nil {
		return err
	}

	for _, r := range records[:min(auditLines, len(records))] {
		fmt.Fprintln(opts.Out, r)
	}

	return nil
}

// History prints the newest limit rows, or a sparkline of them when width > 0.
func History(ctx context.Context, opts *Options, limit, width int) error {
	client, _, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	rows, err := client.History(ctx, limit)
	if err != nil {
		return err
	}

	if width <= 0 {
		for _, r := range rows {
			fmt.Fprintln(opts.Out, r)
		}

		return nil
	}

	status, err := client.Status(ctx)
	if err != nil {
		return err
	}

	values := tui.Values(rows)
	fmt.Fprintln(opts.Out, tui.Sparkline(values, width, status.Thresholds))

	if lo, hi, last, ok := tui.Summary(values); ok {
		fmt.Fprintf(opts.Out, "min %.1fC, max %.1fC, last %.1fC over %d samples\n", lo, hi, last, len(values))
	}

	return nil
}

// Watch runs the live terminal view.
func Watch(ctx context.Context, opts *Options, interval time.Duration) error {
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

	return tui.Run(ctx, tui.NewModel(client, actor, interval))
}

// Token prints an operator bearer token signed with operator.jwt_secret.
// Empty username or hostname default to the detected actor.
func Token(opts *Options, username, hostname string, ttl time.Duration) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Operator.JWTSecret == "" {
		return errNoSecret
	}

	if username == "" || hostname == "" {
		detected, err := common.DetectActor()
		if err != nil {
			return err
		}

		username = cmp.Or(username, detected.Username)
		hostname = cmp.Or(hostname, detected.Hostname)
	}

	if ttl <= 0 {
		ttl = cfg.Operator.TokenTTL
	}

	actor := &domain.Actor{Hostname: hostname, Username: username}

	token, err := auth.Issue([]byte(cfg.Operator.JWTSecret), actor, ttl, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(opts.Out, token)

	return nil
}
