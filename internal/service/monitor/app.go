package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/boiler-alarm/internal/clock"
	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/logstore"
	"github.com/oshokin/boiler-alarm/internal/repository/settings"
	"github.com/oshokin/boiler-alarm/internal/sensor"
	"github.com/oshokin/boiler-alarm/internal/service/alarm"
	"github.com/oshokin/boiler-alarm/internal/service/quota"
	"github.com/oshokin/boiler-alarm/internal/sms"
)

// Files inside the data directory.
const (
	AuditFilename    = "audit.log"
	HistoryFilename  = "history.csv"
	HistoryDirname   = "history"
	SettingsFilename = "settings.json"
)

// Overrides replaces collaborators, mainly for tests. Zero fields use the
// configured defaults.
type Overrides struct {
	Clock    clock.Clock
	Reader   sensor.Reader
	Notifier alarm.Notifier
}

// App is the daemon's context object.
type App struct {
	Config     *config.Config
	Clock      clock.Clock
	Poller     *sensor.Poller
	Audit      logstore.Store
	History    logstore.Store
	Settings   settings.Store
	Quota      *quota.Quota
	Dispatcher *alarm.Dispatcher
	Controller *alarm.Controller
}

// NewApp opens every store and builds the controller. Any failure aborts startup.
//
//nolint:funlen // Linear wiring.
func NewApp(ctx context.Context, cfg *config.Config, o Overrides) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, logstore.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	clk := o.Clock
	if clk == nil {
		local, err := clock.NewLocal(cfg.Timezone)
		if err != nil {
			return nil, err
		}

		clk = local
	}

	reader := o.Reader
	if reader == nil {
		r, err := sensor.New(cfg.Sensor.Kind, cfg.Sensor.Path)
		if err != nil {
			return nil, err
		}

		reader = r
	}

	audit, err := logstore.OpenRewrite(ctx, "audit",
		filepath.Join(cfg.DataDir, AuditFilename), cfg.Audit.Capacity, logstore.KeepNewest)
	if err != nil {
		return nil, fmt.Errorf("open audit: %w", err)
	}

	history, err := OpenHistory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	store := settings.NewFileRepository(filepath.Join(cfg.DataDir, SettingsFilename))

	q, err := quota.New(store, clk, cfg.Quota.DailyLimit())
	if err != nil {
		return nil, err
	}

	dispatcher, err := alarm.NewDispatcher(alarm.DispatcherOptions{
		Notifier:   notifier(ctx, cfg, o.Notifier),
		Audit:      audit,
		Clock:      clk,
		Template:   cfg.SMS.Template,
		Attempts:   cfg.SMS.Attempts,
		RetryDelay: cfg.SMS.RetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	controller, err := alarm.NewController(ctx, alarm.Options{
		Audit:      audit,
		Settings:   store,
		Quota:      q,
		Dispatcher: dispatcher,
		Clock:      clk,
		Caller:     cfg.Alarm.Caller,
		Range:      domain.Range{MinC: cfg.Alarm.MinTempC, MaxC: cfg.Alarm.MaxTempC},
		Defaults:   domain.Thresholds{TriggerC: cfg.Alarm.TriggerC, ResetC: cfg.Alarm.ResetC},
	})
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	return &App{
		Config:     cfg,
		Clock:      clk,
		Poller:     sensor.NewPoller(reader),
		Audit:      audit,
		History:    history,
		Settings:   store,
		Quota:      q,
		Dispatcher: dispatcher,
		Controller: controller,
	}, nil
}

// errUnknownStrategy is returned for history strategies config does not know.
var errUnknownStrategy = errors.New("unknown history strategy")

// OpenHistory opens the history store selected by cfg.History.Strategy.
func OpenHistory(ctx context.Context, cfg *config.Config) (logstore.Store, error) {
	var (
		store logstore.Store
		err   error
		h     = cfg.History
	)

	switch h.Strategy {
	case config.StrategyRotation:
		store, err = logstore.OpenRotation(ctx, "history", filepath.Join(cfg.DataDir, HistoryDirname), h.Files, h.PerFile)
	case config.StrategyWatermark:
		store, err = logstore.OpenWatermark(ctx, "history", filepath.Join(cfg.DataDir, HistoryFilename), h.SoftWatermark(), h.KeepHard)
	case config.StrategyRewrite:
		store, err = logstore.OpenRewrite(ctx, "history", filepath.Join(cfg.DataDir, HistoryFilename), h.Capacity, logstore.KeepLast)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStrategy, h.Strategy)
	}

	if err != nil {
		return nil, err
	}

	return store, nil
}

func notifier(ctx context.Context, cfg *config.Config, override alarm.Notifier) alarm.Notifier {
	if override != nil {
		return override
	}

	if !cfg.SMS.Enabled() {
		logger.Warn(ctx, "SMS portal not configured, notifications will only be logged")

		return logNotifier{}
	}

	return sms.NewPortal(sms.Config{
		BaseURL:  cfg.SMS.BaseURL,
		LoginURL: cfg.SMS.LoginURL,
		Username: cfg.SMS.Username,
		Password: cfg.SMS.Password,
		Timeout:  cfg.SMS.Timeout,
	})
}

// logNotifier stands in for the portal when none is configured.
type logNotifier struct{}

func (logNotifier) Deliver(ctx context.Context, recipient, message string) error {
	logger.WarnKV(ctx, "SMS not sent, portal not configured", "recipient", recipient, "message", message)

	return nil
}
