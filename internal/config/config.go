package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the boiler monitor and its control client.
type Config struct {
	// GRPCAddress is the gRPC listen/dial address.
	GRPCAddress string `yaml:"grpc_addr"`
	// HTTPAddress is the web listen address; empty disables the web server.
	HTTPAddress string `yaml:"http_addr"`
	// DataDir holds the audit log, history, settings and the pid file.
	DataDir string `yaml:"data_dir"`
	// Timezone is the IANA zone used for history timestamps and quota days.
	Timezone string `yaml:"timezone"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
	// Timeout is the duration for RPC calls and graceful shutdown.
	Timeout time.Duration `yaml:"timeout"`

	Sensor   Sensor   `yaml:"sensor"`
	History  History  `yaml:"history"`
	Audit    Audit    `yaml:"audit"`
	Alarm    Alarm    `yaml:"alarm"`
	SMS      SMS      `yaml:"sms"`
	Quota    Quota    `yaml:"quota"`
	Operator Operator `yaml:"operator"`
}

// Sensor selects the temperature source.
type Sensor struct {
	// Kind is w1, hwmon or file.
	Kind string `yaml:"kind"`
	// Path is the w1_slave, temp*_input or plain file to read.
	Path string `yaml:"path"`
	// PollInterval is how often the sensor is read.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// History configures the time-series store.
type History struct {
	// Strategy is rotation, watermark or rewrite.
	Strategy string `yaml:"strategy"`
	// Interval is how often a sample is appended.
	Interval time.Duration `yaml:"interval"`
	// Files and PerFile size the rotation strategy.
	Files   int `yaml:"files"`
	PerFile int `yaml:"per_file"`
	// KeepSoft and KeepHard size the watermark strategy. An explicit zero
	// KeepSoft empties the file on every compaction; nil takes the default.
	KeepSoft *int `yaml:"keep_soft,omitempty"`
	KeepHard int  `yaml:"keep_hard"`
	// Capacity sizes the rewrite strategy.
	Capacity int `yaml:"capacity"`
}

// Audit sizes the audit trail.
type Audit struct {
	Capacity int `yaml:"capacity"`
}

// Alarm holds the hysteresis defaults and bounds.
type Alarm struct {
	TriggerC float64 `yaml:"trigger_c"`
	ResetC   float64 `yaml:"reset_c"`
	MinTempC float64 `yaml:"min_temp_c"`
	MaxTempC float64 `yaml:"max_temp_c"`
	// Caller names automatic transitions in the audit trail.
	Caller string `yaml:"caller"`
}

// SMS holds the operator portal settings.
type SMS struct {
	BaseURL    string        `yaml:"base_url"`
	LoginURL   string        `yaml:"login_url"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	// Template is a text/template for the message body.
	Template string `yaml:"template"`
}

// Quota caps notifications per day.
type Quota struct {
	// Limit is the daily SMS allowance; zero disables SMS, nil takes the default.
	Limit *int `yaml:"limit,omitempty"`
}

// DailyLimit returns Limit, or the default when it is unset.
func (q Quota) DailyLimit() int {
	if q.Limit == nil {
		return defaultQuotaLimit
	}

	return *q.Limit
}

// SoftWatermark returns KeepSoft, or the default below KeepHard when it is unset.
func (h History) SoftWatermark() int {
	if h.KeepSoft == nil {
		return min(defaultKeepSoft, h.KeepHard-1)
	}

	return *h.KeepSoft
}

// Operator configures bearer tokens for the HTTP API.
type Operator struct {
	// JWTSecret signs operator tokens; empty disables the operator API.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// History strategies.
const (
	StrategyRotation  = "rotation"
	StrategyWatermark = "watermark"
	StrategyRewrite   = "rewrite"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "boiler-settings.yaml"

	// DefaultGRPCAddress is the default gRPC endpoint.
	DefaultGRPCAddress = "127.0.0.1:50051"

	// DefaultDataDir is where runtime files live by default.
	DefaultDataDir = "data"

	// DefaultTimezone matches the household's location.
	DefaultTimezone = "Europe/Vilnius"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	defaultLogLevel       = "info"
	defaultSensorKind     = "w1"
	defaultPollInterval   = 15 * time.Second
	defaultHistoryEvery   = 5 * time.Minute
	defaultHistoryFiles   = 14
	defaultHistoryPerFile = 300
	defaultKeepSoft       = 864
	defaultKeepHard       = 1008
	defaultHistoryCap     = 300
	defaultAuditCapacity  = 50
	defaultTriggerC       = 60
	defaultResetC         = 66
	defaultMinTempC       = 5
	defaultMaxTempC       = 95
	defaultSMSAttempts    = 3
	defaultRetryDelay     = 5 * time.Second
	defaultSMSTimeout     = 15 * time.Second
	defaultQuotaLimit     = 5
	defaultTokenTTL       = 30 * 24 * time.Hour
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownStrategy is returned for unsupported history strategies.
	errUnknownStrategy = errors.New("unknown history strategy")
	// errBadRange is returned when thresholds or their bounds are inconsistent.
	errBadRange = errors.New("inconsistent temperature range")
	// errBadRetention is returned for unusable history sizes.
	errBadRetention = errors.New("invalid history retention")
	// errBadQuota is returned for a negative daily limit.
	errBadQuota = errors.New("invalid quota limit")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file holds portal credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills defaults.
//
//nolint:cyclop,funlen // Flat list of independent defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.GRPCAddress == "" {
		settings.GRPCAddress = DefaultGRPCAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.GRPCAddress); err != nil {
		return fmt.Errorf("invalid grpc socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http socket: %w", err)
		}
	}

	if settings.DataDir == "" {
		settings.DataDir = DefaultDataDir
	}

	if settings.Timezone == "" {
		settings.Timezone = DefaultTimezone
	}

	if settings.LogLevel == "" {
		settings.LogLevel = defaultLogLevel
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Sensor.Kind == "" {
		settings.Sensor.Kind = defaultSensorKind
	}

	if settings.Sensor.PollInterval <= 0 {
		settings.Sensor.PollInterval = defaultPollInterval
	}

	if err := validateHistory(&settings.History); err != nil {
		return err
	}

	if settings.Audit.Capacity <= 0 {
		settings.Audit.Capacity = defaultAuditCapacity
	}

	if err := validateAlarm(&settings.Alarm); err != nil {
		return err
	}

	if err := validateSMS(&settings.SMS); err != nil {
		return err
	}

	if settings.Quota.Limit != nil && *settings.Quota.Limit < 0 {
		return fmt.Errorf("%w: %d", errBadQuota, *settings.Quota.Limit)
	}

	settings.Quota.Limit = intPtr(settings.Quota.DailyLimit())

	if settings.Operator.TokenTTL <= 0 {
		settings.Operator.TokenTTL = defaultTokenTTL
	}

	return nil
}

func validateHistory(h *History) error {
	if h.Strategy == "" {
		h.Strategy = StrategyRotation
	}

	if h.Interval <= 0 {
		h.Interval = defaultHistoryEvery
	}

	if h.Files <= 0 {
		h.Files = defaultHistoryFiles
	}

	if h.PerFile <= 0 {
		h.PerFile = defaultHistoryPerFile
	}

	if h.KeepHard <= 0 {
		h.KeepHard = defaultKeepHard
	}

	if h.KeepSoft != nil && *h.KeepSoft < 0 {
		return fmt.Errorf("%w: keep_soft %d is negative", errBadRetention, *h.KeepSoft)
	}

	h.KeepSoft = intPtr(h.SoftWatermark())

	if h.Capacity <= 0 {
		h.Capacity = defaultHistoryCap
	}

	switch h.Strategy {
	case StrategyRotation, StrategyRewrite:
	case StrategyWatermark:
		if *h.KeepSoft >= h.KeepHard {
			return fmt.Errorf("%w: keep_soft %d must be below keep_hard %d", errBadRetention, *h.KeepSoft, h.KeepHard)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStrategy, h.Strategy)
	}

	return nil
}

func validateAlarm(a *Alarm) error {
	if a.MinTempC == 0 && a.MaxTempC == 0 {
		a.MinTempC, a.MaxTempC = defaultMinTempC, defaultMaxTempC
	}

	if a.TriggerC == 0 && a.ResetC == 0 {
		a.TriggerC, a.ResetC = defaultTriggerC, defaultResetC
	}

	if a.MinTempC >= a.MaxTempC {
		return fmt.Errorf("%w: min %.1f, max %.1f", errBadRange, a.MinTempC, a.MaxTempC)
	}

	if a.ResetC < a.TriggerC {
		return fmt.Errorf("%w: reset %.1f below trigger %.1f", errBadRange, a.ResetC, a.TriggerC)
	}

	return nil
}

func validateSMS(s *SMS) error {
	if s.Attempts <= 0 {
		s.Attempts = defaultSMSAttempts
	}

	if s.RetryDelay <= 0 {
		s.RetryDelay = defaultRetryDelay
	}

	if s.Timeout <= 0 {
		s.Timeout = defaultSMSTimeout
	}

	for name, raw := range map[string]string{"base_url": s.BaseURL, "login_url": s.LoginURL} {
		if raw == "" {
			continue
		}

		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid sms %s: %w", name, err)
		}
	}

	return nil
}

// Enabled reports whether the portal is configured well enough to send.
func (s SMS) Enabled() bool {
	return s.BaseURL != "" && s.LoginURL != "" && s.Username != ""
}

func intPtr(v int) *int {
	return &v
}
