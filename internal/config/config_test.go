package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Bad socket.
	settings := &Config{
		GRPCAddress: "bad:address",
	}
	require.Error(t, Validate(settings))

	settings = &Config{HTTPAddress: "nope:nope"}
	require.Error(t, Validate(settings))

	settings = &Config{History: History{Strategy: "ring"}}
	require.ErrorIs(t, Validate(settings), errUnknownStrategy)

	settings = &Config{History: History{Strategy: StrategyWatermark, KeepSoft: intPtr(10), KeepHard: 10}}
	require.ErrorIs(t, Validate(settings), errBadRetention)

	settings = &Config{Alarm: Alarm{TriggerC: 66, ResetC: 60}}
	require.ErrorIs(t, Validate(settings), errBadRange)

	settings = &Config{History: History{KeepSoft: intPtr(-1)}}
	require.ErrorIs(t, Validate(settings), errBadRetention)

	settings = &Config{Quota: Quota{Limit: intPtr(-1)}}
	require.ErrorIs(t, Validate(settings), errBadQuota)

	settings = &Config{SMS: SMS{BaseURL: "not a url"}}
	require.Error(t, Validate(settings))
}

// TestValidate_Defaults fills every optional field.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	settings := new(Config)
	require.NoError(t, Validate(settings))

	require.Equal(t, DefaultGRPCAddress, settings.GRPCAddress)
	require.Equal(t, DefaultDataDir, settings.DataDir)
	require.Equal(t, DefaultTimezone, settings.Timezone)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, 15*time.Second, settings.Sensor.PollInterval)
	require.Equal(t, StrategyRotation, settings.History.Strategy)
	require.Equal(t, 14, settings.History.Files)
	require.Equal(t, 300, settings.History.PerFile)
	require.Equal(t, 864, *settings.History.KeepSoft)
	require.Equal(t, 5, *settings.Quota.Limit)
	require.Equal(t, 1008, settings.History.KeepHard)
	require.Equal(t, 50, settings.Audit.Capacity)
	require.InDelta(t, 60.0, settings.Alarm.TriggerC, 1e-9)
	require.InDelta(t, 66.0, settings.Alarm.ResetC, 1e-9)
	require.Equal(t, 3, settings.SMS.Attempts)
	require.False(t, settings.SMS.Enabled())

	// A small hard watermark pulls the soft one below it.
	settings = &Config{History: History{Strategy: StrategyWatermark, KeepHard: 100}}
	require.NoError(t, Validate(settings))
	require.Equal(t, 99, *settings.History.KeepSoft)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		GRPCAddress: "127.0.0.1:50051",
		HTTPAddress: "127.0.0.1:8080",
		SMS: SMS{
			BaseURL:  "https://mano.labas.lt/siusti-sms",
			LoginURL: "https://mano.labas.lt/prisijungti",
			Username: "user",
			Password: "secret",
		},
		History: History{Strategy: StrategyWatermark},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
	require.True(t, loaded.SMS.Enabled())

	// File exists with restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_YAML parses a hand-written file.
func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grpc_addr: 127.0.0.1:6000
data_dir: /var/lib/boiler
sensor:
  kind: hwmon
  path: /sys/class/hwmon/hwmon0/temp1_input
  poll_interval: 30s
history:
  strategy: rewrite
  capacity: 120
alarm:
  trigger_c: 55
  reset_c: 62.5
quota:
  limit: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "hwmon", cfg.Sensor.Kind)
	require.Equal(t, 30*time.Second, cfg.Sensor.PollInterval)
	require.Equal(t, 120, cfg.History.Capacity)
	require.InDelta(t, 62.5, cfg.Alarm.ResetC, 1e-9)
	require.Equal(t, 2, cfg.Quota.DailyLimit())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoad_ExplicitZeros keeps zeros that mean something instead of defaulting them.
func TestLoad_ExplicitZeros(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
history:
  strategy: watermark
  keep_soft: 0
  keep_hard: 50
quota:
  limit: 0
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Quota.DailyLimit())
	require.Equal(t, 0, cfg.History.SoftWatermark())
	require.Equal(t, 50, cfg.History.KeepHard)

	// Omitted keys still take the defaults.
	require.Equal(t, 5, Quota{}.DailyLimit())
	require.Equal(t, 49, History{KeepHard: 50}.SoftWatermark())
}
