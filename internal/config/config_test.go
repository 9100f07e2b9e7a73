package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "fleet", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, 80.0, cfg.Alert.TempThreshold)
	assert.Equal(t, 80.0, cfg.Alert.VibThreshold)
	assert.Equal(t, 3, cfg.Alert.MinStreak)
	assert.Equal(t, 120, cfg.Alert.WindowSeconds)

	assert.Equal(t, 15, cfg.Features.TempWindowMinutes)
	assert.Equal(t, 5, cfg.Features.VibWindowMinutes)
	assert.Equal(t, 60*time.Second, cfg.Features.FailureTolerance)
	assert.Equal(t, []int{3, 6, 12}, cfg.Features.RollingWindows)

	assert.Equal(t, "artifact", cfg.Prediction.Backend)
	assert.Equal(t, 0.5, cfg.Prediction.DefaultThreshold)
	assert.Equal(t, "fleet:alerts:stream", cfg.Notify.Stream)
	assert.False(t, cfg.MQTT.Enabled)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("ALERT_THRESH_TEMPERATURE", "75.5")
	t.Setenv("ALERT_MIN_STREAK", "5")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("FEATURE_ROLLING_WINDOWS", "2, 4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 75.5, cfg.Alert.TempThreshold)
	assert.Equal(t, 5, cfg.Alert.MinStreak)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, []int{2, 4}, cfg.Features.RollingWindows)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alert:
  temp_threshold: 90
  window_seconds: 60
features:
  failure_tolerance: 30s
prediction:
  backend: remote
  remote_url: http://models:8501
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ALERT_WINDOW_SECONDS", "45")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90.0, cfg.Alert.TempThreshold)
	assert.Equal(t, 80.0, cfg.Alert.VibThreshold)
	assert.Equal(t, 45, cfg.Alert.WindowSeconds)
	assert.Equal(t, 30*time.Second, cfg.Features.FailureTolerance)
	assert.Equal(t, "remote", cfg.Prediction.Backend)
	assert.Equal(t, "http://models:8501", cfg.Prediction.RemoteURL)
}

func TestLoad_InvalidStreak(t *testing.T) {
	os.Clearenv()
	t.Setenv("ALERT_MIN_STREAK", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_streak")
}

func TestLoad_UnknownBackend(t *testing.T) {
	os.Clearenv()
	t.Setenv("PREDICTION_BACKEND", "onnx")

	_, err := Load()
	require.Error(t, err)
}
