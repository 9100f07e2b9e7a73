package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/common/config"

	"gopkg.in/yaml.v3"
)

// Config is the fleet-monitor configuration.
// Precedence: defaults, then the YAML file named by CONFIG_FILE, then environment.
type Config struct {
	HTTP struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"http"`

	Database config.DatabaseConfig `yaml:"database"`
	Redis    config.RedisConfig    `yaml:"redis"`

	MQTT struct {
		config.MQTTConfig `yaml:",inline"`
		Enabled           bool   `yaml:"enabled"`
		Topic             string `yaml:"topic"`
	} `yaml:"mqtt"`

	Alert      AlertConfig      `yaml:"alert"`
	Features   FeaturesConfig   `yaml:"features"`
	Prediction PredictionConfig `yaml:"prediction"`

	Notify struct {
		Enabled bool   `yaml:"enabled"`
		Stream  string `yaml:"stream"`
		MaxLen  int64  `yaml:"max_len"`
	} `yaml:"notify"`

	Seed struct {
		WaitAttempts int           `yaml:"wait_attempts"`
		WaitDelay    time.Duration `yaml:"wait_delay"`
	} `yaml:"seed"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// AlertConfig drives the threshold resolver and the streak detector.
type AlertConfig struct {
	TempThreshold float64 `yaml:"temp_threshold"`
	VibThreshold  float64 `yaml:"vib_threshold"`
	MinStreak     int     `yaml:"min_streak"`
	WindowSeconds int     `yaml:"window_seconds"`
}

// FeaturesConfig drives live snapshots and dataset construction.
type FeaturesConfig struct {
	TempWindowMinutes int           `yaml:"temp_window_minutes"`
	VibWindowMinutes  int           `yaml:"vib_window_minutes"`
	FailureTolerance  time.Duration `yaml:"failure_tolerance"`
	HorizonHours      int           `yaml:"horizon_hours"`
	RollingWindows    []int         `yaml:"rolling_windows"`
	RiskHigh          float64       `yaml:"risk_high"`
	RiskMedium        float64       `yaml:"risk_medium"`
}

// PredictionConfig selects and locates the model backend.
type PredictionConfig struct {
	Backend          string        `yaml:"backend"` // artifact | remote
	ModelDir         string        `yaml:"model_dir"`
	StateArtifact    string        `yaml:"state_artifact"`
	FailureArtifact  string        `yaml:"failure_artifact"`
	RemoteURL        string        `yaml:"remote_url"`
	StateModel       string        `yaml:"state_model"`
	FailureModel     string        `yaml:"failure_model"`
	Timeout          time.Duration `yaml:"timeout"`
	DefaultThreshold float64       `yaml:"default_threshold"`
}

// Load builds the configuration.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}

	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.ReadTimeout = 15 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "fleet",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "fleet-monitor"
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = "fleet/sensors/+/readings"

	cfg.Alert = AlertConfig{
		TempThreshold: 80,
		VibThreshold:  80,
		MinStreak:     3,
		WindowSeconds: 120,
	}
	cfg.Features = FeaturesConfig{
		TempWindowMinutes: 15,
		VibWindowMinutes:  5,
		FailureTolerance:  60 * time.Second,
		HorizonHours:      24,
		RollingWindows:    []int{3, 6, 12},
		RiskHigh:          0.7,
		RiskMedium:        0.4,
	}
	cfg.Prediction = PredictionConfig{
		Backend:          "artifact",
		ModelDir:         "models",
		StateArtifact:    "state_model.json",
		FailureArtifact:  "failure_model.json",
		StateModel:       "equipment-state",
		FailureModel:     "failure-24h",
		Timeout:          5 * time.Second,
		DefaultThreshold: 0.5,
	}

	cfg.Notify.Enabled = true
	cfg.Notify.Stream = "fleet:alerts:stream"
	cfg.Notify.MaxLen = 10000

	cfg.Seed.WaitAttempts = 30
	cfg.Seed.WaitDelay = 2 * time.Second

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Database.LoadFromEnv("DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)

	cfg.Alert.TempThreshold = getEnvFloat("ALERT_THRESH_TEMPERATURE", cfg.Alert.TempThreshold)
	cfg.Alert.VibThreshold = getEnvFloat("ALERT_THRESH_VIBRATION", cfg.Alert.VibThreshold)
	cfg.Alert.MinStreak = getEnvInt("ALERT_MIN_STREAK", cfg.Alert.MinStreak)
	cfg.Alert.WindowSeconds = getEnvInt("ALERT_WINDOW_SECONDS", cfg.Alert.WindowSeconds)

	cfg.Features.TempWindowMinutes = getEnvInt("FEATURE_TEMP_WINDOW_MINUTES", cfg.Features.TempWindowMinutes)
	cfg.Features.VibWindowMinutes = getEnvInt("FEATURE_VIB_WINDOW_MINUTES", cfg.Features.VibWindowMinutes)
	cfg.Features.HorizonHours = getEnvInt("FEATURE_HORIZON_HOURS", cfg.Features.HorizonHours)
	cfg.Features.RiskHigh = getEnvFloat("RISK_THRESH_HIGH", cfg.Features.RiskHigh)
	cfg.Features.RiskMedium = getEnvFloat("RISK_THRESH_MED", cfg.Features.RiskMedium)
	if v := os.Getenv("FEATURE_ROLLING_WINDOWS"); v != "" {
		if windows, err := parseIntList(v); err == nil {
			cfg.Features.RollingWindows = windows
		}
	}

	cfg.Prediction.Backend = getEnv("PREDICTION_BACKEND", cfg.Prediction.Backend)
	cfg.Prediction.ModelDir = getEnv("MODEL_DIR", cfg.Prediction.ModelDir)
	cfg.Prediction.RemoteURL = getEnv("MODEL_SERVER_URL", cfg.Prediction.RemoteURL)
	cfg.Prediction.DefaultThreshold = getEnvFloat("PREDICTION_THRESHOLD", cfg.Prediction.DefaultThreshold)

	cfg.Notify.Enabled = getEnvBool("NOTIFY_ENABLED", cfg.Notify.Enabled)
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", cfg.Notify.Stream)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate rejects configurations the detector and aggregator cannot run with.
func (c *Config) Validate() error {
	if c.Alert.MinStreak < 1 {
		return fmt.Errorf("alert.min_streak must be >= 1, got %d", c.Alert.MinStreak)
	}
	if c.Alert.WindowSeconds < 0 {
		return fmt.Errorf("alert.window_seconds must be >= 0, got %d", c.Alert.WindowSeconds)
	}
	for _, w := range c.Features.RollingWindows {
		if w < 1 {
			return fmt.Errorf("features.rolling_windows must be positive, got %d", w)
		}
	}
	switch c.Prediction.Backend {
	case "artifact", "remote":
	default:
		return fmt.Errorf("unknown prediction backend %q", c.Prediction.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
