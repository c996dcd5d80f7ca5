package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type GatewayConfig struct {
	BaseURL        string  `yaml:"base_url"`
	FeedURL        string  `yaml:"feed_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
	Burst          int     `yaml:"burst"`
}

type StorageConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// SyncConfig holds polling intervals in seconds.
type SyncConfig struct {
	TimeSyncSeconds       int `yaml:"time_sync_seconds"`
	StatsSeconds          int `yaml:"stats_seconds"`
	RidesSeconds          int `yaml:"rides_seconds"`
	AvailableRidesSeconds int `yaml:"available_rides_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Dir    string `yaml:"dir"`
	Pretty bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:        "http://localhost:8000/api",
			TimeoutSeconds: 10,
			RateLimit:      20,
			Burst:          10,
		},
		Storage: StorageConfig{Dir: defaultStorageDir()},
		Sync: SyncConfig{
			TimeSyncSeconds:       300,
			StatsSeconds:          30,
			RidesSeconds:          15,
			AvailableRidesSeconds: 5,
		},
		Log: LogConfig{Level: "INFO"},
	}
}

// Load reads <CONFIG_DIR>/client.yaml (CONFIG_DIR defaults to ./config); ENV wins over the file.
// A missing file is not an error.
func Load() (Config, error) {
	return LoadDir(getEnv("CONFIG_DIR", "./config"))
}

func LoadDir(dir string) (Config, error) {
	cfg := Defaults()

	path := filepath.Join(dir, "client.yaml")
	raw, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.Gateway.BaseURL = getEnv("GATEWAY_URL", cfg.Gateway.BaseURL)
	cfg.Gateway.FeedURL = getEnv("GATEWAY_FEED_URL", cfg.Gateway.FeedURL)
	cfg.Gateway.TimeoutSeconds = getEnvInt("GATEWAY_TIMEOUT_SECONDS", cfg.Gateway.TimeoutSeconds)
	cfg.Gateway.RateLimit = getEnvFloat("GATEWAY_RATE_LIMIT", cfg.Gateway.RateLimit)
	cfg.Gateway.Burst = getEnvInt("GATEWAY_BURST", cfg.Gateway.Burst)

	cfg.Storage.Dir = getEnv("STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.InMemory = getEnvBool("STORAGE_IN_MEMORY", cfg.Storage.InMemory)

	cfg.Sync.TimeSyncSeconds = getEnvInt("SYNC_TIME_SECONDS", cfg.Sync.TimeSyncSeconds)
	cfg.Sync.StatsSeconds = getEnvInt("SYNC_STATS_SECONDS", cfg.Sync.StatsSeconds)
	cfg.Sync.RidesSeconds = getEnvInt("SYNC_RIDES_SECONDS", cfg.Sync.RidesSeconds)
	cfg.Sync.AvailableRidesSeconds = getEnvInt("SYNC_AVAILABLE_RIDES_SECONDS", cfg.Sync.AvailableRidesSeconds)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)
	cfg.Log.Pretty = getEnvBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", cfg.Metrics.Addr)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Gateway.BaseURL) == "" {
		return errors.New("gateway.base_url is required")
	}
	if !c.Storage.InMemory && strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage.dir is required unless storage.in_memory is set")
	}
	for name, v := range map[string]int{
		"sync.time_sync_seconds":       c.Sync.TimeSyncSeconds,
		"sync.stats_seconds":           c.Sync.StatsSeconds,
		"sync.rides_seconds":           c.Sync.RidesSeconds,
		"sync.available_rides_seconds": c.Sync.AvailableRidesSeconds,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func (s SyncConfig) TimeSync() time.Duration { return seconds(s.TimeSyncSeconds) }
func (s SyncConfig) Stats() time.Duration    { return seconds(s.StatsSeconds) }
func (s SyncConfig) Rides() time.Duration    { return seconds(s.RidesSeconds) }
func (s SyncConfig) AvailableRides() time.Duration {
	return seconds(s.AvailableRidesSeconds)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "cabconnect", "session")
	}
	return filepath.Join(".", ".cabconnect", "session")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
