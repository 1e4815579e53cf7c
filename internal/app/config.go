package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/utils"
)

// Config is resolved in three layers: built-in defaults, then an optional
// YAML file named by CONFIG_FILE, then environment variables on top. Env
// always wins so a field worker can override a packaged file.
type Config struct {
	LogMode   string
	DBPath    string
	StudentID string

	APIBaseURL  string
	HealthURL   string
	HTTPTimeout time.Duration

	NetProbeInterval time.Duration

	BaseSyncInterval       time.Duration
	LowBatterySyncInterval time.Duration
	LowBatteryLevel        float64
	CriticalBatteryLevel   float64

	LowTierCacheBudget  int64
	MidTierCacheBudget  int64
	HighTierCacheBudget int64

	MaxAssetAge        time.Duration
	MinFreeBytesLesson int64
	MinFreeBytesGame   int64
}

// duration lets YAML carry values like "2m" or "45s".
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the YAML overlay. Pointer fields distinguish "absent" from
// zero so a file only overrides what it names.
type fileConfig struct {
	LogMode                *string   `yaml:"log_mode"`
	DBPath                 *string   `yaml:"db_path"`
	StudentID              *string   `yaml:"student_id"`
	APIBaseURL             *string   `yaml:"api_base_url"`
	HealthURL              *string   `yaml:"health_url"`
	HTTPTimeout            *duration `yaml:"http_timeout"`
	NetProbeInterval       *duration `yaml:"net_probe_interval"`
	BaseSyncInterval       *duration `yaml:"base_sync_interval"`
	LowBatterySyncInterval *duration `yaml:"low_battery_sync_interval"`
	LowBatteryLevel        *float64  `yaml:"low_battery_level"`
	CriticalBatteryLevel   *float64  `yaml:"critical_battery_level"`
	LowTierCacheBudget     *int64    `yaml:"low_tier_cache_budget"`
	MidTierCacheBudget     *int64    `yaml:"mid_tier_cache_budget"`
	HighTierCacheBudget    *int64    `yaml:"high_tier_cache_budget"`
	MaxAssetAge            *duration `yaml:"max_asset_age"`
	MinFreeBytesLesson     *int64    `yaml:"min_free_bytes_lesson"`
	MinFreeBytesGame       *int64    `yaml:"min_free_bytes_game"`
}

func (f fileConfig) apply(cfg *Config) {
	if f.LogMode != nil {
		cfg.LogMode = *f.LogMode
	}
	if f.DBPath != nil {
		cfg.DBPath = *f.DBPath
	}
	if f.StudentID != nil {
		cfg.StudentID = *f.StudentID
	}
	if f.APIBaseURL != nil {
		cfg.APIBaseURL = *f.APIBaseURL
	}
	if f.HealthURL != nil {
		cfg.HealthURL = *f.HealthURL
	}
	if f.HTTPTimeout != nil {
		cfg.HTTPTimeout = time.Duration(*f.HTTPTimeout)
	}
	if f.NetProbeInterval != nil {
		cfg.NetProbeInterval = time.Duration(*f.NetProbeInterval)
	}
	if f.BaseSyncInterval != nil {
		cfg.BaseSyncInterval = time.Duration(*f.BaseSyncInterval)
	}
	if f.LowBatterySyncInterval != nil {
		cfg.LowBatterySyncInterval = time.Duration(*f.LowBatterySyncInterval)
	}
	if f.LowBatteryLevel != nil {
		cfg.LowBatteryLevel = *f.LowBatteryLevel
	}
	if f.CriticalBatteryLevel != nil {
		cfg.CriticalBatteryLevel = *f.CriticalBatteryLevel
	}
	if f.LowTierCacheBudget != nil {
		cfg.LowTierCacheBudget = *f.LowTierCacheBudget
	}
	if f.MidTierCacheBudget != nil {
		cfg.MidTierCacheBudget = *f.MidTierCacheBudget
	}
	if f.HighTierCacheBudget != nil {
		cfg.HighTierCacheBudget = *f.HighTierCacheBudget
	}
	if f.MaxAssetAge != nil {
		cfg.MaxAssetAge = time.Duration(*f.MaxAssetAge)
	}
	if f.MinFreeBytesLesson != nil {
		cfg.MinFreeBytesLesson = *f.MinFreeBytesLesson
	}
	if f.MinFreeBytesGame != nil {
		cfg.MinFreeBytesGame = *f.MinFreeBytesGame
	}
}

func defaultConfig() Config {
	return Config{
		LogMode:                "development",
		DBPath:                 "gramshiksha.db",
		APIBaseURL:             "http://localhost:8080/api",
		HealthURL:              "http://localhost:8080/api/health",
		HTTPTimeout:            30 * time.Second,
		NetProbeInterval:       15 * time.Second,
		BaseSyncInterval:       time.Minute,
		LowBatterySyncInterval: 5 * time.Minute,
		LowBatteryLevel:        0.20,
		CriticalBatteryLevel:   0.10,
		LowTierCacheBudget:     10 * 1024 * 1024,
		MidTierCacheBudget:     25 * 1024 * 1024,
		HighTierCacheBudget:    50 * 1024 * 1024,
		MaxAssetAge:            30 * 24 * time.Hour,
		MinFreeBytesLesson:     1 * 1024 * 1024,
		MinFreeBytesGame:       5 * 1024 * 1024,
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()

	if path := utils.GetEnv("CONFIG_FILE", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		var overlay fileConfig
		if err := yaml.Unmarshal(raw, &overlay); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		overlay.apply(&cfg)
		log.Info("Loaded config file", "path", path)
	}

	cfg.LogMode = utils.GetEnv("LOG_MODE", cfg.LogMode, log)
	cfg.DBPath = utils.GetEnv("DB_PATH", cfg.DBPath, log)
	cfg.StudentID = utils.GetEnv("STUDENT_ID", cfg.StudentID, log)
	cfg.APIBaseURL = utils.GetEnv("API_BASE_URL", cfg.APIBaseURL, log)
	cfg.HealthURL = utils.GetEnv("HEALTH_URL", cfg.HealthURL, log)
	cfg.HTTPTimeout = utils.GetEnvAsDuration("HTTP_TIMEOUT", cfg.HTTPTimeout, log)
	cfg.NetProbeInterval = utils.GetEnvAsDuration("NET_PROBE_INTERVAL", cfg.NetProbeInterval, log)
	cfg.BaseSyncInterval = utils.GetEnvAsDuration("BASE_SYNC_INTERVAL", cfg.BaseSyncInterval, log)
	cfg.LowBatterySyncInterval = utils.GetEnvAsDuration("LOW_BATTERY_SYNC_INTERVAL", cfg.LowBatterySyncInterval, log)
	cfg.LowBatteryLevel = utils.GetEnvAsFloat("LOW_BATTERY_LEVEL", cfg.LowBatteryLevel, log)
	cfg.CriticalBatteryLevel = utils.GetEnvAsFloat("CRITICAL_BATTERY_LEVEL", cfg.CriticalBatteryLevel, log)
	cfg.LowTierCacheBudget = utils.GetEnvAsInt64("LOW_TIER_CACHE_BUDGET", cfg.LowTierCacheBudget, log)
	cfg.MidTierCacheBudget = utils.GetEnvAsInt64("MID_TIER_CACHE_BUDGET", cfg.MidTierCacheBudget, log)
	cfg.HighTierCacheBudget = utils.GetEnvAsInt64("HIGH_TIER_CACHE_BUDGET", cfg.HighTierCacheBudget, log)
	cfg.MaxAssetAge = utils.GetEnvAsDuration("MAX_ASSET_AGE", cfg.MaxAssetAge, log)
	cfg.MinFreeBytesLesson = utils.GetEnvAsInt64("MIN_FREE_BYTES_LESSON", cfg.MinFreeBytesLesson, log)
	cfg.MinFreeBytesGame = utils.GetEnvAsInt64("MIN_FREE_BYTES_GAME", cfg.MinFreeBytesGame, log)

	if cfg.StudentID == "" {
		return Config{}, fmt.Errorf("STUDENT_ID is required")
	}
	return cfg, nil
}
