package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the tracker bot.
type Config struct {
	TelegramToken   string        `yaml:"telegram_token"`
	DatabaseURL     string        `yaml:"database_url"`
	StorageKey      string        `yaml:"storage_key"`
	Timezone        string        `yaml:"timezone"`
	ReportInterval  time.Duration `yaml:"-"`
	ReportHours     int           `yaml:"report_interval_hours"`
	ReportAt        string        `yaml:"report_at"`
	ReminderHours   int           `yaml:"reminder_hours"`
	ReminderMinutes int           `yaml:"reminder_minutes"`
	LogLevel        string        `yaml:"log_level"`
	LogEnv          string        `yaml:"log_env"`
	LogFile         string        `yaml:"log_file"`
	MetricsAddr     string        `yaml:"metrics_addr"`

	Location *time.Location `yaml:"-"`
}

// Load reads the optional YAML file named by TRACKER_CONFIG, applies
// environment overrides and fills defaults.
func Load() (Config, error) {
	cfg := Config{ReminderMinutes: -1, ReminderHours: -1}

	if path := strings.TrimSpace(os.Getenv("TRACKER_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.StorageKey, "STORAGE_KEY")
	overrideString(&cfg.Timezone, "TIMEZONE")
	overrideString(&cfg.ReportAt, "REPORT_AT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogEnv, "LOG_ENV")
	overrideString(&cfg.LogFile, "LOG_FILE")
	overrideString(&cfg.MetricsAddr, "METRICS_ADDR")
	overrideInt(&cfg.ReminderHours, "REMINDER_HOURS")
	overrideInt(&cfg.ReminderMinutes, "REMINDER_MINUTES")

	cfg.ReportInterval = parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")))
	if cfg.ReportInterval == 0 && cfg.ReportHours > 0 {
		cfg.ReportInterval = time.Duration(cfg.ReportHours) * time.Hour
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_tracker.db"
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = "sessions"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}
	if cfg.ReminderHours < 0 {
		cfg.ReminderHours = 0
	}
	if cfg.ReminderMinutes < 0 {
		cfg.ReminderMinutes = 5
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return
	}
	*dst = n
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
