package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		Debug    bool    `yaml:"debug"`
		Admins   []int64 `yaml:"admins"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		OpenHour          int    `yaml:"open_hour"`
		CloseHour         int    `yaml:"close_hour"`
		SlotCapacity      int    `yaml:"slot_capacity"`
		Timezone          string `yaml:"timezone"`
		CancelWindowHours int    `yaml:"cancel_window_hours"`
	} `yaml:"booking"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/stadion.db"
	}
	if cfg.Booking.OpenHour == 0 {
		cfg.Booking.OpenHour = 9
	}
	if cfg.Booking.CloseHour == 0 {
		cfg.Booking.CloseHour = 23
	}
	if cfg.Booking.SlotCapacity <= 0 {
		cfg.Booking.SlotCapacity = 2
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Asia/Tashkent"
	}
	if cfg.Booking.CancelWindowHours <= 0 {
		cfg.Booking.CancelWindowHours = 3
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CancelWindow is how long before slot start a user-initiated
// cancellation is still accepted.
func (c *Config) CancelWindow() time.Duration {
	return time.Duration(c.Booking.CancelWindowHours) * time.Hour
}

// CacheTTL returns the slot-listing cache TTL; zero disables the cache.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// IsAdmin reports whether id is in the static admin allow-list.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.Telegram.Admins {
		if a == id {
			return true
		}
	}
	return false
}
