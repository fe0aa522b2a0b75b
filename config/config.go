package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Environment string            `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Fetcher     FetcherConfig     `yaml:"fetcher"`
	FlareSolver FlareSolverConfig `yaml:"flaresolverr"`
	Worker      WorkerConfig      `yaml:"worker"`
	Database    DatabaseConfig    `yaml:"database"`
	Telegram    TelegramConfig    `yaml:"telegram"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// FetcherConfig holds settings for the VOE site fetcher.
type FetcherConfig struct {
	BaseURL        string        `yaml:"base_url"`
	UserAgent      string        `yaml:"user_agent"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
	MaxRetries     int           `yaml:"max_retries"`
	BaseDelayMS    int           `yaml:"base_delay_ms"`
	BaseDelay      time.Duration `yaml:"-"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	RetryStatuses  []int         `yaml:"retry_statuses"`
}

// FlareSolverConfig holds settings for the FlareSolverr challenge proxy.
type FlareSolverConfig struct {
	URL            string        `yaml:"url"`
	Session        string        `yaml:"session"`
	OperatingMode  string        `yaml:"operating_mode"` // "direct" or "proxy"
	MaxTimeoutMS   int           `yaml:"max_timeout_ms"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// WorkerConfig holds settings for the change-detection worker.
type WorkerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	MaxDays         int           `yaml:"max_days"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// TelegramConfig holds the bot credentials and outbound send rate limit.
type TelegramConfig struct {
	Token          string  `yaml:"token"`
	SendRatePerSec float64 `yaml:"send_rate_per_sec"`
	SendBurst      int     `yaml:"send_burst"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	// The bot token may come from the environment in deployments where the
	// config file is checked in.
	if env := os.Getenv("TELEGRAM_TOKEN"); env != "" {
		cfg.Telegram.Token = env
	}

	if cfg.Fetcher.BaseURL == "" {
		cfg.Fetcher.BaseURL = "https://www.voe.com.ua"
	}
	if cfg.Fetcher.MaxConcurrent <= 0 {
		cfg.Fetcher.MaxConcurrent = 3
	}
	if cfg.Fetcher.MaxRetries <= 0 {
		cfg.Fetcher.MaxRetries = 4
	}
	if cfg.Fetcher.BaseDelayMS <= 0 {
		cfg.Fetcher.BaseDelayMS = 1000
	}
	cfg.Fetcher.BaseDelay = time.Duration(cfg.Fetcher.BaseDelayMS) * time.Millisecond
	if cfg.Fetcher.TimeoutSeconds <= 0 {
		cfg.Fetcher.TimeoutSeconds = 150
	}
	cfg.Fetcher.Timeout = time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second
	if len(cfg.Fetcher.RetryStatuses) == 0 {
		cfg.Fetcher.RetryStatuses = []int{500, 502, 503, 504}
	}

	if cfg.FlareSolver.OperatingMode == "" {
		cfg.FlareSolver.OperatingMode = "direct"
	}
	if cfg.FlareSolver.OperatingMode == "proxy" && cfg.FlareSolver.URL == "" {
		return nil, fmt.Errorf("flaresolverr.url is required in proxy mode")
	}
	if cfg.FlareSolver.MaxTimeoutMS <= 0 {
		cfg.FlareSolver.MaxTimeoutMS = 120000
	}
	if cfg.FlareSolver.TimeoutSeconds <= 0 {
		cfg.FlareSolver.TimeoutSeconds = 120
	}
	cfg.FlareSolver.Timeout = time.Duration(cfg.FlareSolver.TimeoutSeconds) * time.Second

	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 900
	}
	cfg.Worker.Interval = time.Duration(cfg.Worker.IntervalSeconds) * time.Second
	if cfg.Worker.MaxDays <= 0 {
		cfg.Worker.MaxDays = 2
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "voe-monitor.db"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Telegram.SendRatePerSec <= 0 {
		cfg.Telegram.SendRatePerSec = 20
	}
	if cfg.Telegram.SendBurst <= 0 {
		cfg.Telegram.SendBurst = 5
	}

	return &cfg, nil
}
