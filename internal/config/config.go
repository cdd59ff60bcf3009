package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is the dotenv file loaded before environment overrides are
// applied.
const DefaultEnvFile = "config.env"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the papertrader server.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
	Cache   CacheConfig   `yaml:"cache"`
}

// Storage holds paths for the price cache and the results journal.
type Storage struct {
	DataDir    string `yaml:"data_dir" env:"DATA_DIR"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// Server holds network listener configuration.
type Server struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	GRPCPort        int           `yaml:"grpc_port" env:"GRPC_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Alpaca holds credentials and request tuning for the Alpaca market-data API.
type Alpaca struct {
	APIKey          string        `yaml:"api_key" env:"ALPACA_API_KEY"`
	APISecret       string        `yaml:"api_secret" env:"ALPACA_API_SECRET"`
	DataURL         string        `yaml:"data_url" env:"ALPACA_DATA_URL"`
	Feed            string        `yaml:"feed" env:"ALPACA_FEED"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"ALPACA_RATE_LIMIT_PER_MIN"`
	RateBurst       int           `yaml:"rate_burst" env:"ALPACA_RATE_BURST"`
	MaxAttempts     int           `yaml:"max_attempts" env:"ALPACA_MAX_ATTEMPTS"`
	RetryDelay      time.Duration `yaml:"retry_delay" env:"ALPACA_RETRY_DELAY"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// TradingConfig defines the game rules that are not fixed by the engine.
type TradingConfig struct {
	StartingCash float64 `yaml:"starting_cash" env:"STARTING_CASH"`
	WindowDays   int     `yaml:"window_days" env:"WINDOW_DAYS"`
	// RecordResults enables the SQLite journal of finished sessions.
	RecordResults bool `yaml:"record_results" env:"RECORD_RESULTS"`
}

// CacheConfig controls the on-disk price window cache.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	PruneInterval time.Duration `yaml:"prune_interval" env:"CACHE_PRUNE_INTERVAL"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, loads the dotenv
// file, applies environment variable overrides and finally fills defaults
// for anything left unset. An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	// A missing dotenv file is not an error.
	_ = godotenv.Load(DefaultEnvFile)

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides overrides configuration fields from their `env` tags,
// then from the canonical Alpaca SDK variables.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	// Canonical SDK variable names win over everything else.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/papertrader.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = 5001
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Alpaca.RateLimitPerMin == 0 {
		cfg.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Alpaca.RateBurst == 0 {
		cfg.Alpaca.RateBurst = 1
	}
	if cfg.Alpaca.MaxAttempts == 0 {
		cfg.Alpaca.MaxAttempts = 3
	}
	if cfg.Alpaca.RetryDelay == 0 {
		cfg.Alpaca.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Trading.StartingCash == 0 {
		cfg.Trading.StartingCash = 10000
	}
	if cfg.Trading.WindowDays == 0 {
		cfg.Trading.WindowDays = 7
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.PruneInterval == 0 {
		cfg.Cache.PruneInterval = time.Hour
	}
}
