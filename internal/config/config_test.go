package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "papertrader-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

// clearEnv unsets every variable Load consults so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "HOST", "PORT", "GRPC_PORT", "SHUTDOWN_TIMEOUT",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL", "ALPACA_FEED",
		"ALPACA_RATE_LIMIT_PER_MIN", "ALPACA_RATE_BURST", "ALPACA_MAX_ATTEMPTS", "ALPACA_RETRY_DELAY",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOG_LEVEL", "LOG_FORMAT",
		"STARTING_CASH", "WINDOW_DAYS", "RECORD_RESULTS",
		"CACHE_ENABLED", "CACHE_TTL", "CACHE_PRUNE_INTERVAL",
	} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
storage:
  data_dir: "/tmp/papertrader/data"
  sqlite_path: "/tmp/papertrader/results.db"
server:
  host: "0.0.0.0"
  port: 8080
  grpc_port: 9090
  shutdown_timeout: 10s
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
  rate_limit_per_min: 100
  rate_burst: 4
  max_attempts: 5
  retry_delay: 250ms
logging:
  level: "debug"
  format: "text"
trading:
  starting_cash: 25000
  window_days: 5
  record_results: true
cache:
  enabled: true
  ttl: 48h
  prune_interval: 30m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/papertrader/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/papertrader/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/papertrader/results.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/papertrader/results.db")
	}

	// -- Server --
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.GRPCPort != 9090 {
		t.Errorf("Server.GRPCPort = %d, want %d", cfg.Server.GRPCPort, 9090)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %s, want %s", cfg.Server.ShutdownTimeout, 10*time.Second)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "sip")
	}
	if cfg.Alpaca.RateLimitPerMin != 100 || cfg.Alpaca.RateBurst != 4 {
		t.Errorf("Alpaca rate = %d/min burst %d, want 100/min burst 4", cfg.Alpaca.RateLimitPerMin, cfg.Alpaca.RateBurst)
	}
	if cfg.Alpaca.RetryDelay != 250*time.Millisecond {
		t.Errorf("Alpaca.RetryDelay = %s, want %s", cfg.Alpaca.RetryDelay, 250*time.Millisecond)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}

	// -- Trading --
	if cfg.Trading.StartingCash != 25000 {
		t.Errorf("Trading.StartingCash = %f, want %f", cfg.Trading.StartingCash, 25000.0)
	}
	if cfg.Trading.WindowDays != 5 {
		t.Errorf("Trading.WindowDays = %d, want %d", cfg.Trading.WindowDays, 5)
	}
	if !cfg.Trading.RecordResults {
		t.Error("Trading.RecordResults = false, want true")
	}

	// -- Cache --
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 48*time.Hour || cfg.Cache.PruneInterval != 30*time.Minute {
		t.Errorf("Cache = %+v, want enabled/48h/30m", cfg.Cache)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 5000)
	}
	if cfg.Trading.StartingCash != 10000 {
		t.Errorf("Trading.StartingCash = %f, want %f", cfg.Trading.StartingCash, 10000.0)
	}
	if cfg.Trading.WindowDays != 7 {
		t.Errorf("Trading.WindowDays = %d, want %d", cfg.Trading.WindowDays, 7)
	}
	if cfg.Alpaca.RateLimitPerMin != 200 || cfg.Alpaca.RateBurst != 1 {
		t.Errorf("Alpaca rate = %d/min burst %d, want 200/min burst 1", cfg.Alpaca.RateLimitPerMin, cfg.Alpaca.RateBurst)
	}
	if cfg.Alpaca.Feed != "iex" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "iex")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
server:
  port: 7000
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("PORT", "6000")
	t.Setenv("CACHE_TTL", "2h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 6000)
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("Cache.TTL = %s, want %s (env override)", cfg.Cache.TTL, 2*time.Hour)
	}

	t.Setenv("APCA_API_KEY_ID", "sdk-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "sdk-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (APCA override)", cfg.Alpaca.APIKey, "sdk-key")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() should fail on a malformed PORT")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/papertrader.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing config file")
	}
}
