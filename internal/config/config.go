package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Refresher RefresherConfig
	Relay     RelayConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	// FetchTimeout bounds a single competitor extraction attempt. One hanging
	// marketplace must not block the rest of the fan-out.
	FetchTimeout time.Duration
	UserAgent    string
	// DebugDumpDir, when set, stores fetched page bodies for later inspection.
	DebugDumpDir string
}

type CacheConfig struct {
	// Backend selects the durable key-value store: "redis" or "file".
	Backend   string
	FilePath  string
	KeyPrefix string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RefresherConfig struct {
	Enabled      bool
	ScanInterval time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			FetchTimeout: getDurationOrDefault("SCRAPER_FETCH_TIMEOUT", 12*time.Second),
			UserAgent:    getEnvOrDefault("SCRAPER_USER_AGENT", defaultUserAgent),
			DebugDumpDir: getEnvOrDefault("SCRAPER_DEBUG_DUMP_DIR", ""),
		},
		Cache: CacheConfig{
			Backend:   getEnvOrDefault("CACHE_BACKEND", "redis"),
			FilePath:  getEnvOrDefault("CACHE_FILE_PATH", "price_cache.json"),
			KeyPrefix: getEnvOrDefault("CACHE_KEY_PREFIX", "prices:"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "price_radar"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Refresher: RefresherConfig{
			Enabled:      getBoolOrDefault("REFRESHER_ENABLED", true),
			ScanInterval: getDurationOrDefault("REFRESHER_SCAN_INTERVAL", 30*time.Minute),
			MinDelay:     getDurationOrDefault("REFRESHER_MIN_DELAY", 5*time.Second),
			MaxDelay:     getDurationOrDefault("REFRESHER_MAX_DELAY", 20*time.Second),
		},
		Relay: RelayConfig{
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Cache.Backend) {
	case "redis", "file":
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'redis' or 'file', got %q", c.Cache.Backend)
	}

	if c.Scraper.FetchTimeout < time.Second {
		return fmt.Errorf("SCRAPER_FETCH_TIMEOUT must be at least 1s")
	}

	if c.Refresher.MinDelay > c.Refresher.MaxDelay {
		return fmt.Errorf("REFRESHER_MIN_DELAY cannot be greater than REFRESHER_MAX_DELAY")
	}

	if c.Relay.BatchSize < 1 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be at least 1")
	}

	return nil
}

// Several marketplaces serve a stripped-down page to obvious non-browser
// clients, so the default identifies as a desktop browser.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
