package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	GIBS      GIBSConfig
	Session   SessionConfig
	Assistant AssistantConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host             string
	Port             int
	RateLimitRPS     int
	ChatRateLimitRPS int
}

type GIBSConfig struct {
	Endpoint     string
	CatalogPath  string // empty means the built-in catalog
	ProbeTimeout time.Duration
}

type SessionConfig struct {
	PlaybackInterval time.Duration
	IdleTTL          time.Duration
	ReapInterval     time.Duration
}

type AssistantConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:             getEnv("SERVER_HOST", "localhost"),
			Port:             getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 20),
			ChatRateLimitRPS: getEnvInt("CHAT_RATE_LIMIT_RPS", 2),
		},
		GIBS: GIBSConfig{
			Endpoint:     getEnv("GIBS_ENDPOINT", "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best"),
			CatalogPath:  getEnv("CATALOG_PATH", ""),
			ProbeTimeout: getEnvDuration("PROBE_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			PlaybackInterval: getEnvDuration("PLAYBACK_INTERVAL", 1500*time.Millisecond),
			IdleTTL:          getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
			ReapInterval:     getEnvDuration("SESSION_REAP_INTERVAL", time.Minute),
		},
		Assistant: AssistantConfig{
			APIKey:      getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: getEnvFloat("ASSISTANT_TEMPERATURE", 0.7),
			Timeout:     getEnvDuration("ASSISTANT_TIMEOUT", 30*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", ":memory:"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 || c.Server.ChatRateLimitRPS < 1 {
		return fmt.Errorf("rate limits must be at least 1 req/s")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.GIBS.Endpoint == "" {
		return fmt.Errorf("GIBS endpoint must not be empty")
	}
	if c.Session.PlaybackInterval < 100*time.Millisecond {
		return fmt.Errorf("playback interval must be at least 100ms")
	}
	if c.Session.IdleTTL > 0 && c.Session.ReapInterval <= 0 {
		return fmt.Errorf("session reap interval must be positive when idle TTL is set")
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		return fmt.Errorf("assistant temperature must be within [0, 2]: %v", c.Assistant.Temperature)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
