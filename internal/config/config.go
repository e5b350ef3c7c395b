package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pkgconfig "github.com/Checker-Finance/personio-adapter/pkg/config"
)

// Config holds the core runtime configuration for a service instance.
// Values come from three layers: built-in defaults, an optional YAML file
// and environment variables, with the environment winning.
type Config struct {
	ServiceName string // e.g. "personio-adapter"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.
	Port        int    // service HTTP port

	// Personio API
	PersonioBaseURL string
	ClientID        string // empty means resolve from AWS Secrets Manager
	ClientSecret    string
	SecretName      string // AWS secret path holding the credential pair
	MaxPages        int
	RequestsPerSec  int
	Burst           int

	// Export
	OutputPath       string
	IncludeDocuments bool

	// Schedule
	ScheduleEnabled bool
	DailyAt         time.Time

	// Infrastructure (all optional; empty disables the component)
	NATSURL     string // e.g. nats://localhost:4222
	RedisAddr   string // e.g. localhost:6379
	RedisDB     int
	DatabaseURL string
	AWSRegion   string

	CacheTTL    time.Duration // TTL for secret cache
	CleanupFreq time.Duration // frequency for cache cleanup goroutine

	PGMaxConns          int
	PGMinConns          int
	PGMaxConnLifetime   time.Duration
	PGMaxConnIdleTime   time.Duration
	PGHealthCheckPeriod time.Duration
}

// fileConfig is the YAML layout, mirroring the sections operators already
// maintain for this integration.
type fileConfig struct {
	Personio struct {
		BaseURL  string `yaml:"base_url"`
		MaxPages int    `yaml:"max_pages"`
	} `yaml:"personio"`
	Export struct {
		OutputPath       string `yaml:"output_path"`
		IncludeDocuments *bool  `yaml:"include_documents"`
	} `yaml:"export"`
	Schedule struct {
		Enabled *bool  `yaml:"enabled"`
		DailyAt string `yaml:"daily_at"`
	} `yaml:"schedule"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load builds the configuration. configPath may be empty; a missing YAML
// file is not an error, only a malformed one is.
func Load(configPath string) (*Config, error) {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	var file fileConfig
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		ServiceName: pkgconfig.GetEnv("SERVICE_NAME", "personio-adapter"),
		Env:         pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:    pkgconfig.GetEnv("LOG_LEVEL", fallback(file.Logging.Level, "info")),
		Port:        pkgconfig.GetEnvInt("PORT", 9040),

		PersonioBaseURL: pkgconfig.GetEnv("PERSONIO_BASE_URL", fallback(file.Personio.BaseURL, "https://api.personio.de")),
		ClientID:        pkgconfig.GetEnv("PERSONIO_CLIENT_ID", ""),
		ClientSecret:    pkgconfig.GetEnv("PERSONIO_CLIENT_SECRET", ""),
		SecretName:      pkgconfig.GetEnv("PERSONIO_SECRET_NAME", ""),
		MaxPages:        pkgconfig.GetEnvInt("PERSONIO_MAX_PAGES", fallbackInt(file.Personio.MaxPages, 1000)),
		RequestsPerSec:  pkgconfig.GetEnvInt("PERSONIO_REQUESTS_PER_SEC", 5),
		Burst:           pkgconfig.GetEnvInt("PERSONIO_BURST", 10),

		OutputPath:       pkgconfig.GetEnv("EXPORT_OUTPUT_PATH", fallback(file.Export.OutputPath, "./export")),
		IncludeDocuments: pkgconfig.GetEnvBool("EXPORT_INCLUDE_DOCUMENTS", fallbackBool(file.Export.IncludeDocuments, false)),

		ScheduleEnabled: pkgconfig.GetEnvBool("SCHEDULE_ENABLED", fallbackBool(file.Schedule.Enabled, false)),
		DailyAt:         pkgconfig.GetEnvTime("SCHEDULE_DAILY_AT", fallback(file.Schedule.DailyAt, "03:30")),

		NATSURL:     pkgconfig.GetEnv("NATS_URL", ""),
		RedisAddr:   pkgconfig.GetEnv("REDIS_ADDR", ""),
		RedisDB:     pkgconfig.GetEnvInt("REDIS_DB", 0),
		DatabaseURL: pkgconfig.GetEnv("DATABASE_URL", ""),
		AWSRegion:   pkgconfig.GetEnv("AWS_REGION", "us-east-2"),

		CacheTTL:    pkgconfig.GetEnvDuration("CACHE_TTL", 24*time.Hour),
		CleanupFreq: pkgconfig.GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),

		PGMaxConns:          pkgconfig.GetEnvInt("PG_MAX_CONNS", 10),
		PGMinConns:          pkgconfig.GetEnvInt("PG_MIN_CONNS", 2),
		PGMaxConnLifetime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_LIFETIME", 30*time.Minute),
		PGMaxConnIdleTime:   pkgconfig.GetEnvDuration("PG_MAX_CONN_IDLE_TIME", 5*time.Minute),
		PGHealthCheckPeriod: pkgconfig.GetEnvDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PersonioBaseURL == "" {
		return fmt.Errorf("personio base URL is required")
	}
	if c.ClientID == "" && c.SecretName == "" {
		return fmt.Errorf("either PERSONIO_CLIENT_ID/PERSONIO_CLIENT_SECRET or PERSONIO_SECRET_NAME must be set")
	}
	if c.ClientID != "" && c.ClientSecret == "" {
		return fmt.Errorf("PERSONIO_CLIENT_SECRET is required when PERSONIO_CLIENT_ID is set")
	}
	return nil
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func fallbackInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func fallbackBool(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
