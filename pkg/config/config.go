package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Dataset  DatasetConfig
	Cache    CacheConfig
	Sync     SyncConfig
	Schedule ScheduleConfig
	OTEL     OTELConfig
	Log      LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// DatasetConfig points at the provider roster. An empty path selects the
// embedded sample dataset.
type DatasetConfig struct {
	Path string
}

// CacheConfig holds view memoization settings
type CacheConfig struct {
	Enabled    bool
	TTLSeconds int
	// WarmDays list views are pre-built from today; WarmInterval 0 warms
	// only at startup and after rebuilds.
	WarmDays     int
	WarmInterval time.Duration
}

// SyncConfig controls dataset reload fan-out between replicas over Redis
type SyncConfig struct {
	Enabled    bool
	InstanceID string
}

// ScheduleConfig holds the grid defaults
type ScheduleConfig struct {
	ListGranularity     int
	CalendarGranularity int
	SuggestionLimit     int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Env   string
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "roster:"),
		},
		Dataset: DatasetConfig{
			Path: getEnv("DATASET_PATH", ""),
		},
		Cache: CacheConfig{
			Enabled:      getEnvAsBool("CACHE_ENABLED", false),
			TTLSeconds:   getEnvAsInt("CACHE_TTL_SECONDS", 300),
			WarmDays:     getEnvAsInt("CACHE_WARM_DAYS", 7),
			WarmInterval: getEnvAsDuration("CACHE_WARM_INTERVAL", 0),
		},
		Sync: SyncConfig{
			Enabled:    getEnvAsBool("ROSTER_SYNC_ENABLED", false),
			InstanceID: getEnv("INSTANCE_ID", defaultInstanceID()),
		},
		Schedule: ScheduleConfig{
			ListGranularity:     getEnvAsInt("SCHEDULE_LIST_GRANULARITY", 15),
			CalendarGranularity: getEnvAsInt("SCHEDULE_CALENDAR_GRANULARITY", 60),
			SuggestionLimit:     getEnvAsInt("SCHEDULE_SUGGESTION_LIMIT", 5),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "roster-management"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Env:   getEnv("ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the schedule engine cannot honour.
func (c *Config) Validate() error {
	for name, g := range map[string]int{
		"SCHEDULE_LIST_GRANULARITY":     c.Schedule.ListGranularity,
		"SCHEDULE_CALENDAR_GRANULARITY": c.Schedule.CalendarGranularity,
	} {
		if g <= 0 || 60%g != 0 {
			return fmt.Errorf("%s=%d must evenly divide 60", name, g)
		}
	}
	if c.Schedule.SuggestionLimit <= 0 {
		return fmt.Errorf("SCHEDULE_SUGGESTION_LIMIT must be positive, got %d", c.Schedule.SuggestionLimit)
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive when caching is enabled, got %d", c.Cache.TTLSeconds)
	}
	return nil
}

// LoadDotEnv populates the environment from .env files without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
