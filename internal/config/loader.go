// Package config loads service configuration from the environment, an
// optional .env file and an optional TOML file.
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

const (
	envConfigFile = "RESERVATION_CONFIG_FILE"
	envDotEnvFile = "RESERVATION_ENV_FILE"

	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	LockMemory    = "memory"
	LockRedis     = "redis"
)

// Config captures the settings of the reservation service.
type Config struct {
	HTTPPort        int
	ShutdownTimeout time.Duration

	StorageDriver string
	SQLiteDSN     string

	LockDriver    string
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQPURL enables event publishing when set.
	AMQPURL     string
	EventsQueue string

	RecurrenceHorizon    time.Duration
	AvailabilityMaxDays  int
	AvailabilityCacheTTL time.Duration

	MetricsEnabled bool
	MetricsPath    string

	LogLevel  string
	LogFormat string
}

// LoadError lists every setting that was missing or malformed.
type LoadError struct {
	Missing []string
	Invalid []string
}

func (e *LoadError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

// Defaults returns the configuration used when no source sets a value.
func Defaults() Config {
	return Config{
		HTTPPort:             8080,
		ShutdownTimeout:      10 * time.Second,
		StorageDriver:        StorageSQLite,
		SQLiteDSN:            "reservations.db",
		LockDriver:           LockMemory,
		LockTTL:              10 * time.Second,
		EventsQueue:          "reservation.events",
		RecurrenceHorizon:    365 * 24 * time.Hour,
		AvailabilityMaxDays:  31,
		AvailabilityCacheTTL: 30 * time.Second,
		MetricsEnabled:       true,
		MetricsPath:          "/metrics",
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// Load resolves the configuration. Sources in precedence order: process
// environment, the .env file named by RESERVATION_ENV_FILE (default ".env",
// optional), the TOML file named by RESERVATION_CONFIG_FILE, defaults.
func Load() (Config, error) {
	cfg := Defaults()

	dotenv, err := readDotEnv(firstNonEmpty(os.Getenv(envDotEnvFile), ".env"))
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) string {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
		return strings.TrimSpace(dotenv[key])
	}

	if path := lookup(envConfigFile); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	p := &parser{lookup: lookup}

	p.int("RESERVATION_HTTP_PORT", &cfg.HTTPPort, 1)
	p.duration("RESERVATION_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	p.choice("RESERVATION_STORAGE_DRIVER", &cfg.StorageDriver, StorageSQLite, StorageMemory)
	p.string("RESERVATION_SQLITE_DSN", &cfg.SQLiteDSN)

	p.choice("RESERVATION_LOCK_DRIVER", &cfg.LockDriver, LockMemory, LockRedis)
	p.duration("RESERVATION_LOCK_TTL", &cfg.LockTTL)
	p.string("RESERVATION_REDIS_ADDR", &cfg.RedisAddr)
	p.string("RESERVATION_REDIS_PASSWORD", &cfg.RedisPassword)
	p.int("RESERVATION_REDIS_DB", &cfg.RedisDB, 0)

	p.string("RESERVATION_AMQP_URL", &cfg.AMQPURL)
	p.string("RESERVATION_EVENTS_QUEUE", &cfg.EventsQueue)

	p.duration("RESERVATION_RECURRENCE_HORIZON", &cfg.RecurrenceHorizon)
	p.int("RESERVATION_AVAILABILITY_MAX_DAYS", &cfg.AvailabilityMaxDays, 1)
	p.signedDuration("RESERVATION_AVAILABILITY_CACHE_TTL", &cfg.AvailabilityCacheTTL)

	p.bool("RESERVATION_METRICS_ENABLED", &cfg.MetricsEnabled)
	p.string("RESERVATION_METRICS_PATH", &cfg.MetricsPath)

	p.choice("RESERVATION_LOG_LEVEL", &cfg.LogLevel, "debug", "info", "warn", "error")
	p.choice("RESERVATION_LOG_FORMAT", &cfg.LogFormat, "json", "text")

	if cfg.StorageDriver == StorageSQLite && cfg.SQLiteDSN == "" {
		p.missing = append(p.missing, "RESERVATION_SQLITE_DSN")
	}
	if cfg.LockDriver == LockRedis && cfg.RedisAddr == "" {
		p.missing = append(p.missing, "RESERVATION_REDIS_ADDR")
	}
	if cfg.MetricsEnabled && !strings.HasPrefix(cfg.MetricsPath, "/") {
		p.invalid = append(p.invalid, "RESERVATION_METRICS_PATH")
	}

	if len(p.missing) > 0 || len(p.invalid) > 0 {
		return Config{}, &LoadError{Missing: p.missing, Invalid: p.invalid}
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type parser struct {
	lookup  func(string) string
	missing []string
	invalid []string
}

func (p *parser) string(key string, dst *string) {
	if value := p.lookup(key); value != "" {
		*dst = value
	}
}

// choice also checks values that came from the file or the defaults.
func (p *parser) choice(key string, dst *string, allowed ...string) {
	value := strings.ToLower(firstNonEmpty(p.lookup(key), *dst))
	for _, a := range allowed {
		if value == a {
			*dst = value
			return
		}
	}
	p.invalid = append(p.invalid, key)
}

func (p *parser) int(key string, dst *int, minimum int) {
	value := p.lookup(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < minimum {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) bool(key string, dst *bool) {
	value := p.lookup(key)
	if value == "" {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	value := p.lookup(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

// signedDuration accepts negative values, which disable the feature.
func (p *parser) signedDuration(key string, dst *time.Duration) {
	value := p.lookup(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}
