package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the TOML layout. Absent keys leave defaults untouched.
type fileConfig struct {
	Server struct {
		HTTPPort        int      `toml:"http_port"`
		ShutdownTimeout duration `toml:"shutdown_timeout"`
	} `toml:"server"`
	Storage struct {
		Driver    string `toml:"driver"`
		SQLiteDSN string `toml:"sqlite_dsn"`
	} `toml:"storage"`
	Lock struct {
		Driver        string   `toml:"driver"`
		TTL           duration `toml:"ttl"`
		RedisAddr     string   `toml:"redis_addr"`
		RedisPassword string   `toml:"redis_password"`
		RedisDB       *int     `toml:"redis_db"`
	} `toml:"lock"`
	Events struct {
		AMQPURL string `toml:"amqp_url"`
		Queue   string `toml:"queue"`
	} `toml:"events"`
	Booking struct {
		RecurrenceHorizon duration `toml:"recurrence_horizon"`
	} `toml:"booking"`
	Availability struct {
		MaxDays  int      `toml:"max_days"`
		CacheTTL duration `toml:"cache_ttl"`
	} `toml:"availability"`
	Metrics struct {
		Enabled *bool  `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"metrics"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// duration decodes TOML strings such as "30s" or "8760h".
type duration struct {
	time.Duration
	set bool
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration, d.set = parsed, true
	return nil
}

func applyFile(cfg *Config, path string) error {
	var file fileConfig
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
	}

	setInt(&cfg.HTTPPort, file.Server.HTTPPort)
	setDuration(&cfg.ShutdownTimeout, file.Server.ShutdownTimeout)
	setString(&cfg.StorageDriver, file.Storage.Driver)
	setString(&cfg.SQLiteDSN, file.Storage.SQLiteDSN)
	setString(&cfg.LockDriver, file.Lock.Driver)
	setDuration(&cfg.LockTTL, file.Lock.TTL)
	setString(&cfg.RedisAddr, file.Lock.RedisAddr)
	setString(&cfg.RedisPassword, file.Lock.RedisPassword)
	if file.Lock.RedisDB != nil {
		cfg.RedisDB = *file.Lock.RedisDB
	}
	setString(&cfg.AMQPURL, file.Events.AMQPURL)
	setString(&cfg.EventsQueue, file.Events.Queue)
	setDuration(&cfg.RecurrenceHorizon, file.Booking.RecurrenceHorizon)
	setInt(&cfg.AvailabilityMaxDays, file.Availability.MaxDays)
	setDuration(&cfg.AvailabilityCacheTTL, file.Availability.CacheTTL)
	if file.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *file.Metrics.Enabled
	}
	setString(&cfg.MetricsPath, file.Metrics.Path)
	setString(&cfg.LogLevel, file.Log.Level)
	setString(&cfg.LogFormat, file.Log.Format)
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value duration) {
	if value.set {
		*dst = value.Duration
	}
}
