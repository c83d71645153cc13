// Package am loads, validates and watches the jobpulse configuration.
//
// Configuration is TOML (jobpulse.toml) merged from the system, user and
// project locations, overridden by JOBPULSE_* environment variables. A .env
// file in the working directory is loaded into the environment first.
package am

import "time"

// Config is the jobpulse configuration.
type Config struct {
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Listings   ListingsConfig   `mapstructure:"listings"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Categories []CategoryConfig `mapstructure:"categories" validate:"required,min=1,dive"`
}

// ScheduleConfig controls when cycles run.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron" validate:"required"` // cron expression or descriptor ("@every 5m")
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// QueueConfig controls notification delivery.
type QueueConfig struct {
	IntervalMS         int `mapstructure:"interval_ms" validate:"gte=0"`         // minimum spacing between sink calls
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" validate:"gt=0"` // bound on a single sink call
}

// ListingsConfig controls how listings files are read.
type ListingsConfig struct {
	MaxPostAgeDays int    `mapstructure:"max_post_age_days" validate:"gte=0"` // 0 = announce everything
	Path           string `mapstructure:"path" validate:"required"`           // listings file inside each clone
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite postgres redis"`
	DSN      string `mapstructure:"dsn"` // sqlite path, postgres DSN or redis URL
	ReposDir string `mapstructure:"repos_dir" validate:"required"`
}

// CategoryConfig is one group of repositories sharing a webhook.
type CategoryConfig struct {
	Name         string        `mapstructure:"name" validate:"required"`
	Discord      DiscordConfig `mapstructure:"discord"`
	Repositories []string      `mapstructure:"repositories" validate:"required,min=1,dive,url"`
}

// DiscordConfig configures a category's webhook.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url" validate:"required,url"`
	RoleID     string `mapstructure:"role_id" validate:"omitempty,numeric"` // mentioned in announcements
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// QueueInterval returns the minimum spacing between sink calls.
func (c *Config) QueueInterval() time.Duration {
	return time.Duration(c.Queue.IntervalMS) * time.Millisecond
}

// CallTimeout returns the bound on a single sink call.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Queue.CallTimeoutSeconds) * time.Second
}

// MaxPostAge returns the announcement age limit, 0 when unlimited.
func (c *Config) MaxPostAge() time.Duration {
	return time.Duration(c.Listings.MaxPostAgeDays) * 24 * time.Hour
}

// StorageDSN returns the configured DSN, defaulting the sqlite path.
func (c *Config) StorageDSN() string {
	if c.Storage.DSN == "" && c.Storage.Driver == DriverSQLite {
		return DefaultSQLitePath
	}
	return c.Storage.DSN
}
