package am

import (
	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultCron           = "*/5 * * * *"
	DefaultIntervalMS     = 1000
	DefaultCallTimeout    = 30
	DefaultListingsPath   = ".github/scripts/listings.json"
	DefaultSQLitePath     = "jobpulse.db"
	DefaultReposDir       = "repos"
	DefaultStorageDriver  = DriverSQLite
	DefaultMaxPostAgeDays = 0
)

// Default repositories per category, used when categories come from the
// legacy environment variables.
var (
	DefaultInternshipRepositories = []string{
		"https://github.com/SimplifyJobs/Summer2026-Internships",
		"https://github.com/vanshb03/Summer2026-Internships",
	}
	DefaultNewGradRepositories = []string{
		"https://github.com/SimplifyJobs/New-Grad-Positions",
		"https://github.com/vanshb03/New-Grad-2025",
	}
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schedule.cron", DefaultCron)
	v.SetDefault("schedule.run_on_start", false)

	v.SetDefault("queue.interval_ms", DefaultIntervalMS)
	v.SetDefault("queue.call_timeout_seconds", DefaultCallTimeout)

	v.SetDefault("listings.max_post_age_days", DefaultMaxPostAgeDays)
	v.SetDefault("listings.path", DefaultListingsPath)

	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.repos_dir", DefaultReposDir)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment
// variables. The unprefixed names are the ones earlier deployments used.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("storage.dsn", "JOBPULSE_STORAGE_DSN", "DATABASE_URL")
	v.BindEnv("schedule.cron", "JOBPULSE_SCHEDULE_CRON", "CRON_PATTERN")
}

// legacyCategory maps a category to the environment variables holding its
// webhook and mention role.
type legacyCategory struct {
	name         string
	webhookEnv   string
	roleEnv      string
	repositories []string
}

var legacyCategories = []legacyCategory{
	{"internship", "INTERNSHIP_WEBHOOK_URL", "INTERNSHIP_ROLE_ID", DefaultInternshipRepositories},
	{"new-grad", "NEW_GRAD_WEBHOOK_URL", "NEW_GRAD_ROLE_ID", DefaultNewGradRepositories},
}
