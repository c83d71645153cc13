package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jobpulse/errors"
)

const sampleConfig = `
[schedule]
cron = "@every 10m"
run_on_start = true

[queue]
interval_ms = 1500

[listings]
max_post_age_days = 7

[storage]
driver = "sqlite"
dsn = "/var/lib/jobpulse/state.db"

[[categories]]
name = "internship"
repositories = [
  "https://github.com/SimplifyJobs/Summer2026-Internships",
  "https://github.com/vanshb03/Summer2026-Internships",
]
[categories.discord]
webhook_url = "https://discord.com/api/webhooks/1/secret-token"
role_id = "123456"

[[categories]]
name = "new-grad"
repositories = ["https://github.com/SimplifyJobs/New-Grad-Positions"]
[categories.discord]
webhook_url = "https://discord.com/api/webhooks/2/other-token"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))
	return path
}

func validConfig() Config {
	return Config{
		Schedule: ScheduleConfig{Cron: DefaultCron},
		Queue:    QueueConfig{IntervalMS: DefaultIntervalMS, CallTimeoutSeconds: DefaultCallTimeout},
		Listings: ListingsConfig{Path: DefaultListingsPath},
		Storage:  StorageConfig{Driver: DriverSQLite, ReposDir: DefaultReposDir},
		Categories: []CategoryConfig{{
			Name:         "internship",
			Discord:      DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/1/token"},
			Repositories: []string{"https://github.com/SimplifyJobs/Summer2026-Internships"},
		}},
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultCron, cfg.Schedule.Cron)
	assert.Equal(t, time.Second, cfg.QueueInterval())
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())
	assert.Zero(t, cfg.MaxPostAge())
	assert.Equal(t, DefaultListingsPath, cfg.Listings.Path)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.StorageDSN())
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "@every 10m", cfg.Schedule.Cron)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, 1500*time.Millisecond, cfg.QueueInterval())
	assert.Equal(t, 30*time.Second, cfg.CallTimeout(), "unset keys keep defaults")
	assert.Equal(t, 7*24*time.Hour, cfg.MaxPostAge())
	assert.Equal(t, "/var/lib/jobpulse/state.db", cfg.StorageDSN())

	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "internship", cfg.Categories[0].Name)
	assert.Equal(t, "123456", cfg.Categories[0].Discord.RoleID)
	assert.Len(t, cfg.Categories[0].Repositories, 2)
	assert.Equal(t, "new-grad", cfg.Categories[1].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JOBPULSE_QUEUE_INTERVAL_MS", "2500")
	t.Setenv("CRON_PATTERN", "0 * * * *")

	cfg, err := Load(writeConfig(t, `
[schedule]
run_on_start = true
`))
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.QueueInterval())
	assert.Equal(t, "0 * * * *", cfg.Schedule.Cron)
}

func TestCategoriesFromLegacyEnv(t *testing.T) {
	t.Setenv("INTERNSHIP_WEBHOOK_URL", "https://discord.com/api/webhooks/1/a")
	t.Setenv("INTERNSHIP_ROLE_ID", "42")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "internship", cfg.Categories[0].Name)
	assert.Equal(t, "42", cfg.Categories[0].Discord.RoleID)
	assert.Equal(t, DefaultInternshipRepositories, cfg.Categories[0].Repositories)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing cron", mutate: func(c *Config) { c.Schedule.Cron = "" }, wantErr: "schedule.cron: required"},
		{name: "no categories", mutate: func(c *Config) { c.Categories = nil }, wantErr: "categories"},
		{
			name:    "missing webhook",
			mutate:  func(c *Config) { c.Categories[0].Discord.WebhookURL = "" },
			wantErr: "categories[0].discord.webhook_url: required",
		},
		{
			name:    "no repositories",
			mutate:  func(c *Config) { c.Categories[0].Repositories = nil },
			wantErr: "categories[0].repositories",
		},
		{
			name:    "bad repository URL",
			mutate:  func(c *Config) { c.Categories[0].Repositories = []string{"not a url"} },
			wantErr: "not a URL",
		},
		{
			name:    "non-numeric role",
			mutate:  func(c *Config) { c.Categories[0].Discord.RoleID = "@everyone" },
			wantErr: "role_id",
		},
		{name: "negative interval", mutate: func(c *Config) { c.Queue.IntervalMS = -1 }, wantErr: "queue.interval_ms"},
		{name: "zero timeout", mutate: func(c *Config) { c.Queue.CallTimeoutSeconds = 0 }, wantErr: "queue.call_timeout_seconds"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, wantErr: "storage.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: "storage.dsn"},
		{
			name:    "duplicate category",
			mutate:  func(c *Config) { c.Categories = append(c.Categories, c.Categories[0]) },
			wantErr: "duplicate name",
		},
		{
			name: "repository shared by two categories",
			mutate: func(c *Config) {
				c.Categories = append(c.Categories, CategoryConfig{
					Name:         "new-grad",
					Discord:      DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/2/token"},
					Repositories: []string{"https://github.com/simplifyjobs/summer2026-internships.git"},
				})
			},
			wantErr: `already watched by category "internship"`,
		},
		{
			name: "repository listed twice",
			mutate: func(c *Config) {
				c.Categories[0].Repositories = append(c.Categories[0].Repositories, c.Categories[0].Repositories[0])
			},
			wantErr: "SimplifyJobs/Summer2026-Internships is already watched",
		},
		{
			name: "distinct repositories across categories",
			mutate: func(c *Config) {
				c.Categories = append(c.Categories, CategoryConfig{
					Name:         "new-grad",
					Discord:      DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/2/token"},
					Repositories: DefaultNewGradRepositories,
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DSN = "postgres://jobpulse:hunter2@db:5432/jobpulse"

	red := cfg.Redacted()
	assert.Equal(t, "https://discord.com/api/webhooks/1/****", red.Categories[0].Discord.WebhookURL)
	assert.NotContains(t, red.Storage.DSN, "hunter2")
	assert.Contains(t, red.Storage.DSN, "jobpulse:")

	// The original is untouched.
	assert.Equal(t, "https://discord.com/api/webhooks/1/token", cfg.Categories[0].Discord.WebhookURL)
	assert.Equal(t, "jobpulse.db", redactDSN("jobpulse.db"))
}
