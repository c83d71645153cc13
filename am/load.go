package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/jobpulse/errors"
)

// ConfigFileName is the file searched for in each config location.
const ConfigFileName = "jobpulse.toml"

// Load reads the configuration. With a non-empty path only that file is
// read; otherwise the system, user and project files are merged in that
// order. Environment variables override files. Load does not validate.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// NewViper builds a viper instance with defaults, environment binding and
// the config files for path (see Load).
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetEnvPrefix("JOBPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		return v, nil
	}

	for _, p := range configPaths() {
		if err := mergeConfigFile(v, p); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadWithViper unmarshals configuration from v. When no categories are
// configured they are derived from the legacy per-category environment
// variables.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = categoriesFromEnv(v)
	}
	return &cfg, nil
}

// UsedConfigFile reports the file Load would read for path, or "" when none
// exists.
func UsedConfigFile(path string) string {
	if path != "" {
		return path
	}
	found := ""
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			found = p
		}
	}
	return found
}

func categoriesFromEnv(v *viper.Viper) []CategoryConfig {
	var out []CategoryConfig
	for _, lc := range legacyCategories {
		webhookKey := "legacy." + lc.name + ".webhook_url"
		roleKey := "legacy." + lc.name + ".role_id"
		v.BindEnv(webhookKey, lc.webhookEnv)
		v.BindEnv(roleKey, lc.roleEnv)

		webhook := v.GetString(webhookKey)
		if webhook == "" {
			continue
		}
		repos := make([]string, len(lc.repositories))
		copy(repos, lc.repositories)
		out = append(out, CategoryConfig{
			Name:         lc.name,
			Discord:      DiscordConfig{WebhookURL: webhook, RoleID: v.GetString(roleKey)},
			Repositories: repos,
		})
	}
	return out
}

// configPaths lists config files from lowest to highest precedence.
func configPaths() []string {
	paths := []string{filepath.Join("/etc/jobpulse", ConfigFileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".jobpulse", ConfigFileName))
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}
	return paths
}

// findProjectConfig walks up from the working directory looking for
// jobpulse.toml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFile merges path into v's config layer, so environment
// variables still take precedence. Missing files are skipped.
func mergeConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("toml")
	if err := file.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := v.MergeConfigMap(file.AllSettings()); err != nil {
		return errors.Wrapf(err, "merge config file %s", path)
	}
	return nil
}

// loadDotEnv loads .env from the working directory without overriding
// variables already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return errors.Wrap(err, "load .env")
	}
	return nil
}
