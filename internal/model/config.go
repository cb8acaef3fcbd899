package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BillingConfig holds billing defaults.
type BillingConfig struct {
	// HourlyRate applies to projects without a rate override.
	HourlyRate float64 `mapstructure:"hourly_rate" yaml:"hourly_rate"`

	// WorkLogDescription is a fmt template receiving the item code, used
	// when a work log is saved without a description.
	WorkLogDescription string `mapstructure:"worklog_description" yaml:"worklog_description"`
}

// LockConfig selects how item code allocation is serialized.
type LockConfig struct {
	// Backend is "table" to coordinate every process sharing the database
	// or "memory" when a single process owns it.
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// UserConfig identifies the local user and their rights.
type UserConfig struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	Permissions []string `mapstructure:"permissions" yaml:"permissions"`
}

// ReconcileConfig controls the background rollup reconciler.
type ReconcileConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Billing   BillingConfig   `mapstructure:"billing" yaml:"billing"`
	Lock      LockConfig      `mapstructure:"lock" yaml:"lock"`
	User      UserConfig      `mapstructure:"user" yaml:"user"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// Default values shared by LoadConfig and DefaultAppConfig.
const (
	DefaultHourlyRate         = 75.0
	DefaultWorkLogDescription = "Working on item %s"
	DefaultLockTimeout        = 10 * time.Second
	DefaultLockTTL            = 30 * time.Second
	DefaultReconcileInterval  = 300
)

// configDir returns ~/.config/projects, falling back to the working directory.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "projects")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/projects/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func defaultUserName() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "local"
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	perms := make([]string, len(AllPermissions))
	for i, p := range AllPermissions {
		perms[i] = string(p)
	}
	return &AppConfig{
		Database: DatabaseConfig{Path: filepath.Join(configDir(), "projects.db")},
		Billing: BillingConfig{
			HourlyRate:         DefaultHourlyRate,
			WorkLogDescription: DefaultWorkLogDescription,
		},
		Lock: LockConfig{
			Backend: "table",
			Timeout: DefaultLockTimeout,
			TTL:     DefaultLockTTL,
		},
		User:      UserConfig{Name: defaultUserName(), Permissions: perms},
		Reconcile: ReconcileConfig{IntervalSec: DefaultReconcileInterval},
		Log:       LogConfig{Path: filepath.Join(configDir(), "projects.log"), Level: "info"},
		Display:   DisplayConfig{Theme: "default"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PROJECTS")
	v.AutomaticEnv()

	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("billing.hourly_rate", defaults.Billing.HourlyRate)
	v.SetDefault("billing.worklog_description", defaults.Billing.WorkLogDescription)
	v.SetDefault("lock.backend", defaults.Lock.Backend)
	v.SetDefault("lock.timeout", defaults.Lock.Timeout)
	v.SetDefault("lock.ttl", defaults.Lock.TTL)
	v.SetDefault("user.name", defaults.User.Name)
	v.SetDefault("reconcile.interval_sec", defaults.Reconcile.IntervalSec)
	v.SetDefault("log.path", defaults.Log.Path)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("display.theme", defaults.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// An absent permissions key keeps the full default set; an explicit
	// empty list means no rights at all.
	if !v.IsSet("user.permissions") {
		cfg.User.Permissions = defaults.User.Permissions
	}
	if cfg.Billing.WorkLogDescription == "" {
		cfg.Billing.WorkLogDescription = DefaultWorkLogDescription
	}
	if cfg.Lock.Timeout <= 0 {
		cfg.Lock.Timeout = DefaultLockTimeout
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("billing", cfg.Billing)
	v.Set("lock", cfg.Lock)
	v.Set("user", cfg.User)
	v.Set("reconcile", cfg.Reconcile)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// CurrentUser builds the acting user from the configuration.
func (c *AppConfig) CurrentUser() User {
	perms := make([]Permission, len(c.User.Permissions))
	for i, p := range c.User.Permissions {
		perms[i] = Permission(p)
	}
	return NewUser(c.User.Name, perms...)
}
