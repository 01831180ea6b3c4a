// Package config loads fruity's YAML configuration, layered with .env files
// and FRUITY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fruity/internal/remote"
	"fruity/internal/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the hosted backend.
const DefaultBaseURL = "https://fruity-backend.onrender.com"

// Environment variables that override the file.
const (
	EnvAPIURL   = "FRUITY_API_URL"
	EnvRegion   = "FRUITY_REGION"
	EnvLang     = "FRUITY_LANG"
	EnvLogLevel = "FRUITY_LOG_LEVEL"
	EnvPrefsDB  = "FRUITY_PREFS_DB"
)

// Config holds all fruity configuration.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Sync        SyncConfig        `yaml:"sync"`
	Mutation    MutationConfig    `yaml:"mutation"`
	Import      ImportConfig      `yaml:"import"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// APIConfig locates the backend. A base URL saved in the preference store
// takes precedence over this one.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SyncConfig tunes the load cycle.
type SyncConfig struct {
	RequestTimeout string `yaml:"request_timeout"`
	RetryDelay     string `yaml:"retry_delay"`
	MaxRetries     int    `yaml:"max_retries"`
}

// MutationConfig tunes create/delete requests.
type MutationConfig struct {
	Timeout string `yaml:"timeout"`
}

// ImportConfig bounds CSV imports.
type ImportConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// PreferencesConfig locates the preference database and the values used
// before anything is saved there.
type PreferencesConfig struct {
	Path            string `yaml:"path"`
	DefaultRegion   string `yaml:"default_region"`
	DefaultLanguage string `yaml:"default_language"`
}

// MetricsConfig enables the Prometheus listener of the dashboard.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. "127.0.0.1:9464"; empty = disabled
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		Sync: SyncConfig{
			RequestTimeout: "15s",
			RetryDelay:     "4s",
			MaxRetries:     2,
		},
		Mutation: MutationConfig{
			Timeout: "15s",
		},
		Import: ImportConfig{
			Concurrency:   4,
			RatePerSecond: 5,
		},
		Preferences: PreferencesConfig{
			Path:            filepath.Join(HomeDir(), "prefs.db"),
			DefaultRegion:   types.DefaultRegion,
			DefaultLanguage: string(types.DefaultLanguage),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// HomeDir returns ~/.fruity, or .fruity when the home directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fruity"
	}
	return filepath.Join(home, ".fruity")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// LoadDotEnv loads .env files (default: ./.env) without overriding variables
// already set in the environment. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.Preferences.Path = expandHome(cfg.Preferences.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(EnvAPIURL); url != "" {
		c.API.BaseURL = url
	}
	if region := os.Getenv(EnvRegion); region != "" {
		c.Preferences.DefaultRegion = region
	}
	if lang := os.Getenv(EnvLang); lang != "" {
		c.Preferences.DefaultLanguage = lang
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv(EnvPrefsDB); path != "" {
		c.Preferences.Path = path
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetRequestTimeout returns the per-attempt load timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Sync.RequestTimeout, 15*time.Second)
}

// GetRetryDelay returns the pause between load attempts.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDuration(c.Sync.RetryDelay, 4*time.Second)
}

// GetMutationTimeout returns the create/delete timeout.
func (c *Config) GetMutationTimeout() time.Duration {
	return parseDuration(c.Mutation.Timeout, 15*time.Second)
}

// ControllerConfig maps the sync settings onto the load controller.
func (c *Config) ControllerConfig() remote.ControllerConfig {
	return remote.ControllerConfig{
		RequestTimeout:  c.GetRequestTimeout(),
		RetryDelay:      c.GetRetryDelay(),
		MaxRetries:      c.Sync.MaxRetries,
		MutationTimeout: c.GetMutationTimeout(),
	}
}

// DefaultLanguage returns the configured default language, or French.
func (c *Config) DefaultLanguage() types.Language {
	if lang, err := types.ParseLanguage(c.Preferences.DefaultLanguage); err == nil {
		return lang
	}
	return types.DefaultLanguage
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := remote.ValidateBaseURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}

	durations := []struct {
		name, value string
	}{
		{"sync.request_timeout", c.Sync.RequestTimeout},
		{"sync.retry_delay", c.Sync.RetryDelay},
		{"mutation.timeout", c.Mutation.Timeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.name, d.value)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s: must be positive, got %s", d.name, d.value)
		}
	}

	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries: must not be negative, got %d", c.Sync.MaxRetries)
	}
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import.concurrency: must be at least 1, got %d", c.Import.Concurrency)
	}
	if c.Import.RatePerSecond < 0 {
		return fmt.Errorf("import.rate_per_second: must not be negative, got %v", c.Import.RatePerSecond)
	}
	if _, err := types.ParseLanguage(c.Preferences.DefaultLanguage); err != nil {
		return fmt.Errorf("preferences.default_language: %w", err)
	}
	if strings.TrimSpace(c.Preferences.DefaultRegion) == "" {
		return fmt.Errorf("preferences.default_region: must not be empty")
	}
	if strings.TrimSpace(c.Preferences.Path) == "" {
		return fmt.Errorf("preferences.path: must not be empty")
	}
	return nil
}
