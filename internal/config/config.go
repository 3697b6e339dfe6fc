// Package config holds the deskvault configuration file format.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/forest6511/deskvault/pkg/store"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Environment variables consulted when building the defaults.
const (
	EnvHome   = "DESKVAULT_HOME"
	EnvConfig = "DESKVAULT_CONFIG"
)

// ConfigFileName is the config file looked up inside the home directory.
const ConfigFileName = "config.yaml"

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app" json:"app"`
	Store StoreConfig       `yaml:"store" json:"store"`
	Seed  SeedConfig        `yaml:"seed" json:"seed"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" json:"log_level"`
	LogFormat string     `yaml:"log_format" json:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// StoreConfig selects the vault backend and where it lives.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = store.DriverFile
	}
	drivers := make([]any, len(store.Drivers))
	for i, d := range store.Drivers {
		drivers[i] = d
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(drivers...)),
		validation.Field(&c.Path, validation.When(c.Driver != store.DriverMemory, validation.Required)),
	)
}

// SeedConfig points at optional seed files merged into a new vault.
type SeedConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// NewDefaultConfig returns a new Config with default values rooted at home.
func NewDefaultConfig(home string) *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Store: StoreConfig{
			Driver: store.DriverFile,
			Path:   home,
		},
	}
}

// HomeDir returns the deskvault home directory: $DESKVAULT_HOME, or
// ~/.deskvault.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".deskvault"), nil
}

// DefaultPath returns the config file used when none is given:
// $DESKVAULT_CONFIG, or config.yaml inside home.
func DefaultPath(home string) string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	return filepath.Join(home, ConfigFileName)
}

// Resolve loads the config at path over the defaults for home. A missing
// file yields the defaults. Relative store and seed paths are taken
// relative to the config file's directory.
func Resolve(home, path string) (*Config, error) {
	cfg := NewDefaultConfig(home)
	if err := LoadOptional(path, cfg); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(base, cfg.Store.Path)
	}
	if cfg.Seed.Dir != "" && !filepath.IsAbs(cfg.Seed.Dir) {
		cfg.Seed.Dir = filepath.Join(base, cfg.Seed.Dir)
	}
	return cfg, nil
}
