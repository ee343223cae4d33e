package internal

import (
	"log/slog"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Archive ArchiveConfig     `yaml:"archive"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Views   ViewsConfig       `yaml:"views"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	return c.Catalog.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
	)
}

// ArchiveConfig holds the path to the archive directory.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// sqliteFileRe rejects DSN options smuggled into the catalog path; they are
// fixed by the catalog package.
var sqliteFileRe = regexp.MustCompile(`^[^?]+$`)

// CatalogConfig holds SQLite catalog configuration.
// An empty Path puts the catalog inside the archive directory.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Path != "", validation.Match(sqliteFileRe))),
	)
}

// ViewsConfig controls view handling in the long-running server.
type ViewsConfig struct {
	// Watch caches view listings and invalidates them from filesystem events.
	Watch bool `yaml:"watch"`
}

// CatalogPath returns the catalog file to open.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.Archive.Path, "catalog.db")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Archive: ArchiveConfig{
			Path: "./archive",
		},
		Views: ViewsConfig{
			Watch: true,
		},
	}
}
