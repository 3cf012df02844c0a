// Package config loads the daemon configuration from TOML files and
// CRATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/rename"
)

const (
	appName        = "crate"
	configFileName = "config.toml"
	// envPrefix selects the environment variables read into the config.
	// A double underscore separates sections: CRATE_PATHS__IMPORT.
	envPrefix = "CRATE_"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Paths    PathsConfig    `koanf:"paths"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Layout   LayoutConfig   `koanf:"layout"`
	Log      LogConfig      `koanf:"log"`
	History  HistoryConfig  `koanf:"history"`
	LockFile string         `koanf:"lock_file"`
}

// PathsConfig holds the four library roots.
type PathsConfig struct {
	Import        string `koanf:"import"`
	Todo          string `koanf:"todo"`
	ExportElectro string `koanf:"export_electro"`
	ExportGeneral string `koanf:"export_general"`
}

type ScheduleConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// CatalogConfig holds the release catalog lookup settings.
type CatalogConfig struct {
	SearchURL string        `koanf:"search_url"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit time.Duration `koanf:"rate_limit"`
	MinScore  float64       `koanf:"min_score"`
}

// LayoutConfig holds the electro destination templates.
type LayoutConfig struct {
	Folder   string `koanf:"folder"`
	Filename string `koanf:"filename"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // auto, console, json
}

type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Default returns the configuration used when no file or variable
// overrides a key.
func Default() *Config {
	cat := catalog.DefaultConfig()
	layout := rename.DefaultLayout()
	return &Config{
		Paths: PathsConfig{
			Import:        "/data/import",
			Todo:          "/data/todo",
			ExportElectro: "/data/export_electro",
			ExportGeneral: "/data/export_general",
		},
		Schedule: ScheduleConfig{Interval: 5 * time.Minute},
		Catalog: CatalogConfig{
			SearchURL: cat.SearchURL,
			UserAgent: cat.UserAgent,
			Timeout:   cat.Timeout,
			RateLimit: cat.RateLimit,
			MinScore:  cat.MinScore,
		},
		Layout: LayoutConfig{Folder: layout.Folder, Filename: layout.Filename},
		Log:    LogConfig{Level: "info", Format: logging.FormatAuto},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(xdg.DataHome, appName, "history.db"),
		},
		LockFile: defaultLockFile(),
	}
}

// Load reads the configuration. Files are applied in order of priority
// (last wins): the XDG config file, ./config.toml, then explicit when set.
// CRATE_* environment variables override every file. An explicit path
// that does not exist is an error; the other files are optional.
func Load(explicit string) (*Config, error) {
	return load(getConfigPaths(), explicit)
}

func load(paths []string, explicit string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}
	if explicit != "" {
		if err := k.Load(file.Provider(expandPath(explicit)), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", explicit, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Paths.Import = expandPath(cfg.Paths.Import)
	cfg.Paths.Todo = expandPath(cfg.Paths.Todo)
	cfg.Paths.ExportElectro = expandPath(cfg.Paths.ExportElectro)
	cfg.Paths.ExportGeneral = expandPath(cfg.Paths.ExportGeneral)
	cfg.History.Path = expandPath(cfg.History.Path)
	cfg.LockFile = expandPath(cfg.LockFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps CRATE_PATHS__EXPORT_ELECTRO to paths.export_electro.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/crate/config.toml
		filepath.Join(xdg.ConfigHome, appName, configFileName),
		// 2. ./config.toml
		configFileName,
	}
}

// defaultLockFile places the lock in the user runtime directory, or the
// temp directory when no runtime directory is set.
func defaultLockFile() string {
	if os.Getenv("XDG_RUNTIME_DIR") != "" {
		return filepath.Join(xdg.RuntimeDir, appName+".lock")
	}
	return filepath.Join(os.TempDir(), appName+".lock")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ key, value string }{
		{"paths.import", c.Paths.Import},
		{"paths.todo", c.Paths.Todo},
		{"paths.export_electro", c.Paths.ExportElectro},
		{"paths.export_general", c.Paths.ExportGeneral},
		{"catalog.search_url", c.Catalog.SearchURL},
		{"lock_file", c.LockFile},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalid, r.key))
		}
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%w: schedule.interval must be positive", ErrInvalid))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: catalog.timeout must be positive", ErrInvalid))
	}
	if c.Catalog.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: catalog.rate_limit must not be negative", ErrInvalid))
	}
	if c.Catalog.MinScore < 0 {
		errs = append(errs, fmt.Errorf("%w: catalog.min_score must not be negative", ErrInvalid))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, fmt.Errorf("%w: history.path is required when history is enabled", ErrInvalid))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level: %w", ErrInvalid, err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q is not one of auto, console, json", ErrInvalid, c.Log.Format))
	}
	if err := c.LayoutSettings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: layout: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// CatalogSettings returns the catalog client configuration.
func (c *Config) CatalogSettings() catalog.Config {
	return catalog.Config{
		SearchURL: c.Catalog.SearchURL,
		UserAgent: c.Catalog.UserAgent,
		Timeout:   c.Catalog.Timeout,
		RateLimit: c.Catalog.RateLimit,
		MinScore:  c.Catalog.MinScore,
	}
}

// LayoutSettings returns the electro destination layout.
func (c *Config) LayoutSettings() rename.Layout {
	return rename.Layout{Folder: c.Layout.Folder, Filename: c.Layout.Filename}
}

// LogOptions returns the logger options. Output is left for the caller.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format}
}
