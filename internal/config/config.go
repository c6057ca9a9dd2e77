package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store selects the relational backend.
type Store struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// Feed contains configuration for the upstream festival-program feed.
type Feed struct {
	Source    string `toml:"source"`
	BaseURL   string `toml:"base_url"`
	Endpoint  string `toml:"endpoint"`
	Locale    string `toml:"locale"`
	Origin    string `toml:"origin"`
	UserAgent string `toml:"user_agent"`
	MaxPages  int    `toml:"max_pages"`
	Retries   int    `toml:"retries"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Catalog contains configuration for the external film catalog used during enrichment.
type Catalog struct {
	SuggestBaseURL string  `toml:"suggest_base_url"`
	TitleBaseURL   string  `toml:"title_base_url"`
	UserAgent      string  `toml:"user_agent"`
	MinScore       float64 `toml:"min_score"`
	Retries        int     `toml:"retries"`
	TimeoutMS      int     `toml:"timeout_ms"`
	DelayMS        int     `toml:"delay_ms"`
	RespectRobots  bool    `toml:"respect_robots"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for festsync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: sqlite file or postgres DSN
//   - Feed: program feed endpoint, pagination cap, retry policy
//   - Catalog: IMDb endpoints, match threshold, politeness delay
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Feed    Feed    `toml:"feed"`
	Catalog Catalog `toml:"catalog"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("festsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories, plus the parent of
// a custom sqlite path.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Store.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.DatabasePath()))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database file location.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Store.Path) != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
}

// LockPath returns the advisory lock file guarding writers of the database.
func (c *Config) LockPath() string {
	if c.Store.Driver == DriverPostgres {
		return filepath.Join(c.Paths.DataDir, "festsync.lock")
	}
	return c.DatabasePath() + ".lock"
}

// FeedEndpoint returns the program endpoint for a locale. An explicit
// feed.endpoint wins over the base_url/locale template.
func (c *Config) FeedEndpoint(locale string) string {
	if strings.TrimSpace(c.Feed.Endpoint) != "" {
		return c.Feed.Endpoint
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = c.Feed.Locale
	}
	return strings.TrimRight(c.Feed.BaseURL, "/") + "/" + locale + "/festival-program"
}

// FeedTimeout returns the per-attempt timeout for feed requests.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutMS) * time.Millisecond
}

// CatalogTimeout returns the per-attempt timeout for catalog requests.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutMS) * time.Millisecond
}

// CatalogDelay returns the pause between films during enrichment.
func (c *Config) CatalogDelay() time.Duration {
	return time.Duration(c.Catalog.DelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
