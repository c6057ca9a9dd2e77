package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeCatalog()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Store.Driver = DriverPostgres
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("FESTSYNC_POSTGRES_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Store.Path) != "" {
		var err error
		if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFeed() {
	c.Feed.Source = strings.TrimSpace(c.Feed.Source)
	if c.Feed.Source == "" {
		c.Feed.Source = defaultFeedSource
	}
	c.Feed.BaseURL = strings.TrimSpace(c.Feed.BaseURL)
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = defaultFeedBaseURL
	}
	c.Feed.Endpoint = strings.TrimSpace(c.Feed.Endpoint)
	c.Feed.Locale = strings.ToLower(strings.TrimSpace(c.Feed.Locale))
	if c.Feed.Locale == "" {
		c.Feed.Locale = defaultFeedLocale
	}
	c.Feed.Origin = strings.TrimRight(strings.TrimSpace(c.Feed.Origin), "/")
	c.Feed.UserAgent = strings.TrimSpace(c.Feed.UserAgent)
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = defaultFeedUserAgent
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.SuggestBaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.SuggestBaseURL), "/")
	if c.Catalog.SuggestBaseURL == "" {
		c.Catalog.SuggestBaseURL = defaultSuggestBaseURL
	}
	c.Catalog.TitleBaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.TitleBaseURL), "/")
	if c.Catalog.TitleBaseURL == "" {
		c.Catalog.TitleBaseURL = defaultTitleBaseURL
	}
	c.Catalog.UserAgent = strings.TrimSpace(c.Catalog.UserAgent)
	if c.Catalog.UserAgent == "" {
		c.Catalog.UserAgent = defaultCatalogAgent
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
