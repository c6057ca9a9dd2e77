package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or export FESTSYNC_POSTGRES_DSN)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateFeed() error {
	if err := ensurePositiveMap(map[string]int{
		"feed.max_pages":  c.Feed.MaxPages,
		"feed.timeout_ms": c.Feed.TimeoutMS,
	}); err != nil {
		return err
	}
	if c.Feed.Retries < 0 {
		return errors.New("feed.retries must be >= 0")
	}
	if c.Feed.Endpoint != "" {
		if err := ensureHTTPURL("feed.endpoint", c.Feed.Endpoint); err != nil {
			return err
		}
		return nil
	}
	return ensureHTTPURL("feed.base_url", c.Feed.BaseURL)
}

func (c *Config) validateCatalog() error {
	if err := ensurePositiveMap(map[string]int{
		"catalog.timeout_ms": c.Catalog.TimeoutMS,
	}); err != nil {
		return err
	}
	if c.Catalog.Retries < 0 {
		return errors.New("catalog.retries must be >= 0")
	}
	if c.Catalog.DelayMS < 0 {
		return errors.New("catalog.delay_ms must be >= 0")
	}
	if c.Catalog.MinScore < 0 || c.Catalog.MinScore > 100 {
		return errors.New("catalog.min_score must be between 0 and 100")
	}
	if err := ensureHTTPURL("catalog.suggest_base_url", c.Catalog.SuggestBaseURL); err != nil {
		return err
	}
	return ensureHTTPURL("catalog.title_base_url", c.Catalog.TitleBaseURL)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, value)
	}
	return nil
}
