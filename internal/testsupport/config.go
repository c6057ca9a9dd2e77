package testsupport

import (
	"path/filepath"
	"testing"

	"festsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retries are disabled and timeouts shortened so failing fakes return quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.Path = filepath.Join(base, "data", "festsync.db")
	cfgVal.Feed.Retries = 0
	cfgVal.Feed.TimeoutMS = 2000
	cfgVal.Catalog.Retries = 0
	cfgVal.Catalog.TimeoutMS = 2000
	cfgVal.Catalog.DelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFeedEndpoint points the feed at a fake server.
func WithFeedEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.Endpoint = endpoint
		b.cfg.Feed.Origin = endpoint
	}
}

// WithCatalog points suggestion and title lookups at a fake server.
func WithCatalog(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.SuggestBaseURL = baseURL + "/suggestion"
		b.cfg.Catalog.TitleBaseURL = baseURL + "/title"
	}
}

// WithMaxPages caps the number of feed pages.
func WithMaxPages(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.MaxPages = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
