package config

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultConfigPath     = "~/.config/festsync/config.toml"
	defaultDataDir        = "~/.local/share/festsync"
	defaultLogDir         = "~/.local/share/festsync/logs"
	defaultDatabaseFile   = "festsync.db"
	defaultStoreDriver    = DriverSQLite
	defaultFeedSource     = "berlinale festival-program"
	defaultFeedBaseURL    = "https://www.berlinale.de/api/v1"
	defaultFeedLocale     = "de"
	defaultFeedOrigin     = "https://www.berlinale.de"
	defaultFeedUserAgent  = "festsync/0.1"
	defaultFeedMaxPages   = 500
	defaultFeedRetries    = 4
	defaultFeedTimeoutMS  = 20000
	defaultSuggestBaseURL = "https://v3.sg.media-imdb.com/suggestion"
	defaultTitleBaseURL   = "https://www.imdb.com/title"
	defaultCatalogAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	defaultMinScore       = 66.0
	defaultCatalogRetries = 3
	defaultCatalogTimeout = 20000
	defaultCatalogDelayMS = 120
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Feed: Feed{
			Source:    defaultFeedSource,
			BaseURL:   defaultFeedBaseURL,
			Locale:    defaultFeedLocale,
			Origin:    defaultFeedOrigin,
			UserAgent: defaultFeedUserAgent,
			MaxPages:  defaultFeedMaxPages,
			Retries:   defaultFeedRetries,
			TimeoutMS: defaultFeedTimeoutMS,
		},
		Catalog: Catalog{
			SuggestBaseURL: defaultSuggestBaseURL,
			TitleBaseURL:   defaultTitleBaseURL,
			UserAgent:      defaultCatalogAgent,
			MinScore:       defaultMinScore,
			Retries:        defaultCatalogRetries,
			TimeoutMS:      defaultCatalogTimeout,
			DelayMS:        defaultCatalogDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
