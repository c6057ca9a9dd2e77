package imdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"festsync/internal/fetch"
	"festsync/internal/textutil"
)

const (
	defaultSuggestBaseURL = "https://v3.sg.media-imdb.com/suggestion"
	defaultTitleBaseURL   = "https://www.imdb.com/title"
	// DefaultUserAgent mimics a desktop browser; the title pages reject bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	catalogJitter    = 200 * time.Millisecond
)

// Config captures catalog endpoints and request policy.
type Config struct {
	SuggestBaseURL string
	TitleBaseURL   string
	UserAgent      string
	Timeout        time.Duration
	Retries        int
}

// Client queries the IMDb suggestion endpoint and title pages.
type Client struct {
	cfg     Config
	fetcher *fetch.Client
}

// NewClient constructs a catalog client. A nil fetcher gets a default fetch.Client.
func NewClient(cfg Config, fetcher *fetch.Client) *Client {
	cfg.SuggestBaseURL = strings.TrimRight(strings.TrimSpace(cfg.SuggestBaseURL), "/")
	if cfg.SuggestBaseURL == "" {
		cfg.SuggestBaseURL = defaultSuggestBaseURL
	}
	cfg.TitleBaseURL = strings.TrimRight(strings.TrimSpace(cfg.TitleBaseURL), "/")
	if cfg.TitleBaseURL == "" {
		cfg.TitleBaseURL = defaultTitleBaseURL
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if fetcher == nil {
		fetcher = fetch.NewClient()
	}
	return &Client{cfg: cfg, fetcher: fetcher}
}

// Search returns the title candidates suggested for query. A blank query
// yields no candidates and issues no request.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	header := http.Header{}
	header.Set("User-Agent", c.cfg.UserAgent)
	header.Set("Accept", "application/json")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.fetcher.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.SuggestionURL(query),
		Header: header,
	}, c.policy())
	if err != nil {
		return nil, fmt.Errorf("imdb suggestion %q: %w", query, err)
	}
	candidates, err := ParseSuggestions(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imdb suggestion %q: %w", query, err)
	}
	return candidates, nil
}

// SuggestionURL builds <base>/<first char>/<escaped query>.json. The first
// char is the first normalized character when it is [a-z0-9], else "a".
func (c *Client) SuggestionURL(query string) string {
	query = strings.TrimSpace(query)
	first := "a"
	if normalized := textutil.NormalizeTitle(query); normalized != "" {
		if ch := normalized[0]; (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			first = string(ch)
		}
	}
	return fmt.Sprintf("%s/%s/%s.json", c.cfg.SuggestBaseURL, first, escapeComponent(query))
}

// CanonicalTitleURL is the public IMDb page of a title id, independent of
// the configured base URL.
func CanonicalTitleURL(id string) string {
	return "https://www.imdb.com/title/" + id + "/"
}

// TitleURL is the detail page of an IMDb title id.
func (c *Client) TitleURL(id string) string {
	return fmt.Sprintf("%s/%s/", c.cfg.TitleBaseURL, id)
}

// Rating fetches the detail page of id and extracts its aggregate rating.
// It returns nil without error when the page carries no rating.
func (c *Client) Rating(ctx context.Context, id string) (*Rating, error) {
	resp, err := c.fetcher.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.TitleURL(id),
		Header: c.browserHeaders(),
	}, c.policy())
	if err != nil {
		return nil, fmt.Errorf("imdb title %s: %w", id, err)
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	return ParseRating(resp.Body)
}

func (c *Client) browserHeaders() http.Header {
	header := http.Header{}
	header.Set("User-Agent", c.cfg.UserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Cache-Control", "no-cache")
	header.Set("Pragma", "no-cache")
	header.Set("Sec-Fetch-Dest", "document")
	header.Set("Sec-Fetch-Mode", "navigate")
	header.Set("Sec-Fetch-Site", "none")
	header.Set("Upgrade-Insecure-Requests", "1")
	return header
}

func (c *Client) policy() fetch.Policy {
	return fetch.Policy{Timeout: c.cfg.Timeout, Retries: c.cfg.Retries, JitterMax: catalogJitter}
}

var segmentReplacer = strings.NewReplacer(
	":", "%3A",
	"@", "%40",
	"&", "%26",
	"=", "%3D",
	"+", "%2B",
	"$", "%24",
)

// escapeComponent percent-encodes a query as a single path segment, spaces as
// %20, with the path-legal delimiters also escaped.
func escapeComponent(value string) string {
	return segmentReplacer.Replace(url.PathEscape(value))
}
