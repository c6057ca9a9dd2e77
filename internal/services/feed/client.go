package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"festsync/internal/fetch"
	"festsync/internal/services"
)

const (
	defaultOrigin    = "https://www.berlinale.de"
	defaultUserAgent = "festsync/0.1"
	feedJitter       = 250 * time.Millisecond
)

var errInvalidJSON = errors.New("reply is not valid JSON")

// Config captures the settings for one program endpoint.
type Config struct {
	Endpoint  string
	Origin    string
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

// Page is one decoded program page together with the exact bytes received.
type Page struct {
	Number  int
	Status  int
	Request []byte
	Raw     []byte
	Payload any
}

// Client posts page requests to the festival-program endpoint.
type Client struct {
	cfg     Config
	fetcher *fetch.Client
}

// NewClient constructs a feed client. A nil fetcher gets a default fetch.Client.
func NewClient(cfg Config, fetcher *fetch.Client) *Client {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Origin = strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if cfg.Origin == "" {
		cfg.Origin = defaultOrigin
	}
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if fetcher == nil {
		fetcher = fetch.NewClient()
	}
	return &Client{cfg: cfg, fetcher: fetcher}
}

// Endpoint returns the configured program URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

type pageRequest struct {
	Page int `json:"Page"`
}

// FetchPage requests page number n (1-based) and decodes the JSON reply.
func (c *Client) FetchPage(ctx context.Context, n int) (Page, error) {
	body, err := json.Marshal(pageRequest{Page: n})
	if err != nil {
		return Page{}, fmt.Errorf("encode page request: %w", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Content-Type", "application/json")
	header.Set("Origin", c.cfg.Origin)
	header.Set("Referer", c.cfg.Origin+"/")
	header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.fetcher.Do(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.cfg.Endpoint,
		Header: header,
		Body:   body,
		Validate: func(reply []byte) error {
			if !json.Valid(reply) {
				return errInvalidJSON
			}
			return nil
		},
	}, fetch.Policy{
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
		JitterMax: feedJitter,
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch page %d: %w", n, err)
	}

	var payload any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return Page{}, services.Wrap(services.ErrValidation, "feed", "decode", fmt.Sprintf("page %d", n), err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, resp.Body); err != nil {
		return Page{}, services.Wrap(services.ErrValidation, "feed", "decode", fmt.Sprintf("page %d", n), err)
	}

	return Page{
		Number:  n,
		Status:  resp.Status,
		Request: body,
		Raw:     compact.Bytes(),
		Payload: payload,
	}, nil
}
