package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned when robots.txt forbids the requested path.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const robotsTimeout = 10 * time.Second

type robotsGate struct {
	userAgent string
	mu        sync.RWMutex
	cache     map[string]*robotstxt.RobotsData
}

func newRobotsGate(userAgent string) *robotsGate {
	return &robotsGate{
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// allowed fetches robots.txt once per scheme+host. Unreachable or non-200
// robots files allow everything.
func (g *robotsGate) allowed(ctx context.Context, client *http.Client, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	g.mu.RLock()
	robots, exists := g.cache[robotsURL]
	g.mu.RUnlock()

	if !exists {
		robots = g.fetch(ctx, client, robotsURL)
		g.mu.Lock()
		g.cache[robotsURL] = robots
		g.mu.Unlock()
	}
	if robots == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.FindGroup(g.userAgent).Test(path), nil
}

func (g *robotsGate) fetch(ctx context.Context, client *http.Client, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
