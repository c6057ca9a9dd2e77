package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"festsync/internal/logging"
	"festsync/internal/services"
)

const (
	defaultTimeout        = 20 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second
)

// Request describes a single logical HTTP exchange. Body is replayed on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Validate, when set, checks each 2xx body. A rejected body counts as a
	// failed attempt and is retried like a transport error.
	Validate func(body []byte) error
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	URL      string
	Attempts int
}

// Policy bounds the retry behaviour of one Do call.
type Policy struct {
	// Timeout applies to each attempt separately.
	Timeout time.Duration
	// Retries is the number of additional attempts after the first.
	Retries int
	// JitterMax is the upper bound of the random delay added to backoff.
	JitterMax time.Duration
}

// RequestFailedError reports a non-2xx reply that will not be retried further.
type RequestFailedError struct {
	Status   int
	URL      string
	Attempts int
	Body     string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Is lets callers classify the error with services.ErrRequestFailed.
func (e *RequestFailedError) Is(target error) bool {
	return target == services.ErrRequestFailed
}

// Client performs HTTP requests with per-attempt timeouts and bounded retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	robots     *robotsGate

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
	jitter         func(limit time.Duration) time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithJitterSource overrides the random jitter added to backoff delays.
func WithJitterSource(source func(limit time.Duration) time.Duration) Option {
	return func(c *Client) {
		c.jitter = source
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRobots enables a robots.txt check before each GET, evaluated for userAgent.
func WithRobots(userAgent string) Option {
	return func(c *Client) {
		c.robots = newRobotsGate(userAgent)
	}
}

// NewClient constructs a fetch client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:     &http.Client{},
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
		jitter:         randomJitter,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	client.logger = logging.NewComponentLogger(client.logger, "fetch")
	return client
}

// Do issues req, retrying 429 and 5xx replies, transport errors, attempt
// timeouts and bodies rejected by req.Validate until policy.Retries is exhausted.
func (c *Client) Do(ctx context.Context, req Request, policy Policy) (*Response, error) {
	if ctx == nil {
		return nil, errors.New("fetch: nil context")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	req.Method = method

	if c.robots != nil && method == http.MethodGet {
		allowed, err := c.robots.allowed(ctx, c.httpClient, req.URL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, req.URL)
		}
	}

	attempts := policy.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.once(ctx, req, policy.Timeout)
		if err == nil && req.Validate != nil {
			if verr := req.Validate(resp.Body); verr != nil {
				resp, err = nil, &bodyError{err: verr}
			}
		}
		if err == nil {
			resp.Attempts = attempt
			return resp, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts, policy)
		if !retry {
			return nil, c.terminal(ctx, err, req, attempt)
		}
		c.logger.Debug("retrying request",
			logging.String("url", req.URL),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) once(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, &buildError{err: err}
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusReply{
			RequestFailedError: RequestFailedError{
				Status: resp.StatusCode,
				URL:    req.URL,
				Body:   strings.TrimSpace(string(payload)),
			},
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   payload,
		URL:    req.URL,
	}, nil
}

func (c *Client) terminal(ctx context.Context, err error, req Request, attempt int) error {
	var reply *statusReply
	if errors.As(err, &reply) {
		failed := reply.RequestFailedError
		failed.Attempts = attempt
		return &failed
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("fetch %s: %w", req.URL, ctxErr)
	}
	var build *buildError
	if errors.As(err, &build) {
		return services.Wrap(services.ErrValidation, "fetch", req.Method, req.URL, build.err)
	}
	var rejected *bodyError
	if errors.As(err, &rejected) {
		return services.Wrap(
			services.ErrValidation,
			"fetch",
			req.Method,
			fmt.Sprintf("%s after %d attempts", req.URL, attempt),
			rejected.err,
		)
	}
	return services.Wrap(
		services.ErrRequestFailed,
		"fetch",
		req.Method,
		fmt.Sprintf("%s after %d attempts", req.URL, attempt),
		err,
	)
}

// statusReply carries the raw Retry-After header alongside the status failure.
type statusReply struct {
	RequestFailedError
	retryAfter string
}

func (e *statusReply) Unwrap() error { return &e.RequestFailedError }

type buildError struct{ err error }

func (e *buildError) Error() string { return "build request: " + e.err.Error() }

func (e *buildError) Unwrap() error { return e.err }

type bodyError struct{ err error }

func (e *bodyError) Error() string { return "invalid body: " + e.err.Error() }

func (e *bodyError) Unwrap() error { return e.err }

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}
