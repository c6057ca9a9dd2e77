package fetch

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int, policy Policy) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	var build *buildError
	if errors.As(err, &build) {
		return 0, false
	}

	var reply *statusReply
	if errors.As(err, &reply) {
		if !retryableStatus(reply.Status) {
			return 0, false
		}
		if delay, ok := parseRetryAfter(reply.retryAfter, time.Now()); ok {
			return capDelay(delay, maxRetryAfter), true
		}
		return c.backoffDelay(attempt, policy.JitterMax), true
	}

	// Transport failure or attempt deadline with the parent still live.
	return c.backoffDelay(attempt, policy.JitterMax), true
}

// maxRetryAfter bounds how long a server may ask us to wait before the next attempt.
const maxRetryAfter = 2 * time.Minute

// maxRetryAfterSeconds is the largest delta-seconds value a Duration can hold.
const maxRetryAfterSeconds = float64(math.MaxInt64 / int64(time.Second))

func capDelay(delay, ceiling time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if ceiling > 0 && delay > ceiling {
		return ceiling
	}
	return delay
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// backoffDelay returns min(max, base*2^(attempt-1)) plus jitter in [0, jitterMax).
func (c *Client) backoffDelay(attempt int, jitterMax time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBaseDelay
	maxDelay := c.retryMaxDelay
	if base < 0 {
		base = 0
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	if c.jitter != nil && jitterMax > 0 {
		if extra := c.jitter(jitterMax); extra > 0 {
			delay += extra
		}
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta seconds (fractional allowed) or an HTTP date.
// Past dates and negative values clamp to zero; values too large for a
// Duration saturate.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, false
		}
		if seconds < 0 {
			return 0, true
		}
		if seconds >= maxRetryAfterSeconds {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(math.Floor(seconds*1000)) * time.Millisecond, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := when.Sub(now)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}
