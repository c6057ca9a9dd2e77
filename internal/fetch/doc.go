// Package fetch issues HTTP requests with per-attempt timeouts, bounded
// exponential backoff with jitter, and Retry-After support.
//
// Only 429 and 5xx replies, transport errors, and attempt timeouts are
// retried. Every other non-2xx reply, and the last failed attempt, surfaces
// as a *RequestFailedError or an error wrapping services.ErrRequestFailed.
// Cancelling the parent context stops the loop immediately. An optional
// robots.txt gate refuses disallowed GETs before any request is sent.
package fetch
