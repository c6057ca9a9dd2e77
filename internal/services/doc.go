// Package services defines shared utilities consumed by the ingest pipeline,
// the enrichment batch, and the external integrations under it.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, film IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     terminal network failure from a schema violation or a collision with
//     errors.Is.
//
// The feed and imdb subpackages are the two HTTP integrations; both sit on
// top of internal/fetch for retry behaviour.
package services
