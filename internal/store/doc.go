// Package store persists festsync data in SQLite (default) or Postgres.
//
// Raw page responses and per-entity payloads are kept verbatim with a
// content-hash version log. Normalized films, people, credits, venues and
// screenings are upserted idempotently and carry the id of the last run
// that saw them so whole-run sweeps can deactivate vanished rows. External
// catalog links and rating snapshots live alongside the normalized rows.
//
// Page-scoped writes go through WithTx. Everything else runs on the Store
// directly and retries SQLITE_BUSY contention.
package store
