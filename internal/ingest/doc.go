// Package ingest pulls the festival-program feed page by page into the store.
//
// Every run gets a UUID and an ingest_runs row. Each page is stored verbatim,
// its items are versioned by content hash and normalized into films, people,
// credits, venues and screenings, all inside one transaction per page. After
// the last page the run's liveness sweep deactivates anything it did not see.
package ingest
