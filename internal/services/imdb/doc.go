// Package imdb is a small client for the public IMDb suggestion endpoint and
// title detail pages.
//
// Search turns a free-text query into title candidates. Rating scrapes the
// aggregate rating of a title from its ld+json metadata, falling back to a
// pattern over the embedded page state. Requests go through fetch.Client, so
// retries, per-attempt timeouts and the optional robots.txt gate apply.
package imdb
