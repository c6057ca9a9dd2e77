// Package config loads, normalizes, and validates festsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FESTSYNC_POSTGRES_DSN. The Config type centralizes every knob the ingest
// and enrichment commands need so the store location, feed endpoint, and
// catalog politeness settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
