// Package main hosts the festsync CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the structured
// logger, and hands off to the ingest pipeline, the catalog enricher, or the
// read-only store inspection helpers. Commands print a short human summary
// or, with --json, the raw summary values.
package main
