// Package matching resolves festival films to catalog titles.
//
// Candidates are scored on token overlap of the titles, exact or partial
// title equality, release-year distance, title type and catalog popularity
// rank. The best candidate per film is kept across all of its search queries
// and accepted only at or above the configured minimum score.
package matching
