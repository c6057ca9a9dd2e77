// Package textutil provides title normalization and token similarity used
// when matching festival films against an external catalog.
//
// Normalization lowercases text, decomposes it (NFKD), drops combining
// diacritical marks, replaces anything outside [a-z0-9] and whitespace with a
// space, and collapses runs of whitespace. Tokens are the space-separated
// words of the normalized form.
package textutil
