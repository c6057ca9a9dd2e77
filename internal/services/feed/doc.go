// Package feed talks to the festival-program endpoint: a JSON POST carrying
// {"Page": n} with the browser-like origin headers the upstream expects.
package feed
