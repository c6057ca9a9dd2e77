package matching

import (
	"context"
	"fmt"

	"festsync/internal/services/imdb"
)

// DefaultMinScore is the acceptance threshold used when none is configured.
const DefaultMinScore = 66.0

// Searcher returns catalog candidates for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]imdb.Candidate, error)
}

// Match is the best candidate found for a film.
type Match struct {
	Candidate imdb.Candidate
	Score     float64
	Queries   []string
	// Accepted is false when Score is below the matcher's threshold.
	Accepted bool
}

// Matcher picks the best catalog candidate for a film across all its queries.
type Matcher struct {
	searcher Searcher
	minScore float64
}

// NewMatcher constructs a matcher. A negative minScore selects DefaultMinScore.
func NewMatcher(searcher Searcher, minScore float64) *Matcher {
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &Matcher{searcher: searcher, minScore: minScore}
}

// MinScore reports the acceptance threshold.
func (m *Matcher) MinScore() float64 {
	return m.minScore
}

// MatchFilm searches every query of film and returns the highest scoring
// candidate, or nil when no query produced any candidate. A search failure
// aborts the film.
func (m *Matcher) MatchFilm(ctx context.Context, film Film) (*Match, error) {
	queries := BuildQueries(film)

	type scored struct {
		candidate imdb.Candidate
		score     float64
	}
	byID := make(map[string]scored)
	var order []string

	for _, query := range queries {
		candidates, err := m.searcher.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		var best *scored
		for _, candidate := range candidates {
			s := Score(film, candidate)
			if best == nil || s > best.score {
				best = &scored{candidate: candidate, score: s}
			}
		}
		if best == nil {
			continue
		}
		current, seen := byID[best.candidate.ID]
		if !seen {
			order = append(order, best.candidate.ID)
		}
		if !seen || best.score > current.score {
			byID[best.candidate.ID] = *best
		}
	}

	if len(order) == 0 {
		return nil, nil
	}
	top := byID[order[0]]
	for _, id := range order[1:] {
		if next := byID[id]; next.score > top.score {
			top = next
		}
	}
	return &Match{
		Candidate: top.candidate,
		Score:     top.score,
		Queries:   queries,
		Accepted:  top.score >= m.minScore,
	}, nil
}
