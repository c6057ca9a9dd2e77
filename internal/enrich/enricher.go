package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"festsync/internal/logging"
	"festsync/internal/matching"
	"festsync/internal/services"
	"festsync/internal/services/imdb"
	"festsync/internal/store"
)

// SourceCode identifies the catalog row in external_sources.
const SourceCode = "imdb"

// Catalog is the external catalog consulted for candidates and ratings.
type Catalog interface {
	matching.Searcher
	Rating(ctx context.Context, id string) (*imdb.Rating, error)
}

// Outcome classifies what happened to one film.
type Outcome string

const (
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeCollision Outcome = "collision"
	OutcomeMatched   Outcome = "matched"
	OutcomeRated     Outcome = "rated"
)

// Result is the outcome of enriching one film.
type Result struct {
	Outcome Outcome
	Match   *matching.Match
	Rating  *imdb.Rating
	// ExistingFilmID is the film already holding the id on a collision.
	ExistingFilmID int64
}

// Options select the films of one batch.
type Options struct {
	Force bool
	Limit int
	Delay time.Duration
}

// Summary aggregates the outcomes of a batch.
type Summary struct {
	Target     int `json:"target"`
	Processed  int `json:"processed"`
	Matched    int `json:"matched"`
	Rated      int `json:"rated"`
	Unmatched  int `json:"unmatched"`
	Collisions int `json:"collisions"`
	Errors     int `json:"errors"`
}

// Enricher links films to catalog titles and records rating snapshots.
type Enricher struct {
	store   *store.Store
	catalog Catalog
	matcher *matching.Matcher
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithClock overrides the time source for link and rating timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSleeper overrides the politeness delay between films.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Enricher) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewEnricher constructs an enricher accepting matches at or above minScore.
func NewEnricher(st *store.Store, catalog Catalog, minScore float64, logger *slog.Logger, opts ...Option) *Enricher {
	e := &Enricher{
		store:   st,
		catalog: catalog,
		matcher: matching.NewMatcher(catalog, minScore),
		logger:  logging.NewComponentLogger(logger, "enrich"),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run enriches active films one at a time in film_id order. Per-film
// failures are counted and logged; only fatal errors and cancellation stop
// the batch.
func (e *Enricher) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	sourceID, err := e.store.ExternalSourceID(ctx, SourceCode)
	if err != nil {
		return summary, err
	}
	films, err := e.store.FilmsForEnrichment(ctx, sourceID, opts.Force, opts.Limit)
	if err != nil {
		return summary, err
	}
	summary.Target = len(films)
	e.logger.Info("imdb enrich started",
		logging.Int("target", summary.Target),
		logging.Float64("min_score", e.matcher.MinScore()),
		logging.Bool("force", opts.Force),
	)

	for _, film := range films {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Processed++
		filmCtx := services.WithFilmID(ctx, film.FilmID)
		logger := logging.WithContext(filmCtx, e.logger)
		verbose := summary.Processed <= 10 || summary.Processed%25 == 0

		result, err := e.EnrichFilm(filmCtx, sourceID, film)
		summary.tally(result)
		if err != nil {
			if services.IsFatal(err) {
				return summary, err
			}
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Errors++
			logging.WarnWithContext(logger, "imdb enrich failed", "enrich_film_failed",
				logging.String("title", film.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun festsync enrich to retry this film"),
				logging.String(logging.FieldImpact, "film left without rating or link"),
			)
		} else if verbose || result.Outcome == OutcomeCollision {
			e.logResult(logger, film, result)
		}

		if err := e.sleep(ctx, opts.Delay); err != nil {
			return summary, err
		}
	}

	e.logger.Info("imdb enrich finished",
		logging.Int("processed", summary.Processed),
		logging.Int("matched", summary.Matched),
		logging.Int("rated", summary.Rated),
		logging.Int("unmatched", summary.Unmatched),
		logging.Int("collisions", summary.Collisions),
		logging.Int("errors", summary.Errors),
	)
	return summary, nil
}

func (s *Summary) tally(result Result) {
	switch result.Outcome {
	case OutcomeUnmatched:
		s.Unmatched++
	case OutcomeCollision:
		s.Collisions++
	case OutcomeMatched:
		s.Matched++
	case OutcomeRated:
		s.Matched++
		s.Rated++
	}
}

// EnrichFilm matches one film, links it unless another film already owns the
// catalog id, then appends a rating snapshot when the title page has one. A
// rating failure after a successful link returns OutcomeMatched with the error.
func (e *Enricher) EnrichFilm(ctx context.Context, sourceID int64, film store.EnrichmentFilm) (Result, error) {
	match, err := e.matcher.MatchFilm(ctx, matching.Film{
		ID:            film.FilmID,
		Title:         film.Title,
		OriginalTitle: film.OriginalTitle,
		Year:          film.Year,
	})
	if err != nil {
		return Result{}, err
	}
	if match == nil || !match.Accepted {
		return Result{Outcome: OutcomeUnmatched, Match: match}, nil
	}

	imdbID := match.Candidate.ID
	owner, linked, err := e.store.LinkOwner(ctx, sourceID, imdbID)
	if err != nil {
		return Result{}, err
	}
	if linked && owner != film.FilmID {
		return Result{Outcome: OutcomeCollision, Match: match, ExistingFilmID: owner}, nil
	}

	matchedAt := e.now().UTC()
	evidence, err := json.Marshal(linkEvidence{
		MatchedAt: matchedAt.Format(time.RFC3339Nano),
		Score:     match.Score,
		Candidate: match.Candidate,
		Queries:   match.Queries,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode match evidence: %w", err)
	}
	if err := e.store.UpsertExternalLink(ctx, store.ExternalLink{
		FilmID:     film.FilmID,
		SourceID:   sourceID,
		ExternalID: imdbID,
		URL:        imdb.CanonicalTitleURL(imdbID),
		RawJSON:    evidence,
		FetchedAt:  matchedAt,
	}); err != nil {
		if errors.Is(err, services.ErrCollision) {
			return Result{Outcome: OutcomeCollision, Match: match}, nil
		}
		return Result{}, err
	}

	result := Result{Outcome: OutcomeMatched, Match: match}
	rating, err := e.catalog.Rating(ctx, imdbID)
	if err != nil {
		return result, fmt.Errorf("rating %s: %w", imdbID, err)
	}
	if rating == nil {
		return result, nil
	}

	fetchedAt := e.now().UTC()
	raw, err := json.Marshal(ratingEvidence{
		IMDbID:    imdbID,
		FetchedAt: fetchedAt.Format(time.RFC3339Nano),
		Rating:    *rating,
	})
	if err != nil {
		return result, fmt.Errorf("encode rating evidence: %w", err)
	}
	if err := e.store.InsertRating(ctx, store.Rating{
		FilmID:    film.FilmID,
		SourceID:  sourceID,
		Value:     rating.Value,
		Scale:     rating.Scale,
		VoteCount: rating.VoteCount,
		RawJSON:   raw,
		FetchedAt: fetchedAt,
	}); err != nil {
		return result, err
	}
	result.Outcome = OutcomeRated
	result.Rating = rating
	return result, nil
}

type linkEvidence struct {
	MatchedAt string         `json:"matchedAt"`
	Score     float64        `json:"score"`
	Candidate imdb.Candidate `json:"candidate"`
	Queries   []string       `json:"queries"`
}

type ratingEvidence struct {
	IMDbID    string      `json:"imdbId"`
	FetchedAt string      `json:"fetchedAt"`
	Rating    imdb.Rating `json:"rating"`
}

func (e *Enricher) logResult(logger *slog.Logger, film store.EnrichmentFilm, result Result) {
	switch result.Outcome {
	case OutcomeUnmatched:
		attrs := []logging.Attr{logging.String("title", film.Title)}
		if result.Match != nil {
			attrs = append(attrs, logging.Float64("score", result.Match.Score))
		}
		logger.Info("imdb unmatched", logging.Args(attrs...)...)
	case OutcomeCollision:
		logging.WarnWithContext(logger, "imdb id already linked", "enrich_collision",
			logging.String("imdb_id", result.Match.Candidate.ID),
			logging.Int64("existing_film_id", result.ExistingFilmID),
			logging.String(logging.FieldErrorHint, "review both films and relink manually"),
			logging.String(logging.FieldImpact, "film left unlinked"),
		)
	default:
		attrs := []logging.Attr{
			logging.String("imdb_id", result.Match.Candidate.ID),
			logging.Float64("score", result.Match.Score),
		}
		if result.Rating != nil {
			attrs = append(attrs, logging.Float64("rating", result.Rating.Value))
		}
		logger.Info("imdb match", logging.Args(attrs...)...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
