package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"festsync/internal/services"
)

// EnrichmentFilm is the subset of a film used for catalog matching.
type EnrichmentFilm struct {
	FilmID        int64
	Title         string
	OriginalTitle string
	Year          *int
}

// ExternalLink ties a film to an id in an external catalog.
type ExternalLink struct {
	FilmID     int64
	SourceID   int64
	ExternalID string
	URL        string
	RawJSON    []byte
	FetchedAt  time.Time
}

// Rating is one rating snapshot for a linked film.
type Rating struct {
	FilmID    int64
	SourceID  int64
	Value     float64
	Scale     float64
	VoteCount *int64
	RawJSON   []byte
	FetchedAt time.Time
}

// ExternalSourceID resolves the id of a registered external source.
func (s *Store) ExternalSourceID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.queryRow(ctx, `SELECT source_id FROM external_sources WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, services.Wrap(services.ErrSchemaInvariant, "store", "external source", fmt.Sprintf("%s source missing in external_sources", code), nil)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve external source %s: %w", code, err)
	}
	return id, nil
}

// FilmsForEnrichment lists active films in film_id order. Films already linked
// to sourceID are skipped unless force is set. A limit of zero or less means
// no limit.
func (s *Store) FilmsForEnrichment(ctx context.Context, sourceID int64, force bool, limit int) ([]EnrichmentFilm, error) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT f.film_id, f.title, f.original_title, f.year FROM films f WHERE f.is_active = 1`)
	if !force {
		b.WriteString(` AND NOT EXISTS (SELECT 1 FROM film_external_ids x WHERE x.film_id = f.film_id AND x.source_id = ?)`)
		args = append(args, sourceID)
	}
	b.WriteString(` ORDER BY f.film_id`)
	if limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list films for enrichment: %w", err)
	}
	defer rows.Close()

	var films []EnrichmentFilm
	for rows.Next() {
		var film EnrichmentFilm
		var original sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&film.FilmID, &film.Title, &original, &year); err != nil {
			return nil, fmt.Errorf("scan enrichment film: %w", err)
		}
		film.OriginalTitle = original.String
		film.Year = intFromNull(year)
		films = append(films, film)
	}
	return films, rows.Err()
}

// LinkOwner returns the film already holding externalID for sourceID.
func (s *Store) LinkOwner(ctx context.Context, sourceID int64, externalID string) (int64, bool, error) {
	var filmID int64
	err := s.queryRow(ctx,
		`SELECT film_id FROM film_external_ids WHERE source_id = ? AND external_id = ?`,
		sourceID, externalID,
	).Scan(&filmID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup link owner %s: %w", externalID, err)
	}
	return filmID, true, nil
}

// UpsertExternalLink stores or replaces the link of a film to sourceID. An
// external id owned by another film yields services.ErrCollision.
func (s *Store) UpsertExternalLink(ctx context.Context, link ExternalLink) error {
	fetched := link.FetchedAt
	if fetched.IsZero() {
		fetched = s.now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO film_external_ids (film_id, source_id, external_id, url, raw_json, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (film_id, source_id) DO UPDATE SET
            external_id = excluded.external_id,
            url = excluded.url,
            raw_json = excluded.raw_json,
            fetched_at = excluded.fetched_at`,
		link.FilmID, link.SourceID, link.ExternalID, nullableString(link.URL),
		nullableBytes(link.RawJSON), formatTime(fetched),
	)
	if isUniqueViolation(err) {
		return services.Wrap(services.ErrCollision, "store", "link", fmt.Sprintf("%s already linked", link.ExternalID), err)
	}
	if err != nil {
		return fmt.Errorf("upsert external link film=%d: %w", link.FilmID, err)
	}
	return nil
}

// ExternalLinkFor returns the link of filmID for sourceID, or nil when absent.
func (s *Store) ExternalLinkFor(ctx context.Context, filmID, sourceID int64) (*ExternalLink, error) {
	link := ExternalLink{FilmID: filmID, SourceID: sourceID}
	var url, raw sql.NullString
	var fetched string
	err := s.queryRow(ctx,
		`SELECT external_id, url, raw_json, fetched_at FROM film_external_ids WHERE film_id = ? AND source_id = ?`,
		filmID, sourceID,
	).Scan(&link.ExternalID, &url, &raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get external link film=%d: %w", filmID, err)
	}
	link.URL = url.String
	if raw.Valid {
		link.RawJSON = []byte(raw.String)
	}
	if ts, err := parseTimeString(fetched); err == nil {
		link.FetchedAt = ts
	}
	return &link, nil
}

// InsertRating appends a rating snapshot. Earlier snapshots are kept.
func (s *Store) InsertRating(ctx context.Context, rating Rating) error {
	fetched := rating.FetchedAt
	if fetched.IsZero() {
		fetched = s.now()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO film_external_ratings (film_id, source_id, rating_value, rating_scale, vote_count, raw_json, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rating.FilmID, rating.SourceID, rating.Value, rating.Scale,
		nullableInt64(rating.VoteCount), nullableBytes(rating.RawJSON), formatTime(fetched),
	); err != nil {
		return fmt.Errorf("insert rating film=%d: %w", rating.FilmID, err)
	}
	return nil
}

// LatestRating returns the newest rating snapshot of filmID for sourceID, or nil.
func (s *Store) LatestRating(ctx context.Context, filmID, sourceID int64) (*Rating, error) {
	rating := Rating{FilmID: filmID, SourceID: sourceID}
	var votes sql.NullInt64
	var raw sql.NullString
	var fetched string
	err := s.queryRow(ctx,
		`SELECT rating_value, rating_scale, vote_count, raw_json, fetched_at
        FROM film_external_ratings WHERE film_id = ? AND source_id = ?
        ORDER BY rating_id DESC LIMIT 1`,
		filmID, sourceID,
	).Scan(&rating.Value, &rating.Scale, &votes, &raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating film=%d: %w", filmID, err)
	}
	if votes.Valid {
		n := votes.Int64
		rating.VoteCount = &n
	}
	if raw.Valid {
		rating.RawJSON = []byte(raw.String)
	}
	if ts, err := parseTimeString(fetched); err == nil {
		rating.FetchedAt = ts
	}
	return &rating, nil
}
