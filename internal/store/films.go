package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FilmRecord is a films row.
type FilmRecord struct {
	ID             int64
	SourceFilmID   string
	Title          string
	OriginalTitle  string
	Synopsis       string
	RuntimeMinutes *int
	Year           *int
	Country        string
	Section        string
	Active         bool
	LastSeenRunID  string
}

// ScreeningRecord is a screenings row.
type ScreeningRecord struct {
	ID                int64
	SourceScreeningID string
	FilmID            int64
	VenueID           *int64
	StartsAtUTC       string
	LocalTZ           string
	Format            string
	TicketURL         string
	Active            bool
	LastSeenRunID     string
}

// FilmBySourceID returns the film with the given source id, or nil when absent.
func (s *Store) FilmBySourceID(ctx context.Context, sourceFilmID string) (*FilmRecord, error) {
	var film FilmRecord
	var original, synopsis, country, section, lastSeen sql.NullString
	var runtime, year sql.NullInt64
	var active int
	err := s.queryRow(ctx,
		`SELECT film_id, source_film_id, title, original_title, synopsis, runtime_minutes,
            year, country, section, is_active, last_seen_run_id
        FROM films WHERE source_film_id = ?`, sourceFilmID,
	).Scan(&film.ID, &film.SourceFilmID, &film.Title, &original, &synopsis, &runtime,
		&year, &country, &section, &active, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film %s: %w", sourceFilmID, err)
	}
	film.OriginalTitle = original.String
	film.Synopsis = synopsis.String
	film.Country = country.String
	film.Section = section.String
	film.LastSeenRunID = lastSeen.String
	film.RuntimeMinutes = intFromNull(runtime)
	film.Year = intFromNull(year)
	film.Active = active == 1
	return &film, nil
}

// ScreeningBySourceID returns the screening with the given source id, or nil when absent.
func (s *Store) ScreeningBySourceID(ctx context.Context, sourceScreeningID string) (*ScreeningRecord, error) {
	var sc ScreeningRecord
	var venue sql.NullInt64
	var tz, format, ticket, lastSeen sql.NullString
	var active int
	err := s.queryRow(ctx,
		`SELECT screening_id, source_screening_id, film_id, venue_id, starts_at_utc,
            local_tz, format, ticket_url, is_active, last_seen_run_id
        FROM screenings WHERE source_screening_id = ?`, sourceScreeningID,
	).Scan(&sc.ID, &sc.SourceScreeningID, &sc.FilmID, &venue, &sc.StartsAtUTC,
		&tz, &format, &ticket, &active, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get screening %s: %w", sourceScreeningID, err)
	}
	if venue.Valid {
		id := venue.Int64
		sc.VenueID = &id
	}
	sc.LocalTZ = tz.String
	sc.Format = format.String
	sc.TicketURL = ticket.String
	sc.LastSeenRunID = lastSeen.String
	sc.Active = active == 1
	return &sc, nil
}
