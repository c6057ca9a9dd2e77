package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"festsync/internal/program"
	"festsync/internal/services"
)

// UpsertFilm inserts or refreshes a film keyed by source id, marks it active
// and seen in runID, and returns its film_id.
func (t *Tx) UpsertFilm(ctx context.Context, runID string, film program.Film) (int64, error) {
	if _, err := t.exec(ctx,
		`INSERT INTO films (
            source_film_id, title, original_title, synopsis, runtime_minutes,
            year, country, section, is_active, last_seen_run_id, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
        ON CONFLICT (source_film_id) DO UPDATE SET
            title = excluded.title,
            original_title = excluded.original_title,
            synopsis = excluded.synopsis,
            runtime_minutes = excluded.runtime_minutes,
            year = excluded.year,
            country = excluded.country,
            section = excluded.section,
            is_active = 1,
            last_seen_run_id = excluded.last_seen_run_id,
            updated_at = excluded.updated_at`,
		film.SourceFilmID, film.Title, nullableString(film.OriginalTitle), nullableString(film.Synopsis),
		nullableInt(film.RuntimeMinutes), nullableInt(film.Year), nullableString(film.Country),
		nullableString(film.Section), runID, t.timestamp,
	); err != nil {
		return 0, fmt.Errorf("upsert film %s: %w", film.SourceFilmID, err)
	}
	return t.resolveID(ctx, "films", "film_id", "source_film_id", film.SourceFilmID)
}

// UpsertPerson inserts or refreshes a person keyed by source id and returns person_id.
func (t *Tx) UpsertPerson(ctx context.Context, runID string, person program.Person) (int64, error) {
	if _, err := t.exec(ctx,
		`INSERT INTO people (source_person_id, name, last_seen_run_id, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (source_person_id) DO UPDATE SET
            name = excluded.name,
            last_seen_run_id = excluded.last_seen_run_id,
            updated_at = excluded.updated_at`,
		person.SourcePersonID, person.Name, runID, t.timestamp,
	); err != nil {
		return 0, fmt.Errorf("upsert person %s: %w", person.SourcePersonID, err)
	}
	return t.resolveID(ctx, "people", "person_id", "source_person_id", person.SourcePersonID)
}

// UpsertCredit links a person to a film. A repeated credit overwrites its billing order.
func (t *Tx) UpsertCredit(ctx context.Context, runID string, filmID, personID int64, credit program.Credit) error {
	if _, err := t.exec(ctx,
		`INSERT INTO film_credits (film_id, person_id, role_type, role_name, billing_order, last_seen_run_id)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (film_id, person_id, role_type, role_name) DO UPDATE SET
            billing_order = excluded.billing_order,
            last_seen_run_id = excluded.last_seen_run_id`,
		filmID, personID, credit.RoleType, credit.RoleName, nullableInt(credit.BillingOrder), runID,
	); err != nil {
		return fmt.Errorf("upsert credit film=%d person=%d: %w", filmID, personID, err)
	}
	return nil
}

// UpsertVenue inserts or refreshes a venue keyed by source id and returns venue_id.
func (t *Tx) UpsertVenue(ctx context.Context, runID string, venue program.Venue) (int64, error) {
	if _, err := t.exec(ctx,
		`INSERT INTO venues (source_venue_id, name, address, lat, lng, last_seen_run_id, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (source_venue_id) DO UPDATE SET
            name = excluded.name,
            address = excluded.address,
            lat = excluded.lat,
            lng = excluded.lng,
            last_seen_run_id = excluded.last_seen_run_id,
            updated_at = excluded.updated_at`,
		venue.SourceVenueID, venue.Name, nullableString(venue.Address),
		nullableFloat(venue.Lat), nullableFloat(venue.Lng), runID, t.timestamp,
	); err != nil {
		return 0, fmt.Errorf("upsert venue %s: %w", venue.SourceVenueID, err)
	}
	return t.resolveID(ctx, "venues", "venue_id", "source_venue_id", venue.SourceVenueID)
}

// UpsertScreening inserts or refreshes a screening keyed by source id and marks it active.
func (t *Tx) UpsertScreening(ctx context.Context, runID string, filmID int64, venueID *int64, screening program.Screening) error {
	if _, err := t.exec(ctx,
		`INSERT INTO screenings (
            source_screening_id, film_id, venue_id, starts_at_utc, local_tz,
            format, ticket_url, is_active, last_seen_run_id, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
        ON CONFLICT (source_screening_id) DO UPDATE SET
            film_id = excluded.film_id,
            venue_id = excluded.venue_id,
            starts_at_utc = excluded.starts_at_utc,
            local_tz = excluded.local_tz,
            format = excluded.format,
            ticket_url = excluded.ticket_url,
            is_active = 1,
            last_seen_run_id = excluded.last_seen_run_id,
            updated_at = excluded.updated_at`,
		screening.SourceScreeningID, filmID, nullableInt64(venueID),
		screening.StartsAt.UTC().Format(time.RFC3339), nullableString(screening.LocalTZ),
		nullableString(screening.Format), nullableString(screening.TicketURL), runID, t.timestamp,
	); err != nil {
		return fmt.Errorf("upsert screening %s: %w", screening.SourceScreeningID, err)
	}
	return nil
}

// resolveID reads back the surrogate key of a row that was just upserted.
// Table and column names come from callers in this file only.
func (t *Tx) resolveID(ctx context.Context, table, idColumn, keyColumn, key string) (int64, error) {
	var id int64
	err := t.queryRow(ctx, `SELECT `+idColumn+` FROM `+table+` WHERE `+keyColumn+` = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, services.Wrap(services.ErrSchemaInvariant, "store", "resolve "+idColumn, fmt.Sprintf("no %s row for %s", table, key), nil)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s for %s: %w", idColumn, key, err)
	}
	return id, nil
}

// SweepResult counts rows deactivated by SweepInactive.
type SweepResult struct {
	Films      int64
	Screenings int64
}

// SweepInactive marks films and screenings not seen in runID inactive. Rows
// are never deleted.
func (s *Store) SweepInactive(ctx context.Context, runID string) (SweepResult, error) {
	var result SweepResult
	err := s.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.exec(ctx, `UPDATE films SET is_active = 0, updated_at = ? WHERE is_active = 1 AND (last_seen_run_id IS NULL OR last_seen_run_id <> ?)`, tx.timestamp, runID)
		if err != nil {
			return fmt.Errorf("sweep films: %w", err)
		}
		result.Films, _ = res.RowsAffected()

		res, err = tx.exec(ctx, `UPDATE screenings SET is_active = 0, updated_at = ? WHERE is_active = 1 AND (last_seen_run_id IS NULL OR last_seen_run_id <> ?)`, tx.timestamp, runID)
		if err != nil {
			return fmt.Errorf("sweep screenings: %w", err)
		}
		result.Screenings, _ = res.RowsAffected()
		return nil
	})
	return result, err
}
