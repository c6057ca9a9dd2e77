package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RawPage is a verbatim page response.
type RawPage struct {
	RunID         string
	PageNumber    int
	Endpoint      string
	RequestJSON   []byte
	PayloadJSON   []byte
	PayloadSHA256 string
	HTTPStatus    int
	FetchedAt     time.Time
}

// RawEntity is the verbatim payload of one upstream record.
type RawEntity struct {
	EntityType    string
	SourceID      string
	Locale        string
	RunID         string
	PayloadJSON   []byte
	PayloadSHA256 string
}

// RecordRawPage stores a page, replacing any earlier copy for the same run and page.
func (t *Tx) RecordRawPage(ctx context.Context, page RawPage) error {
	fetched := page.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	_, err := t.exec(ctx,
		`INSERT INTO raw_pages (
            run_id, page_number, endpoint, request_json, payload_json, payload_sha256, http_status, fetched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (run_id, page_number) DO UPDATE SET
            endpoint = excluded.endpoint,
            request_json = excluded.request_json,
            payload_json = excluded.payload_json,
            payload_sha256 = excluded.payload_sha256,
            http_status = excluded.http_status,
            fetched_at = excluded.fetched_at`,
		page.RunID, page.PageNumber, page.Endpoint, string(page.RequestJSON),
		string(page.PayloadJSON), page.PayloadSHA256, page.HTTPStatus, formatTime(fetched),
	)
	if err != nil {
		return fmt.Errorf("record raw page %d: %w", page.PageNumber, err)
	}
	return nil
}

// RecordRawEntity refreshes the current snapshot of an entity and appends a
// version row only when the entity is new or its hash changed. It reports
// whether a version was appended.
func (t *Tx) RecordRawEntity(ctx context.Context, entity RawEntity) (bool, error) {
	var existing string
	err := t.queryRow(ctx,
		`SELECT payload_sha256 FROM raw_entities_current WHERE entity_type = ? AND source_id = ? AND locale = ?`,
		entity.EntityType, entity.SourceID, entity.Locale,
	).Scan(&existing)
	found := true
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return false, fmt.Errorf("read current entity %s: %w", entity.SourceID, err)
	}

	if _, err := t.exec(ctx,
		`INSERT INTO raw_entities_current (
            entity_type, source_id, locale, payload_json, payload_sha256,
            first_seen_run_id, last_seen_run_id, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (entity_type, source_id, locale) DO UPDATE SET
            payload_json = excluded.payload_json,
            payload_sha256 = excluded.payload_sha256,
            last_seen_run_id = excluded.last_seen_run_id,
            updated_at = excluded.updated_at`,
		entity.EntityType, entity.SourceID, entity.Locale, string(entity.PayloadJSON),
		entity.PayloadSHA256, entity.RunID, entity.RunID, t.timestamp,
	); err != nil {
		return false, fmt.Errorf("upsert current entity %s: %w", entity.SourceID, err)
	}

	if found && existing == entity.PayloadSHA256 {
		return false, nil
	}
	res, err := t.exec(ctx,
		`INSERT INTO raw_entities_versions (
            entity_type, source_id, locale, run_id, payload_json, payload_sha256, captured_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT DO NOTHING`,
		entity.EntityType, entity.SourceID, entity.Locale, entity.RunID,
		string(entity.PayloadJSON), entity.PayloadSHA256, t.timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("append entity version %s: %w", entity.SourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return true, nil
	}
	return n > 0, nil
}
