package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CoreTables lists the tables holding ingested and enriched data.
var CoreTables = []string{
	"ingest_runs",
	"raw_pages",
	"raw_entities_current",
	"raw_entities_versions",
	"films",
	"people",
	"film_credits",
	"venues",
	"screenings",
	"film_external_ids",
	"film_external_ratings",
}

// ErrNotReadOnly rejects ad-hoc statements that could modify data.
var ErrNotReadOnly = errors.New("only single SELECT or WITH statements are allowed")

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// TableCounts counts rows in every core table.
func (s *Store) TableCounts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(CoreTables))
	for _, table := range CoreTables {
		n, err := s.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// CountRows counts rows in a table created by the migrations.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if !isKnownTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// OrphanScreenings counts screenings whose film row is missing.
func (s *Store) OrphanScreenings(ctx context.Context) (int64, error) {
	var n int64
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM screenings s LEFT JOIN films f ON f.film_id = s.film_id WHERE f.film_id IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orphan screenings: %w", err)
	}
	return n, nil
}

// Tables lists the tables present in the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	if s.dialect == DialectPostgres {
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	}
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// MissingTables reports migrated tables absent from the database.
func (s *Store) MissingTables(ctx context.Context) ([]string, error) {
	present, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(present))
	for _, name := range present {
		seen[name] = struct{}{}
	}
	var missing []string
	for _, table := range knownTables() {
		if _, ok := seen[table]; !ok {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

// QueryResult holds the output of an ad-hoc read-only query. Byte values are
// converted to strings; NULL stays nil.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Query runs a single read-only statement.
func (s *Store) Query(ctx context.Context, statement string) (*QueryResult, error) {
	statement = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(statement), ";"))
	if !isReadOnlyStatement(statement) {
		return nil, ErrNotReadOnly
	}
	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func isReadOnlyStatement(statement string) bool {
	if statement == "" || strings.Contains(statement, ";") {
		return false
	}
	fields := strings.Fields(statement)
	switch strings.ToLower(fields[0]) {
	case "select", "with":
		return true
	default:
		return false
	}
}

func knownTables() []string {
	return append(append([]string(nil), CoreTables...), "external_sources")
}

func isKnownTable(table string) bool {
	for _, name := range knownTables() {
		if name == table {
			return true
		}
	}
	return false
}
