package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"festsync/internal/services"
)

func TestMigrateRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM schema_migrations WHERE version = \?`).
		WithArgs("001_init").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ingest_runs").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	st := New(db, DialectSQLite)
	applied, err := st.Migrate(context.Background())
	if err == nil {
		t.Fatal("expected migration failure")
	}
	if applied != 0 {
		t.Fatalf("expected nothing applied, got %d", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresLinkCollisionMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO film_external_ids .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(int64(2), int64(1), "tt0000001", nil, nil, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	st := New(db, DialectPostgres)
	err = st.UpsertExternalLink(context.Background(), ExternalLink{FilmID: 2, SourceID: 1, ExternalID: "tt0000001"})
	if !errors.Is(err, services.ErrCollision) {
		t.Fatalf("expected collision, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSweepRollsBackWhenScreeningUpdateFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE films SET is_active = 0").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE screenings SET is_active = 0").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	st := New(db, DialectSQLite)
	if _, err := st.SweepInactive(context.Background(), "run-2"); err == nil {
		t.Fatal("expected sweep failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
