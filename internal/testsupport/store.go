package testsupport

import (
	"context"
	"testing"

	"festsync/internal/config"
	"festsync/internal/program"
	"festsync/internal/store"
)

// MustOpenStore opens a migrated store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// SeedFilm records a run and upserts one film in it, returning the film id.
func SeedFilm(t testing.TB, st *store.Store, runID string, film program.Film) int64 {
	t.Helper()

	ctx := context.Background()
	existing, err := st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if existing == nil {
		if err := st.StartRun(ctx, runID, "test", "de", map[string]any{}); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}
	var filmID int64
	if err := st.WithTx(ctx, func(tx *store.Tx) error {
		var upsertErr error
		filmID, upsertErr = tx.UpsertFilm(ctx, runID, film)
		return upsertErr
	}); err != nil {
		t.Fatalf("UpsertFilm: %v", err)
	}
	return filmID
}
