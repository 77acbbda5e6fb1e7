package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mindspeak/mindspeak-backend/internal/store"
	"github.com/mindspeak/mindspeak-backend/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return New(db)
}

func TestSQLiteStoreConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}
