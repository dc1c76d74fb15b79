// Package testutil provides test utilities for the p300-cit project: an
// isolated, migrated database per test and fluent builders for test data.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/service"
	"github.com/Veraticus/p300-cit/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated database in the test's temporary directory
// and seeds it with sessions. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewSessionBuilder(t).WithTrials(10).Build(),
//	)
func SetupTestDB(t *testing.T, sessions ...*model.Session) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	for _, s := range sessions {
		db.MustSaveSession(s)
	}
	return db
}

// MustSaveSession stores a session or fails the test.
func (db *TestDB) MustSaveSession(session *model.Session) {
	db.t.Helper()
	if err := db.Storage.SaveSession(context.Background(), session); err != nil {
		db.t.Fatalf("failed to seed session %q: %v", session.ID, err)
	}
}

// MustGetSession loads a session or fails the test.
func (db *TestDB) MustGetSession(id string) *model.Session {
	db.t.Helper()
	session, err := db.Storage.GetSession(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get session %q: %v", id, err)
	}
	return session
}
