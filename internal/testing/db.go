// Package testing provides database helpers shared by package tests.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/aristath/fundpulse/internal/database"
	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB opens a file-backed store through the production driver and
// applies its schema. The file lives in t.TempDir and is closed on cleanup.
//
// Supported names: "ticks", "portfolio", "client_data".
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	switch name {
	case database.NamePortfolio:
		profile = database.ProfileLedger
	case database.NameClientData:
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}

// NewMemoryDB opens an in-memory mattn/go-sqlite3 database with the named
// schema applied. The pool is pinned to one connection because every new
// :memory: connection would otherwise be a separate empty database.
func NewMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema(name)
	if err != nil {
		t.Fatalf("Failed to load schema %s: %v", name, err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to apply schema %s: %v", name, err)
	}
	return db
}
