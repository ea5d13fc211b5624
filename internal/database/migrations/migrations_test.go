package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_index.up.sql":  {Data: []byte("CREATE INDEX i ON t (a);")},
		"0001_create.up.sql":     {Data: []byte("CREATE TABLE t (a TEXT);")},
		"0001_create.down.sql":   {Data: []byte("DROP TABLE t;")},
		"README.md":              {Data: []byte("ignored")},
		"not_a_migration.up.sql": {Data: []byte("ignored")},
	}

	got, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != 1 || got[1].Version != 2 {
		t.Errorf("Expected versions sorted 1,2, got %d,%d", got[0].Version, got[1].Version)
	}
	if got[0].Down == "" {
		t.Error("Expected down migration for version 1")
	}
}

func TestEmbeddedRunAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ms, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	if len(ms) == 0 {
		t.Fatal("Expected embedded migrations")
	}

	if err := RunMigrations(db, ms); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// second run is a no-op
	if err := RunMigrations(db, ms); err != nil {
		t.Fatalf("RunMigrations (again): %v", err)
	}

	if _, err := db.Exec(`SELECT id FROM channels LIMIT 1`); err != nil {
		t.Fatalf("Expected channels table, got %v", err)
	}

	if err := RollbackMigrations(db, ms, len(ms)); err != nil {
		t.Fatalf("RollbackMigrations: %v", err)
	}
	if _, err := db.Exec(`SELECT id FROM channels LIMIT 1`); err == nil {
		t.Error("Expected channels table to be dropped")
	}
}
