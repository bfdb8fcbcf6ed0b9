package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	tests := []struct {
		set    Set
		tables []string
	}{
		{Shop, []string{"names", "schema_migrations"}},
		{Prefs, []string{"metadata", "operations", "schema_migrations"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.set), func(t *testing.T) {
			db := openTestDB(t)
			defer db.Close()

			if err := MigrateUp(db, tt.set); err != nil {
				t.Fatalf("MigrateUp() failed: %v", err)
			}

			for _, table := range tt.tables {
				var name string
				err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
				if err != nil {
					t.Errorf("Table %s was not created: %v", table, err)
				}
			}
		})
	}
}

func TestMigrateUp_SetsAreIndependent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Shop); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&count)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Error("shop migrations created a prefs table")
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db, Prefs)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Prefs); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if err := CheckDBMigrationStatus(db, Prefs); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Shop); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db, Shop); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	if err := CheckDBMigrationStatus(db, Shop); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_MetadataPrimaryKey(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Prefs); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO metadata (namespace, key, value, updated_at) VALUES ('app_prefs', 'user_email', 'a@example.com', datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert metadata: %v", err)
	}

	_, err = db.Exec("INSERT INTO metadata (namespace, key, value, updated_at) VALUES ('app_prefs', 'user_email', 'b@example.com', datetime('now'))")
	if err == nil {
		t.Error("Expected primary key violation for duplicate key, but insert succeeded")
	}
}

func TestSchema_NamesAutoincrement(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Shop); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, n := range []string{"first", "second"} {
		if _, err := db.Exec("INSERT INTO names (name, created_at) VALUES (?, datetime('now'))", n); err != nil {
			t.Fatalf("Failed to insert name: %v", err)
		}
	}

	var maxID int64
	if err := db.QueryRow("SELECT MAX(id) FROM names").Scan(&maxID); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if maxID != 2 {
		t.Errorf("MAX(id) = %d, want 2", maxID)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	return db
}
