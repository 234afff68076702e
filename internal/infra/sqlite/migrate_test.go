package sqlite_test

import (
	"database/sql"
	"testing"

	"github.com/diaflow/diaflow/internal/infra/sqlite"
)

// TestMigrate_RunsAllMigrations verifies that MigrateUp applies all pending migrations.
func TestMigrate_RunsAllMigrations(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v; want nil", err)
	}

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM schema_migrations")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("SELECT COUNT(*) FROM schema_migrations error = %v", err)
	}

	if count == 0 {
		t.Error("schema_migrations has 0 rows after MigrateUp; want > 0")
	}
}

// TestMigrate_Idempotent verifies that running MigrateUp twice does not fail.
func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() first run error = %v; want nil", err)
	}

	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() second run error = %v; want nil (idempotent)", err)
	}
}

// TestMigrate_CoreTablesCreated verifies the diaflow tables exist after migration.
func TestMigrate_CoreTablesCreated(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	for _, table := range []string{"diagrams", "history", "quotas", "previews"} {
		assertTableExists(t, db, table)
	}
}

// TestMigrate_VersionReported verifies MigrationVersion reflects the applied set.
func TestMigrate_VersionReported(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	version, err := sqlite.MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version < 1 {
		t.Errorf("MigrationVersion() = %d; want >= 1", version)
	}
}

// assertTableExists fails the test if the named table is missing.
func assertTableExists(t *testing.T, db *sql.DB, name string) {
	t.Helper()

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query sqlite_master for %q error = %v", name, err)
	}
	if count != 1 {
		t.Errorf("table %q not found after migration", name)
	}
}
