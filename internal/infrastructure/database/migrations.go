package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MigrationsFS should be set by the migrations package to embed
// migration files, compiling them into the binary.
//
// Usage:
//
//	//go:embed *.sql
//	var migrationsFS embed.FS
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS containing
// migration files. "." means files are at the root of the embedded
// filesystem.
var MigrationsDir = "."

// Migrate applies all pending schema migrations in filename order.
//
// Migration files are named VERSION_description.up.sql, where VERSION
// is a sortable timestamp (YYYYMMDD_HHMMSS). Applied versions are
// recorded in the schema_migrations table; files already recorded are
// skipped, so Migrate is idempotent.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If any migration fails; earlier migrations stay applied
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, name := range files {
		version := migrationVersion(name)
		if applied[version] {
			continue
		}

		if err := db.applyMigration(ctx, name, version); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the version-tracking table if missing.
func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

// appliedVersions returns the set of already-applied migration versions.
func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// migrationFiles lists embedded .up.sql files sorted by name.
func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// migrationVersion extracts the sortable version prefix from a filename.
// "20250801_000000_create_sessions.up.sql" -> "20250801_000000"
func migrationVersion(name string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 2 {
		return strings.TrimSuffix(name, ".up.sql")
	}
	return parts[0] + "_" + parts[1]
}

// applyMigration runs one migration file inside a transaction and
// records its version.
func (db *DB) applyMigration(ctx context.Context, name, version string) error {
	data, err := fs.ReadFile(MigrationsFS, filepath.Join(MigrationsDir, name))
	if err != nil {
		return fmt.Errorf("reading migration: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("executing migration SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		version, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("recording migration version: %w", err)
	}

	return tx.Commit()
}
