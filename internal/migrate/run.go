// Package migrate applies the embedded schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/unevent/unevent-api/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// advisoryLockMigrations serializes concurrent starters against one database.
const advisoryLockMigrations int64 = 0x756e6576 // "unev"

const createVersionsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Versions lists the embedded migration versions in apply order.
func Versions() ([]string, error) {
	return versions(migrationsFS)
}

func versions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, ".sql") {
			out = append(out, strings.TrimSuffix(name, ".sql"))
		}
	}
	slices.Sort(out)
	return out, nil
}

// Run applies pending migrations, each in its own transaction, and returns
// the versions it applied. Already applied versions are skipped.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrations")

	if _, err := db.ExecContext(ctx, createVersionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	all, err := Versions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range all {
		ran, applyErr := apply(ctx, db, version)
		if applyErr != nil {
			return applied, applyErr
		}
		if ran {
			logger.InfoContext(ctx, "applied migration", "version", version)
			applied = append(applied, version)
		}
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, version string) (bool, error) {
	body, err := migrationsFS.ReadFile(path.Join("migrations", version+".sql"))
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", version, err)
	}

	var ran bool
	err = pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		if _, lockErr := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockMigrations); lockErr != nil {
			return fmt.Errorf("lock migrations: %w", lockErr)
		}
		var done bool
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&done); scanErr != nil {
			return fmt.Errorf("check migration %s: %w", version, scanErr)
		}
		if done {
			return nil
		}
		if _, execErr := tx.ExecContext(ctx, string(body)); execErr != nil {
			return fmt.Errorf("exec migration %s: %w", version, execErr)
		}
		if _, recErr := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); recErr != nil {
			return fmt.Errorf("record migration %s: %w", version, recErr)
		}
		ran = true
		return nil
	}})
	return ran, err
}
