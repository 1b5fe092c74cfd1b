// Package db opens the server's SQLite store and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vytor/reviewsync/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var connParams = []string{
	"_busy_timeout=5000",
	"_foreign_keys=on",
	"_journal_mode=WAL",
	"_synchronous=NORMAL",
}

type DB struct {
	*sql.DB
}

// Open opens the database at path and applies pending migrations. path may
// already carry query parameters.
func Open(path string) (*DB, error) {
	log := logger.Default().WithPrefix("db")
	log.Info("opening database: %s", path)

	sqlDB, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		log.Error("failed to open database: %v", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // single writer

	if err := Migrate(logger.NewContext(context.Background(), log), sqlDB); err != nil {
		log.Error("failed to apply migrations: %v", err)
		sqlDB.Close()
		return nil, err
	}

	log.Info("database ready")
	return &DB{DB: sqlDB}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(connParams, "&")
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, in file name order. Each migration and its record
// commit together.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	log := logger.FromContext(ctx)

	if _, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, sqlDB)
	if err != nil {
		return err
	}
	versions, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(versions)

	for _, file := range versions {
		version := path.Base(file)
		if applied[version] {
			log.Debug("migration %s already applied, skipping", version)
			continue
		}
		script, err := migrationsFS.ReadFile(file)
		if err != nil {
			return err
		}
		log.Info("applying migration: %s", version)
		if err := applyMigration(ctx, sqlDB, version, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, sqlDB *sql.DB, version, script string) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

func appliedVersions(ctx context.Context, sqlDB *sql.DB) (map[string]bool, error) {
	rows, err := sqlDB.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}
