package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// DriverName selects the pure-Go sqlite driver.
const DriverName = "sqlite"

// schemaVersion tracks the on-disk index layout. A file carrying any
// other version is discarded and rebuilt; the index is a cache, so
// losing it only costs a rebuild.
const schemaVersion = 1

// openDatabase opens the index database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL keeps readers usable while a rebuild writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS corpora (
    name        TEXT PRIMARY KEY,
    version     TEXT,
    fingerprint TEXT NOT NULL,
    doc_count   INTEGER NOT NULL DEFAULT 0,
    built_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
    corpus       TEXT NOT NULL,
    item_id      INTEGER NOT NULL,
    display_path TEXT NOT NULL,
    kind         TEXT NOT NULL,
    PRIMARY KEY (corpus, item_id)
);

CREATE TABLE IF NOT EXISTS postings (
    corpus  TEXT NOT NULL,
    term    TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    name_tf INTEGER NOT NULL DEFAULT 0,
    doc_tf  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (corpus, term, item_id)
);

CREATE INDEX IF NOT EXISTS idx_postings_term ON postings(corpus, term);

CREATE TABLE IF NOT EXISTS term_stats (
    corpus    TEXT NOT NULL,
    term      TEXT NOT NULL,
    doc_count INTEGER NOT NULL,
    PRIMARY KEY (corpus, term)
);
`

// ApplyMigrations brings the database to the current schema, wiping any
// foreign-version layout rather than attempting an upgrade.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var stored int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case stored != schemaVersion:
		if _, err := db.ExecContext(ctx,
			`DROP TABLE IF EXISTS corpora;
			 DROP TABLE IF EXISTS documents;
			 DROP TABLE IF EXISTS postings;
			 DROP TABLE IF EXISTS term_stats;
			 DELETE FROM schema_version;`); err != nil {
			return fmt.Errorf("failed to reset foreign-version schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("failed to recreate schema: %w", err)
		}
		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	default:
		return nil
	}
}

// openOrReset opens and migrates the index database. A corrupt or
// unreadable file is deleted and recreated; stale index state is never
// surfaced as a failure.
func openOrReset(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := openDatabase(dbPath)
	if err == nil {
		if err = ApplyMigrations(ctx, db); err == nil {
			return db, nil
		}
		_ = db.Close()
	}

	if rmErr := os.Remove(dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("failed to reset index database: %w", err)
	}
	db, err = openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return db, nil
}
