// Package journal keeps a sqlite history of ingestion runs: per-run merge
// counts, per-source results and fallback-key ambiguities for manual review.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

type Journal struct {
	Pool *sql.DB
}

func Open(path string) (*Journal, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}

	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, errors.Wrapf(err, "ping journal %s", path)
	}
	if err := Migrate(pool); err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "migrate journal")
	}
	return &Journal{Pool: pool}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.Pool == nil {
		return nil
	}
	return j.Pool.Close()
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS ingest_runs (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  forced INTEGER NOT NULL DEFAULT 0,
  candidates INTEGER NOT NULL DEFAULT 0,
  added INTEGER NOT NULL DEFAULT 0,
  skipped_url INTEGER NOT NULL DEFAULT 0,
  skipped_title_company INTEGER NOT NULL DEFAULT 0,
  batch_duplicates INTEGER NOT NULL DEFAULT 0,
  malformed INTEGER NOT NULL DEFAULT 0,
  auto_rejected INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS ingest_sources (
  run_id TEXT NOT NULL REFERENCES ingest_runs(id),
  producer TEXT NOT NULL,
  board TEXT NOT NULL,
  candidates INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS dedup_ambiguities (
  run_id TEXT NOT NULL REFERENCES ingest_runs(id),
  fallback_key TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  row_count INTEGER NOT NULL,
  seen_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started
ON ingest_runs(started_at);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_ingest_sources_run
ON ingest_sources(run_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
