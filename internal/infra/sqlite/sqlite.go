// Package sqlite exports sizing runs into a local SQLite file.
// The database is write-mostly: nothing in the estimator reads it back.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the export directory.
const FileName = "gpusizer.db"

// DB wraps the export database.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates dir if needed, opens dir/gpusizer.db and applies migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB, path: path}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file location.
func (db *DB) Path() string { return db.path }

// Close releases the database handle.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, one per string.
func Migrations() []string {
	return []string{
		// One row per invocation.
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			created_at      TEXT NOT NULL,
			num_gpu         INTEGER NOT NULL,
			weight_bytes    REAL NOT NULL,
			kv_bytes        REAL NOT NULL,
			prompt_tokens   INTEGER NOT NULL,
			response_tokens INTEGER NOT NULL,
			concurrency     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS memory_rows (
			run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			model            TEXT NOT NULL,
			kv_gib_per_token REAL NOT NULL,
			weights_gb       REAL NOT NULL,
			footprint_gb     REAL NOT NULL,
			PRIMARY KEY (run_id, model)
		)`,

		// Timing columns are NULL when the metric is not computable.
		`CREATE TABLE IF NOT EXISTS perf_rows (
			run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			model           TEXT NOT NULL,
			gpu             TEXT NOT NULL,
			fits            INTEGER NOT NULL,
			footprint_gb    REAL NOT NULL,
			available_gb    REAL NOT NULL,
			kv_cache_tokens INTEGER NOT NULL,
			prefill_ms      REAL,
			tpot_ms         REAL,
			ttft_s          REAL,
			e2e_s           REAL,
			throughput_tps  REAL,
			PRIMARY KEY (run_id, model, gpu)
		)`,
	}
}
