package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tapes (
			id TEXT PRIMARY KEY,
			label TEXT UNIQUE NOT NULL,
			kind TEXT NOT NULL,
			as_of DATETIME NOT NULL,
			record_count INTEGER NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			ingested_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tapes_kind ON tapes(kind)`,

		`CREATE TABLE IF NOT EXISTS loans (
			tape_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			loan_id TEXT NOT NULL,
			investor TEXT NOT NULL,
			orig_bal REAL NOT NULL,
			upb REAL NOT NULL,
			rate REAL NOT NULL,
			nsf REAL NOT NULL,
			rem_term INTEGER NOT NULL,
			pi REAL NOT NULL,
			status TEXT NOT NULL,
			raw_status TEXT NOT NULL,
			next_due_date DATETIME,
			PRIMARY KEY (tape_id, seq),
			FOREIGN KEY (tape_id) REFERENCES tapes(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_loan_id ON loans(loan_id)`,

		`CREATE TABLE IF NOT EXISTS recon_entries (
			tape_id TEXT NOT NULL,
			loan_id TEXT NOT NULL,
			date DATETIME,
			amount REAL NOT NULL,
			PRIMARY KEY (tape_id, loan_id),
			FOREIGN KEY (tape_id) REFERENCES tapes(id)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			prior_label TEXT NOT NULL,
			submission_label TEXT NOT NULL,
			as_of DATETIME NOT NULL,
			unique_loans INTEGER NOT NULL,
			hard_stops INTEGER NOT NULL,
			yellow_lights INTEGER NOT NULL,
			bridge_ties INTEGER NOT NULL,
			result_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS findings (
			run_id TEXT NOT NULL,
			loan_id TEXT NOT NULL,
			investor TEXT NOT NULL,
			layer INTEGER NOT NULL,
			rule TEXT NOT NULL,
			field TEXT,
			submitted TEXT NOT NULL,
			expected TEXT NOT NULL,
			severity TEXT NOT NULL,
			detail TEXT,
			disposition TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
