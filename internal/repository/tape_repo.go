package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// TapeMeta describes one ingested tape or recon report.
type TapeMeta struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Kind        string    `json:"kind"`
	AsOf        time.Time `json:"as_of"`
	RecordCount int       `json:"record_count"`
	FileHash    string    `json:"file_hash"`
	IngestedAt  time.Time `json:"ingested_at"`
}

type TapeRepo struct {
	db *sql.DB
}

func NewTapeRepo(db *sql.DB) *TapeRepo {
	return &TapeRepo{db: db}
}

// ExistsByHash reports whether a file with this hash was already ingested.
func (r *TapeRepo) ExistsByHash(hash string) (bool, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM tapes WHERE file_hash = ?", hash).Scan(&n)
	return n > 0, err
}

// InsertSnapshot stores a tape's metadata and every loan row, preserving
// file order through the seq column.
func (r *TapeRepo) InsertSnapshot(meta *TapeMeta, snap *domain.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO tapes (id, label, kind, as_of, record_count, file_hash, ingested_at)
		VALUES (?,?,?,?,?,?,?)`,
		meta.ID, meta.Label, meta.Kind, meta.AsOf.Format(time.RFC3339),
		meta.RecordCount, meta.FileHash, meta.IngestedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert tape: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO loans
		(tape_id, seq, loan_id, investor, orig_bal, upb, rate, nsf,
		 rem_term, pi, status, raw_status, next_due_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Records {
		rec := &snap.Records[i]
		if _, err := stmt.Exec(
			meta.ID, i, rec.LoanID, string(rec.Investor), rec.OriginalBal,
			rec.CurrentUPB, rec.Rate, rec.NetServFee, rec.RemainingTerm,
			rec.MonthlyPI, string(rec.Status), rec.RawStatus,
			formatNullableTime(rec.NextDueDate),
		); err != nil {
			return fmt.Errorf("insert loan %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// InsertReconSet stores a corroboration report and its entries.
func (r *TapeRepo) InsertReconSet(meta *TapeMeta, set domain.CorroborationSet) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO tapes (id, label, kind, as_of, record_count, file_hash, ingested_at)
		VALUES (?,?,?,?,?,?,?)`,
		meta.ID, meta.Label, meta.Kind, meta.AsOf.Format(time.RFC3339),
		meta.RecordCount, meta.FileHash, meta.IngestedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO recon_entries (tape_id, loan_id, date, amount)
		VALUES (?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range set.Entries {
		var date any
		if !e.Date.IsZero() {
			date = e.Date.Format(time.RFC3339)
		}
		if _, err := stmt.Exec(meta.ID, e.LoanID, date, e.Amount); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.LoanID, err)
		}
	}

	return tx.Commit()
}

// GetMeta returns a tape's metadata by label.
func (r *TapeRepo) GetMeta(label string) (*TapeMeta, error) {
	row := r.db.QueryRow(
		"SELECT id, label, kind, as_of, record_count, file_hash, ingested_at FROM tapes WHERE label = ?",
		label,
	)
	return scanTapeMeta(row)
}

// LoadSnapshot reloads an ingested tape as a snapshot, in original order.
func (r *TapeRepo) LoadSnapshot(label string) (*domain.Snapshot, error) {
	meta, err := r.GetMeta(label)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT loan_id, investor, orig_bal, upb, rate, nsf, rem_term, pi,
		        status, raw_status, next_due_date
		 FROM loans WHERE tape_id = ? ORDER BY seq`, meta.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{Label: meta.Label, AsOf: meta.AsOf}
	for rows.Next() {
		var rec domain.LoanRecord
		var investor, status string
		var nddNull sql.NullString
		if err := rows.Scan(
			&rec.LoanID, &investor, &rec.OriginalBal, &rec.CurrentUPB,
			&rec.Rate, &rec.NetServFee, &rec.RemainingTerm, &rec.MonthlyPI,
			&status, &rec.RawStatus, &nddNull,
		); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		rec.Investor = domain.Investor(investor)
		rec.Status = domain.LoanStatus(status)
		if nddNull.Valid {
			t, _ := time.Parse(time.RFC3339, nddNull.String)
			rec.NextDueDate = &t
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap, rows.Err()
}

// LoadReconSet reloads an ingested corroboration report by label.
func (r *TapeRepo) LoadReconSet(label string) (domain.CorroborationSet, error) {
	meta, err := r.GetMeta(label)
	if err != nil {
		return domain.CorroborationSet{}, err
	}

	rows, err := r.db.Query(
		"SELECT loan_id, date, amount FROM recon_entries WHERE tape_id = ?", meta.ID,
	)
	if err != nil {
		return domain.CorroborationSet{}, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CorroborationEntry
	for rows.Next() {
		var e domain.CorroborationEntry
		var dateNull sql.NullString
		if err := rows.Scan(&e.LoanID, &dateNull, &e.Amount); err != nil {
			return domain.CorroborationSet{}, fmt.Errorf("scan entry: %w", err)
		}
		if dateNull.Valid {
			e.Date, _ = time.Parse(time.RFC3339, dateNull.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.CorroborationSet{}, err
	}
	return domain.NewCorroborationSet(meta.Label, entries), nil
}

// List returns ingested tapes, newest first, optionally filtered by kind.
func (r *TapeRepo) List(kind string) ([]TapeMeta, error) {
	query := "SELECT id, label, kind, as_of, record_count, file_hash, ingested_at FROM tapes"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY ingested_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []TapeMeta
	for rows.Next() {
		m, err := scanTapeMetaRows(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, *m)
	}
	return metas, rows.Err()
}

// --- helpers ---

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func scanTapeMeta(row *sql.Row) (*TapeMeta, error) {
	var m TapeMeta
	var asOf, ingestedAt string
	if err := row.Scan(&m.ID, &m.Label, &m.Kind, &asOf, &m.RecordCount, &m.FileHash, &ingestedAt); err != nil {
		return nil, err
	}
	m.AsOf, _ = time.Parse(time.RFC3339, asOf)
	m.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
	return &m, nil
}

func scanTapeMetaRows(rows *sql.Rows) (*TapeMeta, error) {
	var m TapeMeta
	var asOf, ingestedAt string
	if err := rows.Scan(&m.ID, &m.Label, &m.Kind, &asOf, &m.RecordCount, &m.FileHash, &ingestedAt); err != nil {
		return nil, err
	}
	m.AsOf, _ = time.Parse(time.RFC3339, asOf)
	m.IngestedAt, _ = time.Parse(time.RFC3339, ingestedAt)
	return &m, nil
}
