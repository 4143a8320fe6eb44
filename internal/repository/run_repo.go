package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// RunMeta is the list view of a stored validation run.
type RunMeta struct {
	ID              string    `json:"id"`
	PriorLabel      string    `json:"prior_label"`
	SubmissionLabel string    `json:"submission_label"`
	AsOf            time.Time `json:"as_of"`
	UniqueLoans     int       `json:"unique_loans"`
	HardStops       int       `json:"hard_stops"`
	YellowLights    int       `json:"yellow_lights"`
	BridgeTies      bool      `json:"bridge_ties"`
	CreatedAt       time.Time `json:"created_at"`
}

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert stores a completed run: its summary row, the full result document,
// and every finding (resolved ones carry their disposition).
func (r *RunRepo) Insert(id string, result *domain.ValidationResult, createdAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ties := 0
	if result.Bridge.Counts.Ties() && result.Bridge.Balances.TiesWithin {
		ties = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO runs
		(id, prior_label, submission_label, as_of, unique_loans, hard_stops,
		 yellow_lights, bridge_ties, result_json, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, result.PriorLabel, result.SubmissionLabel,
		result.AsOf.Format(time.RFC3339), result.Scorecard.UniqueLoans,
		result.Scorecard.HardStops, result.Scorecard.YellowLights,
		ties, string(resultJSON), createdAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO findings
		(run_id, loan_id, investor, layer, rule, field, submitted, expected,
		 severity, detail, disposition)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	insert := func(f *domain.Finding, disposition any) error {
		_, err := stmt.Exec(
			id, f.LoanID, string(f.Investor), f.Layer, f.Rule, f.Field,
			f.Submitted, f.Expected, string(f.Severity), f.Detail, disposition,
		)
		return err
	}

	for i := range result.HardStops {
		if err := insert(&result.HardStops[i], nil); err != nil {
			return fmt.Errorf("insert hard stop %d: %w", i, err)
		}
	}
	for i := range result.YellowLights {
		if err := insert(&result.YellowLights[i], nil); err != nil {
			return fmt.Errorf("insert yellow light %d: %w", i, err)
		}
	}
	for i := range result.Resolved {
		if err := insert(&result.Resolved[i].Finding, result.Resolved[i].Disposition); err != nil {
			return fmt.Errorf("insert resolved %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetResult loads the full stored result document for a run.
func (r *RunRepo) GetResult(id string) (*domain.ValidationResult, error) {
	var resultJSON string
	err := r.db.QueryRow("SELECT result_json FROM runs WHERE id = ?", id).Scan(&resultJSON)
	if err != nil {
		return nil, err
	}
	var result domain.ValidationResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// List returns stored runs, newest first.
func (r *RunRepo) List() ([]RunMeta, error) {
	rows, err := r.db.Query(
		`SELECT id, prior_label, submission_label, as_of, unique_loans,
		        hard_stops, yellow_lights, bridge_ties, created_at
		 FROM runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []RunMeta
	for rows.Next() {
		var m RunMeta
		var asOf, createdAt string
		var ties int
		if err := rows.Scan(&m.ID, &m.PriorLabel, &m.SubmissionLabel, &asOf,
			&m.UniqueLoans, &m.HardStops, &m.YellowLights, &ties, &createdAt); err != nil {
			return nil, err
		}
		m.AsOf, _ = time.Parse(time.RFC3339, asOf)
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		m.BridgeTies = ties == 1
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// StoredFinding is a finding as persisted, including its disposition when a
// corroboration set resolved it.
type StoredFinding struct {
	domain.Finding
	Disposition string `json:"disposition,omitempty"`
}

// FindingFilter narrows ListFindings.
type FindingFilter struct {
	Severity string
	Rule     string
	LoanID   string
	Layer    int
	Page     int
	Limit    int
}

// ListFindings returns a run's findings, loan ID then rule order.
func (r *RunRepo) ListFindings(runID string, f FindingFilter) ([]StoredFinding, int, error) {
	clauses := []string{"run_id = ?"}
	args := []any{runID}
	if f.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.Rule != "" {
		clauses = append(clauses, "rule = ?")
		args = append(args, f.Rule)
	}
	if f.LoanID != "" {
		clauses = append(clauses, "loan_id = ?")
		args = append(args, f.LoanID)
	}
	if f.Layer != 0 {
		clauses = append(clauses, "layer = ?")
		args = append(args, f.Layer)
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM findings"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := `SELECT loan_id, investor, layer, rule, field, submitted,
	                 expected, severity, detail, disposition
	          FROM findings` + where + " ORDER BY loan_id, rule LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var findings []StoredFinding
	for rows.Next() {
		var sf StoredFinding
		var investor, severity string
		var fieldNull, detailNull, dispNull sql.NullString
		if err := rows.Scan(&sf.LoanID, &investor, &sf.Layer, &sf.Rule,
			&fieldNull, &sf.Submitted, &sf.Expected, &severity,
			&detailNull, &dispNull); err != nil {
			return nil, 0, err
		}
		sf.Investor = domain.Investor(investor)
		sf.Severity = domain.Severity(severity)
		sf.Field = fieldNull.String
		sf.Detail = detailNull.String
		sf.Disposition = dispNull.String
		findings = append(findings, sf)
	}
	return findings, total, rows.Err()
}

// RuleCount is one row of the findings-by-rule dashboard aggregate.
type RuleCount struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// CountByRule aggregates a run's findings per rule.
func (r *RunRepo) CountByRule(runID string) ([]RuleCount, error) {
	rows, err := r.db.Query(
		`SELECT rule, severity, COUNT(*) FROM findings
		 WHERE run_id = ? AND disposition IS NULL
		 GROUP BY rule, severity ORDER BY rule`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []RuleCount
	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.Rule, &rc.Severity, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}
