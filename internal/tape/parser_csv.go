package tape

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// Required columns of the loan tape CSV. Column order is free; resolution is
// by header name. A missing required column is a structural error naming the
// column, per the fail-fast policy: per-loan findings would be meaningless
// without well-formed columns.
var tapeColumns = []string{
	"loan_id", "investor", "orig_bal", "upb", "rate",
	"nsf", "rem_term", "pi", "status", "next_due_date",
}

// ParseTapeCSV parses a servicing tape into a snapshot. Row order is
// preserved, duplicates and all: judging them is the engine's job, not the
// parser's. Only shape and typing are enforced here.
func ParseTapeCSV(data []byte, label string, asOf time.Time) (*domain.Snapshot, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range tapeColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	snap := &domain.Snapshot{Label: label, AsOf: asOf}
	lineNum := 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		get := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := domain.LoanRecord{
			LoanID:   get("loan_id"),
			Investor: domain.Investor(get("investor")),
		}
		if rec.LoanID == "" {
			return nil, fmt.Errorf("line %d: empty loan_id", lineNum)
		}

		if rec.OriginalBal, err = parseFloat(get("orig_bal")); err != nil {
			return nil, fmt.Errorf("line %d orig_bal: %w", lineNum, err)
		}
		if rec.CurrentUPB, err = parseFloat(get("upb")); err != nil {
			return nil, fmt.Errorf("line %d upb: %w", lineNum, err)
		}
		if rec.Rate, err = parseFloat(get("rate")); err != nil {
			return nil, fmt.Errorf("line %d rate: %w", lineNum, err)
		}
		if rec.NetServFee, err = parseFloat(get("nsf")); err != nil {
			return nil, fmt.Errorf("line %d nsf: %w", lineNum, err)
		}
		term, err := parseFloat(get("rem_term"))
		if err != nil {
			return nil, fmt.Errorf("line %d rem_term: %w", lineNum, err)
		}
		rec.RemainingTerm = int(term)
		if rec.MonthlyPI, err = parseFloat(get("pi")); err != nil {
			return nil, fmt.Errorf("line %d pi: %w", lineNum, err)
		}

		rec.RawStatus = get("status")
		rec.Status = domain.ParseLoanStatus(rec.RawStatus)

		if ndd := get("next_due_date"); ndd != "" {
			t, err := parseDate(ndd)
			if err != nil {
				return nil, fmt.Errorf("line %d next_due_date: %w", lineNum, err)
			}
			rec.NextDueDate = &t
		}

		snap.Records = append(snap.Records, rec)
	}

	return snap, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
