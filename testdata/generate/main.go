package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

type loan struct {
	id       string
	investor string
	origBal  float64
	upb      float64
	rate     float64
	nsf      float64
	remTerm  int
	pi       float64
	status   string
	ndd      string
}

// Generates a small deterministic fixture set: a clean prior tape, a
// submission with known deviations, and the two recon reports. Written to
// the testdata directory for tests and local demos.
func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	investors := []string{"FNMA", "FHLMC", "GNMA", "Portfolio"}

	// Prior tape: 60 clean loans.
	var prior []loan
	for i := 1; i <= 60; i++ {
		inv := investors[rng.Intn(len(investors))]
		origBal := round2(150_000 + rng.Float64()*350_000)
		nsf := 0.0025
		if inv == "GNMA" {
			nsf = 0.0044
		}
		prior = append(prior, loan{
			id:       fmt.Sprintf("MSR%06d", i),
			investor: inv,
			origBal:  origBal,
			upb:      round2(origBal * (0.70 + rng.Float64()*0.25)),
			rate:     round4(0.045 + rng.Float64()*0.035),
			nsf:      nsf,
			remTerm:  180 + rng.Intn(180),
			pi:       round2(900 + rng.Float64()*1400),
			status:   "Current",
			ndd:      "2026-01-01",
		})
	}

	// Submission: carry everything forward one month, then apply known
	// deviations at fixed indexes so tests can assert exact counts.
	var submission []loan
	for _, p := range prior {
		c := p
		c.remTerm--
		c.upb = round2(c.upb - (c.pi - c.upb*c.rate/12))
		c.ndd = "2026-02-01"
		submission = append(submission, c)
	}

	// Three loans leave the portfolio: two corroborated payoffs, one that
	// will surface as an unexplained missing-loan hard stop.
	payoffIDs := []string{submission[10].id, submission[25].id}
	payoffUPBs := []float64{submission[10].upb, submission[25].upb}
	drop := map[string]bool{
		submission[10].id: true,
		submission[25].id: true,
		submission[40].id: true,
	}
	var kept []loan
	for _, c := range submission {
		if !drop[c.id] {
			kept = append(kept, c)
		}
	}
	submission = kept

	// Two new adds: one confirmed by the recon report, one unboarded.
	newConfirmed := loan{
		id: "MSR900001", investor: "FNMA", origBal: 320_000, upb: 319_400,
		rate: 0.0625, nsf: 0.0025, remTerm: 359, pi: 1970.12,
		status: "Current", ndd: "2026-02-01",
	}
	newUnboarded := loan{
		id: "MSR900002", investor: "GNMA", origBal: 280_000, upb: 279_500,
		rate: 0.0675, nsf: 0.0044, remTerm: 359, pi: 1816.44,
		status: "Current", ndd: "2026-02-01",
	}
	submission = append(submission, newConfirmed, newUnboarded)

	// One duplicated row and a handful of field-level errors.
	submission = append(submission, submission[0])
	submission[3].rate = 6.5      // whole-number rate
	submission[5].nsf = 0.25      // percent-format NSF
	submission[7].upb = 0         // zero UPB on an active loan
	submission[9].status = "Late" // unrecognized status value

	writeTapeCSV(filepath.Join(baseDir, "prior_2025-12-31.csv"), prior)
	writeTapeCSV(filepath.Join(baseDir, "submission_2026-01-31.csv"), submission)

	payoffFile := reconFile{Report: "payoff", AsOf: "2026-01-31"}
	for i, id := range payoffIDs {
		payoffFile.Entries = append(payoffFile.Entries, reconEntry{
			LoanID: id, Date: "2026-01-15", Amount: payoffUPBs[i],
		})
	}
	writeJSONFile(filepath.Join(baseDir, "payoff_2026-01-31.json"), payoffFile)

	newAddFile := reconFile{
		Report: "new_add",
		AsOf:   "2026-01-31",
		Entries: []reconEntry{
			{LoanID: newConfirmed.id, Date: "2026-01-10", Amount: newConfirmed.upb},
		},
	}
	writeJSONFile(filepath.Join(baseDir, "newadds_2026-01-31.json"), newAddFile)

	fmt.Printf("Wrote fixtures to %s: %d prior rows, %d submission rows\n",
		baseDir, len(prior), len(submission))
}

type reconEntry struct {
	LoanID string  `json:"loan_id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type reconFile struct {
	Report  string       `json:"report"`
	AsOf    string       `json:"as_of"`
	Entries []reconEntry `json:"entries"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func writeTapeCSV(path string, loans []loan) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"loan_id", "investor", "orig_bal", "upb", "rate",
		"nsf", "rem_term", "pi", "status", "next_due_date"}
	if err := w.Write(header); err != nil {
		panic(err)
	}
	for _, ln := range loans {
		row := []string{
			ln.id, ln.investor,
			strconv.FormatFloat(ln.origBal, 'f', 2, 64),
			strconv.FormatFloat(ln.upb, 'f', 2, 64),
			strconv.FormatFloat(ln.rate, 'f', -1, 64),
			strconv.FormatFloat(ln.nsf, 'f', -1, 64),
			strconv.Itoa(ln.remTerm),
			strconv.FormatFloat(ln.pi, 'f', 2, 64),
			ln.status, ln.ndd,
		}
		if err := w.Write(row); err != nil {
			panic(err)
		}
	}
}

func findTestdataDir() string {
	candidates := []string{"testdata", filepath.Join("..", "..", "testdata")}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "."
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}
