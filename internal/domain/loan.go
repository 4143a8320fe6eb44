package domain

import "time"

type Investor string

const (
	InvestorFNMA      Investor = "FNMA"
	InvestorFHLMC     Investor = "FHLMC"
	InvestorGNMA      Investor = "GNMA"
	InvestorPortfolio Investor = "Portfolio"
)

// LoanStatus is the delinquency bucket reported on the tape. The first five
// values form a total order (see StatusRank); StatusInvalid is the catch-all
// for unrecognized tape values and participates in no comparison.
type LoanStatus string

const (
	StatusCurrent    LoanStatus = "Current"
	Status30DPD      LoanStatus = "30 DPD"
	Status60DPD      LoanStatus = "60 DPD"
	Status90PlusDPD  LoanStatus = "90+ DPD"
	StatusPaidInFull LoanStatus = "Paid in Full"
	StatusInvalid    LoanStatus = "Invalid"
)

var statusRank = map[LoanStatus]int{
	StatusCurrent:    0,
	Status30DPD:      1,
	Status60DPD:      2,
	Status90PlusDPD:  3,
	StatusPaidInFull: 4,
}

// StatusRank returns the position of s on the delinquency scale and whether
// s is one of the five ordered statuses.
func StatusRank(s LoanStatus) (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

// ParseLoanStatus maps a raw tape value onto the recognized set. Unrecognized
// values come back as StatusInvalid, never as an error: an invalid status is
// a finding, not a parse failure.
func ParseLoanStatus(raw string) LoanStatus {
	s := LoanStatus(raw)
	if _, ok := statusRank[s]; ok {
		return s
	}
	return StatusInvalid
}

// LoanRecord is one loan's state as of a snapshot date. Rate and NetServFee
// are fractions of unity (0.065, not 6.5); part of what the engine checks is
// whether a subservicer got that wrong.
type LoanRecord struct {
	LoanID        string     `json:"loan_id"`
	Investor      Investor   `json:"investor"`
	OriginalBal   float64    `json:"original_balance"`
	CurrentUPB    float64    `json:"current_upb"`
	Rate          float64    `json:"rate"`
	NetServFee    float64    `json:"net_serv_fee"`
	RemainingTerm int        `json:"remaining_term"`
	MonthlyPI     float64    `json:"monthly_pi"`
	Status        LoanStatus `json:"status"`
	RawStatus     string     `json:"raw_status,omitempty"`
	NextDueDate   *time.Time `json:"next_due_date,omitempty"`
}

// Snapshot is an ordered, immutable-once-loaded collection of loan records
// as of one reporting date. Order is preserved from the source file so that
// duplicate detection can name the first occurrence.
type Snapshot struct {
	Label   string       `json:"label"`
	AsOf    time.Time    `json:"as_of"`
	Records []LoanRecord `json:"records"`
}

// TotalUPB sums current UPB over every record, duplicates included.
func (s *Snapshot) TotalUPB() float64 {
	var total float64
	for i := range s.Records {
		total += s.Records[i].CurrentUPB
	}
	return total
}

// CorroborationEntry is one row of a payoff or new-add recon report.
type CorroborationEntry struct {
	LoanID string    `json:"loan_id"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// CorroborationSet is a secondary dataset used only to confirm or explain an
// already-detected discrepancy by loan ID lookup.
type CorroborationSet struct {
	Label   string                        `json:"label"`
	Entries map[string]CorroborationEntry `json:"entries"`
}

// NewCorroborationSet builds a set from entries, last one wins per loan ID.
func NewCorroborationSet(label string, entries []CorroborationEntry) CorroborationSet {
	m := make(map[string]CorroborationEntry, len(entries))
	for _, e := range entries {
		m[e.LoanID] = e
	}
	return CorroborationSet{Label: label, Entries: m}
}

// Contains reports whether the set carries an entry for the loan ID.
func (c CorroborationSet) Contains(loanID string) bool {
	_, ok := c.Entries[loanID]
	return ok
}
