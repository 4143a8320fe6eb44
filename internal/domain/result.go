package domain

import "time"

// Scorecard summarises one validation run.
type Scorecard struct {
	PriorLoans          int `json:"prior_loans"`
	SubmittedRows       int `json:"submitted_rows"`
	UniqueLoans         int `json:"unique_loans"`
	DuplicateIDs        int `json:"duplicate_ids"`
	ContinuingLoans     int `json:"continuing_loans"`
	MissingTotal        int `json:"missing_total"`
	MissingCorroborated int `json:"missing_corroborated"`
	MissingUnexplained  int `json:"missing_unexplained"`
	NewAdds             int `json:"new_adds"`
	NewAddsConfirmed    int `json:"new_adds_confirmed"`
	NewAddsUnconfirmed  int `json:"new_adds_unconfirmed"`
	HardStops           int `json:"hard_stops"`
	YellowLights        int `json:"yellow_lights"`
	LoansWithHardStops  int `json:"loans_with_hard_stops"`
	PassingLoans        int `json:"passing_loans"`
	YellowOnlyLoans     int `json:"yellow_only_loans"`
	CleanLoans          int `json:"clean_loans"`
}

// MissingLoanDetail describes one prior-period loan absent from the
// submission, with its payoff corroboration when one exists.
type MissingLoanDetail struct {
	LoanID       string     `json:"loan_id"`
	Investor     Investor   `json:"investor"`
	PriorUPB     float64    `json:"prior_upb"`
	PayoffDate   *time.Time `json:"payoff_date,omitempty"`
	PayoffAmount float64    `json:"payoff_amount,omitempty"`
}

// ValidationResult is the engine's structured output: scorecard, ordered
// finding lists, the missing-loan detail split, and the bridge.
type ValidationResult struct {
	PriorLabel          string               `json:"prior_label"`
	SubmissionLabel     string               `json:"submission_label"`
	AsOf                time.Time            `json:"as_of"`
	Scorecard           Scorecard            `json:"scorecard"`
	HardStops           []Finding            `json:"hard_stops"`
	YellowLights        []Finding            `json:"yellow_lights"`
	Resolved            []ResolvedFinding    `json:"resolved"`
	MissingUnexplained  []MissingLoanDetail  `json:"missing_unexplained"`
	MissingCorroborated []MissingLoanDetail  `json:"missing_corroborated"`
	Bridge              ReconciliationBridge `json:"bridge"`
}
