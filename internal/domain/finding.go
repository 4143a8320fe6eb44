package domain

type Severity string

const (
	// SeverityHardStop blocks acceptance of the submission until corrected.
	SeverityHardStop Severity = "HARD_STOP"
	// SeverityYellowLight requires human review but does not block.
	SeverityYellowLight Severity = "YELLOW_LIGHT"
)

// Rule names. The finding list is keyed by (loan ID, rule), so names are
// stable identifiers, not display strings.
const (
	RuleUPBZero          = "UPB = Zero (active loan)"
	RuleUPBExceedsOrig   = "UPB Exceeds Original Balance"
	RuleRateWholeNumber  = "Rate Expressed as Whole Number"
	RuleRateTooLow       = "Rate Unrealistically Low"
	RuleNSFWholeBps      = "NSF Expressed as Whole Basis Points"
	RuleNSFPercentFormat = "NSF May Be Expressed as Percent"
	RuleNSFOutOfBand     = "NSF Out of Investor Band"
	RuleNDDInPast        = "Next Due Date in Past (Current Loan)"
	RuleInvalidStatus    = "Invalid Status Value"
	RuleDuplicateLoanID  = "Duplicate Loan ID"
	RuleMissingLoan      = "Missing Loan"
	RuleUnboardedLoan    = "Unboarded Loan"
	RuleStatusBucketSkip = "Status Bucket Skip"
	RulePIInflated       = "P&I Inflated vs Prior Month"
	RuleTermNotDecreased = "Remaining Term Did Not Decrease"
	RuleRateDrift        = "Rate Changed Month-over-Month"
)

// Finding is the engine's sole output unit. Immutable once produced; the
// aggregator never edits one, it wraps it in a ResolvedFinding instead.
type Finding struct {
	LoanID    string   `json:"loan_id"`
	Investor  Investor `json:"investor"`
	Layer     int      `json:"layer"`
	Rule      string   `json:"rule"`
	Field     string   `json:"field,omitempty"`
	Submitted string   `json:"submitted"`
	Expected  string   `json:"expected"`
	Severity  Severity `json:"severity"`
	Detail    string   `json:"detail,omitempty"`
}

// ResolvedFinding is a discrepancy that a corroboration set explained away.
// It carries the original finding untouched plus the disposition.
type ResolvedFinding struct {
	Finding     Finding `json:"finding"`
	Disposition string  `json:"disposition"`
}
