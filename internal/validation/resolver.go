package validation

import (
	"fmt"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// Resolution is the identity resolver's view of the two snapshots: each
// submitted loan ID with its occurrence list, plus the set differences every
// downstream rule consumes.
type Resolution struct {
	// Prior indexes the prior snapshot by loan ID. Prior tapes are the
	// authoritative record set; a duplicate there is collapsed to the first
	// occurrence (it was validated when it was itself a submission).
	Prior map[string]*domain.LoanRecord

	// Occurrences maps each submitted loan ID to all of its rows, in file
	// order. Uniqueness is never assumed; every rule states which
	// occurrence(s) it reads.
	Occurrences map[string][]*domain.LoanRecord

	// DuplicateIDs are the submitted IDs appearing more than once, in order
	// of first appearance.
	DuplicateIDs []string

	// Missing are IDs in prior but not in the submission; NewIDs the
	// reverse; Continuing the intersection. All sorted downstream, not here.
	Missing    []string
	NewIDs     []string
	Continuing []string

	// SubmittedOrder preserves first-appearance order of unique IDs.
	SubmittedOrder []string
}

// First returns the first submitted occurrence for a loan ID, or nil.
func (r *Resolution) First(loanID string) *domain.LoanRecord {
	occ := r.Occurrences[loanID]
	if len(occ) == 0 {
		return nil
	}
	return occ[0]
}

// IsDuplicate reports whether the submitted ID appears more than once.
func (r *Resolution) IsDuplicate(loanID string) bool {
	return len(r.Occurrences[loanID]) > 1
}

// Resolve indexes both snapshots and computes the set differences. It also
// emits the duplicate-ID hard stops: one per duplicated ID regardless of how
// many extra occurrences it has.
func Resolve(prior, submission *domain.Snapshot) (*Resolution, []domain.Finding) {
	res := &Resolution{
		Prior:       make(map[string]*domain.LoanRecord, len(prior.Records)),
		Occurrences: make(map[string][]*domain.LoanRecord, len(submission.Records)),
	}

	for i := range prior.Records {
		rec := &prior.Records[i]
		if _, seen := res.Prior[rec.LoanID]; !seen {
			res.Prior[rec.LoanID] = rec
		}
	}

	for i := range submission.Records {
		rec := &submission.Records[i]
		if _, seen := res.Occurrences[rec.LoanID]; !seen {
			res.SubmittedOrder = append(res.SubmittedOrder, rec.LoanID)
		}
		res.Occurrences[rec.LoanID] = append(res.Occurrences[rec.LoanID], rec)
	}

	var findings []domain.Finding
	for _, lid := range res.SubmittedOrder {
		occ := res.Occurrences[lid]
		if len(occ) > 1 {
			res.DuplicateIDs = append(res.DuplicateIDs, lid)
			findings = append(findings, domain.Finding{
				LoanID:    lid,
				Investor:  occ[0].Investor,
				Layer:     1,
				Rule:      domain.RuleDuplicateLoanID,
				Field:     "Loan ID",
				Submitted: fmt.Sprintf("Appears %d times", len(occ)),
				Expected:  "Each Loan ID appears exactly once",
				Severity:  domain.SeverityHardStop,
				Detail:    fmt.Sprintf("Loan ID %s appears %d times in the submission.", lid, len(occ)),
			})
		}
	}

	// Set differences. A duplicated submitted ID is still "present", so it
	// can be new or continuing but never missing.
	for _, lid := range res.SubmittedOrder {
		if _, ok := res.Prior[lid]; ok {
			res.Continuing = append(res.Continuing, lid)
		} else {
			res.NewIDs = append(res.NewIDs, lid)
		}
	}
	for i := range prior.Records {
		lid := prior.Records[i].LoanID
		if res.Prior[lid] != &prior.Records[i] {
			continue // later duplicate occurrence in prior
		}
		if _, ok := res.Occurrences[lid]; !ok {
			res.Missing = append(res.Missing, lid)
		}
	}

	return res, findings
}
