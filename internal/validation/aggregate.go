package validation

import (
	"sort"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// aggregate merges the finding stream into the ordered result and computes
// the scorecard. Emission order from evaluation is not meaningful; findings
// are normalized to (loan ID, rule) order here.
func (e *Engine) aggregate(
	prior, submission *domain.Snapshot,
	asOf time.Time,
	res *Resolution,
	findings []domain.Finding,
	l2 layer2Output,
) *domain.ValidationResult {
	sortFindings(findings)

	var hardStops, yellowLights []domain.Finding
	for _, f := range findings {
		if f.Severity == domain.SeverityHardStop {
			hardStops = append(hardStops, f)
		} else {
			yellowLights = append(yellowLights, f)
		}
	}

	// Per-loan severity rollup over evaluated (submitted) loans only;
	// missing-loan hard stops reference prior-only IDs and do not subtract
	// from the passing count.
	hardStopLoans := make(map[string]bool)
	yellowLoans := make(map[string]bool)
	for _, f := range findings {
		if _, evaluated := res.Occurrences[f.LoanID]; !evaluated {
			continue
		}
		if f.Severity == domain.SeverityHardStop {
			hardStopLoans[f.LoanID] = true
		} else {
			yellowLoans[f.LoanID] = true
		}
	}
	yellowOnly := 0
	for lid := range yellowLoans {
		if !hardStopLoans[lid] {
			yellowOnly++
		}
	}
	unique := len(res.SubmittedOrder)
	flagged := make(map[string]bool, len(hardStopLoans)+len(yellowLoans))
	for lid := range hardStopLoans {
		flagged[lid] = true
	}
	for lid := range yellowLoans {
		flagged[lid] = true
	}

	sort.Slice(l2.missingUnexplained, func(i, j int) bool {
		return l2.missingUnexplained[i].LoanID < l2.missingUnexplained[j].LoanID
	})
	sort.Slice(l2.missingCorroborated, func(i, j int) bool {
		return l2.missingCorroborated[i].LoanID < l2.missingCorroborated[j].LoanID
	})
	sort.Slice(l2.resolved, func(i, j int) bool {
		return l2.resolved[i].Finding.LoanID < l2.resolved[j].Finding.LoanID
	})

	return &domain.ValidationResult{
		PriorLabel:      prior.Label,
		SubmissionLabel: submission.Label,
		AsOf:            asOf,
		Scorecard: domain.Scorecard{
			PriorLoans:          len(res.Prior),
			SubmittedRows:       len(submission.Records),
			UniqueLoans:         unique,
			DuplicateIDs:        len(res.DuplicateIDs),
			ContinuingLoans:     len(res.Continuing),
			MissingTotal:        len(res.Missing),
			MissingCorroborated: len(l2.missingCorroborated),
			MissingUnexplained:  len(l2.missingUnexplained),
			NewAdds:             len(res.NewIDs),
			NewAddsConfirmed:    len(res.NewIDs) - l2.newAddsUnconfirmed,
			NewAddsUnconfirmed:  l2.newAddsUnconfirmed,
			HardStops:           len(hardStops),
			YellowLights:        len(yellowLights),
			LoansWithHardStops:  len(hardStopLoans),
			PassingLoans:        unique - len(hardStopLoans),
			YellowOnlyLoans:     yellowOnly,
			CleanLoans:          unique - len(flagged),
		},
		HardStops:           hardStops,
		YellowLights:        yellowLights,
		Resolved:            l2.resolved,
		MissingUnexplained:  l2.missingUnexplained,
		MissingCorroborated: l2.missingCorroborated,
	}
}

func sortFindings(findings []domain.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.LoanID != b.LoanID {
			return a.LoanID < b.LoanID
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Submitted < b.Submitted
	})
}
