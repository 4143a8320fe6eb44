package validation

import (
	"fmt"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// layer2Output separates genuine findings from discrepancies a corroboration
// set explained away, plus the missing-loan detail split the report needs.
type layer2Output struct {
	findings            []domain.Finding
	resolved            []domain.ResolvedFinding
	missingUnexplained  []domain.MissingLoanDetail
	missingCorroborated []domain.MissingLoanDetail
	newAddsUnconfirmed  int
}

// runLayer2 evaluates the cross-period rules: missing loans against the
// payoff recon set, new adds against the new-add recon set, and field
// comparisons for continuing loans. Duplicate-flagged IDs are excluded from
// the continuing-loan comparisons; the submitted value is ambiguous.
func (e *Engine) runLayer2(res *Resolution, payoffs, newAdds domain.CorroborationSet) layer2Output {
	var out layer2Output
	cfg := e.cfg

	for _, lid := range res.Missing {
		p := res.Prior[lid]
		detail := domain.MissingLoanDetail{
			LoanID:   lid,
			Investor: p.Investor,
			PriorUPB: p.CurrentUPB,
		}
		f := domain.Finding{
			LoanID:    lid,
			Investor:  p.Investor,
			Layer:     2,
			Rule:      domain.RuleMissingLoan,
			Submitted: "Not present",
			Expected:  "Present (no payoff entry found)",
			Severity:  domain.SeverityHardStop,
			Detail:    fmt.Sprintf("%s existed in the prior period but is absent from the submission with no payoff record.", lid),
		}
		if entry, ok := payoffs.Entries[lid]; ok {
			d := entry.Date
			detail.PayoffDate = &d
			detail.PayoffAmount = entry.Amount
			out.missingCorroborated = append(out.missingCorroborated, detail)
			out.resolved = append(out.resolved, domain.ResolvedFinding{
				Finding:     f,
				Disposition: "cleared by payoff corroboration",
			})
			continue
		}
		out.missingUnexplained = append(out.missingUnexplained, detail)
		out.findings = append(out.findings, f)
	}

	for _, lid := range res.NewIDs {
		if newAdds.Contains(lid) {
			continue
		}
		rec := res.First(lid)
		out.newAddsUnconfirmed++
		out.findings = append(out.findings, domain.Finding{
			LoanID:    lid,
			Investor:  rec.Investor,
			Layer:     2,
			Rule:      domain.RuleUnboardedLoan,
			Field:     "Loan ID",
			Submitted: "Present in submission",
			Expected:  "Present in new-add recon report",
			Severity:  domain.SeverityYellowLight,
			Detail:    fmt.Sprintf("%s appears in the submission but not in the new-add recon report; verify boarding.", lid),
		})
	}

	for _, lid := range res.Continuing {
		if res.IsDuplicate(lid) {
			continue
		}
		p := res.Prior[lid]
		c := res.First(lid)

		// Status skip. Only defined over the five ordered statuses; an
		// invalid status is already a Layer-1 finding.
		if pRank, ok := domain.StatusRank(p.Status); ok {
			if cRank, ok := domain.StatusRank(c.Status); ok && cRank-pRank >= cfg.StatusSkipBuckets {
				out.findings = append(out.findings, domain.Finding{
					LoanID:    lid,
					Investor:  c.Investor,
					Layer:     2,
					Rule:      domain.RuleStatusBucketSkip,
					Field:     "Status",
					Submitted: fmt.Sprintf("%s -> %s", p.Status, c.Status),
					Expected:  "Max 1-bucket change per month",
					Severity:  domain.SeverityYellowLight,
					Detail:    fmt.Sprintf("Loan went from %s to %s in one month, skipping intermediate bucket(s).", p.Status, c.Status),
				})
			}
		}

		// P&I inflation.
		if p.MonthlyPI > 0 && c.MonthlyPI > p.MonthlyPI*(1+cfg.PIInflationPct) {
			pctOver := (c.MonthlyPI/p.MonthlyPI - 1) * 100
			out.findings = append(out.findings, domain.Finding{
				LoanID:    lid,
				Investor:  c.Investor,
				Layer:     2,
				Rule:      domain.RulePIInflated,
				Field:     "P&I ($)",
				Submitted: fmt.Sprintf("$%.2f", c.MonthlyPI),
				Expected:  fmt.Sprintf("~$%.2f (unchanged from prior month)", p.MonthlyPI),
				Severity:  domain.SeverityYellowLight,
				Detail:    fmt.Sprintf("Fixed-rate P&I is %.1f%% higher than prior month; verify no system update error.", pctOver),
			})
		}

		// Remaining term must drop by at least one for any continuing loan
		// that has not paid off.
		if c.Status != domain.StatusPaidInFull && p.RemainingTerm > 0 && c.RemainingTerm >= p.RemainingTerm {
			out.findings = append(out.findings, domain.Finding{
				LoanID:    lid,
				Investor:  c.Investor,
				Layer:     2,
				Rule:      domain.RuleTermNotDecreased,
				Field:     "Rem Term",
				Submitted: fmt.Sprintf("%d", c.RemainingTerm),
				Expected:  fmt.Sprintf("<= %d (should decrease by 1)", p.RemainingTerm-1),
				Severity:  domain.SeverityYellowLight,
				Detail:    fmt.Sprintf("Remaining term went from %d to %d month-over-month.", p.RemainingTerm, c.RemainingTerm),
			})
		}

		// Rate drift. Whole-number-format rates are already a Layer-1 hard
		// stop; comparing them here would report the same root cause twice.
		if p.Rate > 0 && c.Rate > 0 && p.Rate < 1.0 && c.Rate < 1.0 &&
			abs(p.Rate-c.Rate) > cfg.RateDriftTolerance {
			out.findings = append(out.findings, domain.Finding{
				LoanID:    lid,
				Investor:  c.Investor,
				Layer:     2,
				Rule:      domain.RuleRateDrift,
				Field:     "Rate",
				Submitted: fmt.Sprintf("%.4f", c.Rate),
				Expected:  fmt.Sprintf("%.4f (unchanged from prior month)", p.Rate),
				Severity:  domain.SeverityYellowLight,
				Detail:    fmt.Sprintf("Note rate changed from %.4f to %.4f; rare and worth review even if a legitimate ARM reset.", p.Rate, c.Rate),
			})
		}
	}

	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
