package validation

import (
	"fmt"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// runLayer1 applies the field-level plausibility rules to a single submitted
// record. No cross-period context; every occurrence of a duplicated ID is
// evaluated independently. Each rule emits at most one finding per record.
//
// The rate and NSF rules form chains over disjoint numeric ranges so one
// root cause (a unit error) fires exactly one rule.
func (e *Engine) runLayer1(rec *domain.LoanRecord, asOf time.Time) []domain.Finding {
	var out []domain.Finding
	cfg := e.cfg

	if rec.CurrentUPB == 0 && rec.Status != domain.StatusPaidInFull {
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleUPBZero,
			Field:     "Current UPB ($)",
			Submitted: "$0.00",
			Expected:  "> $0 (not marked Paid in Full)",
			Severity:  domain.SeverityHardStop,
			Detail:    "Active loan submitted with UPB of zero but not listed as PIF.",
		})
	}

	if rec.OriginalBal > 0 && rec.CurrentUPB > rec.OriginalBal {
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleUPBExceedsOrig,
			Field:     "Current UPB ($)",
			Submitted: fmt.Sprintf("$%.2f", rec.CurrentUPB),
			Expected:  fmt.Sprintf("<= $%.2f (Orig Bal)", rec.OriginalBal),
			Severity:  domain.SeverityHardStop,
			Detail:    "Current UPB exceeds original balance, impossible for an amortizing loan.",
		})
	}

	switch {
	case rec.Rate > cfg.RateWholeNumberAbove:
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleRateWholeNumber,
			Field:     "Rate",
			Submitted: fmt.Sprintf("%.4f", rec.Rate),
			Expected:  "Decimal fraction (e.g. 0.0650 for 6.50%)",
			Severity:  domain.SeverityHardStop,
			Detail:    fmt.Sprintf("Rate of %.4f is > 1.0; likely entered as a whole number, not a decimal.", rec.Rate),
		})
	case rec.Rate < cfg.RateFloor:
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleRateTooLow,
			Field:     "Rate",
			Submitted: fmt.Sprintf("%.4f", rec.Rate),
			Expected:  fmt.Sprintf(">= %.4f (%.0fbps)", cfg.RateFloor, cfg.RateFloor*10000),
			Severity:  domain.SeverityHardStop,
			Detail:    fmt.Sprintf("Rate of %.4f%% is below %.0fbps; no residential mortgage prices this low.", rec.Rate*100, cfg.RateFloor*10000),
		})
	}

	band := cfg.feeBand(rec.Investor)
	switch {
	case rec.NetServFee > cfg.NSFWholeBpsAbove:
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleNSFWholeBps,
			Field:     "Net Serv Fee",
			Submitted: fmt.Sprintf("%g", rec.NetServFee),
			Expected:  "Decimal fraction (e.g. 0.0025 for 25bps)",
			Severity:  domain.SeverityHardStop,
			Detail:    fmt.Sprintf("NSF of %g is > 1.0; likely entered as whole basis points, not a decimal.", rec.NetServFee),
		})
	case rec.NetServFee >= cfg.NSFPercentMin && rec.NetServFee <= cfg.NSFPercentMax:
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleNSFPercentFormat,
			Field:     "Net Serv Fee",
			Submitted: fmt.Sprintf("%.4f", rec.NetServFee),
			Expected:  "~0.0019-0.0069 (GNMA) or 0.0025 (FNMA/FHLMC)",
			Severity:  domain.SeverityYellowLight,
			Detail:    fmt.Sprintf("NSF of %.4f is unusually high; check whether it was entered as a percent (0.25%% = 0.0025 decimal).", rec.NetServFee),
		})
	case rec.NetServFee < band.Min-feeBandTolerance || rec.NetServFee > band.Max+feeBandTolerance:
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleNSFOutOfBand,
			Field:     "Net Serv Fee",
			Submitted: fmt.Sprintf("%.4f", rec.NetServFee),
			Expected:  fmt.Sprintf("%.4f-%.4f for %s", band.Min, band.Max, rec.Investor),
			Severity:  domain.SeverityYellowLight,
			Detail:    fmt.Sprintf("%s NSF of %.4f is outside the expected investor band.", rec.Investor, rec.NetServFee),
		})
	}

	if rec.Status == domain.StatusCurrent && rec.NextDueDate != nil && rec.NextDueDate.Before(asOf) {
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleNDDInPast,
			Field:     "Next Due Date",
			Submitted: rec.NextDueDate.Format("2006-01-02"),
			Expected:  fmt.Sprintf(">= %s for Current-status loans", asOf.Format("2006-01-02")),
			Severity:  domain.SeverityYellowLight,
			Detail:    "Current loan has a next due date in the past; may indicate unreported delinquency.",
		})
	}

	if rec.Status == domain.StatusInvalid {
		out = append(out, domain.Finding{
			LoanID:    rec.LoanID,
			Investor:  rec.Investor,
			Layer:     1,
			Rule:      domain.RuleInvalidStatus,
			Field:     "Status",
			Submitted: rec.RawStatus,
			Expected:  "One of: Current, 30 DPD, 60 DPD, 90+ DPD, Paid in Full",
			Severity:  domain.SeverityYellowLight,
			Detail:    fmt.Sprintf("Status %q is not a recognized value.", rec.RawStatus),
		})
	}

	return out
}
