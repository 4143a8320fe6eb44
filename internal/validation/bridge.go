package validation

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// computeBridge derives the count and UPB roll-forward from snapshot-level
// aggregates. It reads only the resolver's sets and the two snapshots, never
// individual findings. Duplicated submitted IDs contribute their first
// occurrence, matching the unique-loan view of the scorecard.
//
// Sums run through decimal so the identity ties regardless of accumulation
// order; the inputs remain the tape's float values.
func (e *Engine) computeBridge(res *Resolution) domain.ReconciliationBridge {
	beginCount := len(res.Prior)
	endCount := len(res.SubmittedOrder)
	newCount := len(res.NewIDs)
	payoffCount := len(res.Missing)

	counts := domain.CountBridge{
		Beginning: beginCount,
		NewAdds:   newCount,
		Payoffs:   payoffCount,
		Ending:    endCount,
		Variance:  beginCount + newCount - payoffCount - endCount,
	}

	var beginning, ending, payoffUPB, newUPB decimal.Decimal
	for _, p := range res.Prior {
		beginning = beginning.Add(decimal.NewFromFloat(p.CurrentUPB))
	}
	for _, lid := range res.SubmittedOrder {
		ending = ending.Add(decimal.NewFromFloat(res.First(lid).CurrentUPB))
	}
	for _, lid := range res.Missing {
		payoffUPB = payoffUPB.Add(decimal.NewFromFloat(res.Prior[lid].CurrentUPB))
	}
	for _, lid := range res.NewIDs {
		newUPB = newUPB.Add(decimal.NewFromFloat(res.First(lid).CurrentUPB))
	}

	// Continuing-loan UPB movement, split into scheduled amortization,
	// curtailments and capitalizations. A drop far beyond the average is a
	// curtailment: the average stays in the scheduled leg, the excess moves
	// to the curtailment leg, so the two legs still sum to the total drop.
	var totalDrop decimal.Decimal
	drops := make(map[string]decimal.Decimal, len(res.Continuing))
	var caps decimal.Decimal
	for _, lid := range res.Continuing {
		delta := decimal.NewFromFloat(res.First(lid).CurrentUPB).
			Sub(decimal.NewFromFloat(res.Prior[lid].CurrentUPB))
		if delta.IsNegative() {
			drop := delta.Neg()
			drops[lid] = drop
			totalDrop = totalDrop.Add(drop)
		} else {
			caps = caps.Add(delta)
		}
	}

	var sched, curtail decimal.Decimal
	var avgDrop decimal.Decimal
	if n := len(res.Continuing); n > 0 {
		avgDrop = totalDrop.Div(decimal.NewFromInt(int64(n)))
	}
	threshold := avgDrop.Mul(decimal.NewFromFloat(e.cfg.CurtailmentFactor))
	for _, drop := range drops {
		if avgDrop.IsPositive() && drop.GreaterThan(threshold) {
			sched = sched.Add(avgDrop)
			curtail = curtail.Add(drop.Sub(avgDrop))
		} else {
			sched = sched.Add(drop)
		}
	}

	computed := beginning.Sub(sched).Sub(curtail).Add(caps).Sub(payoffUPB).Add(newUPB)
	variance := computed.Sub(ending)
	epsilon := decimal.NewFromFloat(e.cfg.BridgeEpsilon)

	return domain.ReconciliationBridge{
		Counts: counts,
		Balances: domain.BalanceBridge{
			BeginningUPB:    beginning.InexactFloat64(),
			ScheduledAmort:  sched.InexactFloat64(),
			Curtailments:    curtail.InexactFloat64(),
			Capitalizations: caps.InexactFloat64(),
			PayoffUPB:       payoffUPB.InexactFloat64(),
			NewAddUPB:       newUPB.InexactFloat64(),
			ComputedEnding:  computed.InexactFloat64(),
			ActualEnding:    ending.InexactFloat64(),
			Variance:        variance.InexactFloat64(),
			Epsilon:         e.cfg.BridgeEpsilon,
			TiesWithin:      variance.Abs().LessThanOrEqual(epsilon),
		},
	}
}
