package domain

// CountBridge rolls the loan count forward one period:
// beginning + new adds - payoffs = ending.
type CountBridge struct {
	Beginning int `json:"beginning"`
	NewAdds   int `json:"new_adds"`
	Payoffs   int `json:"payoffs"`
	Ending    int `json:"ending"`
	Variance  int `json:"variance"`
}

// Ties reports whether the count identity holds exactly.
func (b CountBridge) Ties() bool { return b.Variance == 0 }

// BalanceBridge rolls total UPB forward one period:
//
//	beginning - scheduled amort - curtailments + capitalizations
//	          - payoff UPB removed + new-add UPB = ending
//
// within Epsilon.
type BalanceBridge struct {
	BeginningUPB    float64 `json:"beginning_upb"`
	ScheduledAmort  float64 `json:"scheduled_amortization"`
	Curtailments    float64 `json:"curtailments"`
	Capitalizations float64 `json:"capitalizations"`
	PayoffUPB       float64 `json:"payoff_upb_removed"`
	NewAddUPB       float64 `json:"new_add_upb"`
	ComputedEnding  float64 `json:"computed_ending_upb"`
	ActualEnding    float64 `json:"actual_ending_upb"`
	Variance        float64 `json:"variance"`
	Epsilon         float64 `json:"epsilon"`
	TiesWithin      bool    `json:"ties_within_epsilon"`
}

// ReconciliationBridge is the aggregate count and balance roll-forward for
// one validation run. Computed once per run from the two snapshots,
// read-only thereafter.
type ReconciliationBridge struct {
	Counts   CountBridge   `json:"counts"`
	Balances BalanceBridge `json:"balances"`
}
