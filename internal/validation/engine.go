package validation

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// Structural errors abort a run before any finding is produced.
var (
	ErrNoPriorSnapshot = errors.New("prior snapshot is missing or empty")
	ErrNoSubmission    = errors.New("submission snapshot is missing or empty")
	ErrNoAsOfDate      = errors.New("as-of date is required")
)

// Engine runs the two-layer cross-period validation. It is a pure function
// of its inputs and the config it was constructed with: no state survives a
// run, and concurrent runs against different inputs need no coordination.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Validate evaluates a submission against the prior period's record set and
// the two corroboration sets, as of the submission's reporting date.
//
// Either it returns a complete result covering every submitted and
// prior-period record, or the single structural reason it could not. It
// never partially fails silently.
func (e *Engine) Validate(
	prior, submission *domain.Snapshot,
	payoffs, newAdds domain.CorroborationSet,
	asOf time.Time,
) (*domain.ValidationResult, error) {
	if prior == nil || len(prior.Records) == 0 {
		return nil, ErrNoPriorSnapshot
	}
	if submission == nil || len(submission.Records) == 0 {
		return nil, ErrNoSubmission
	}
	if asOf.IsZero() {
		return nil, fmt.Errorf("validate %s -> %s: %w", prior.Label, submission.Label, ErrNoAsOfDate)
	}

	res, findings := Resolve(prior, submission)

	// Layer 1: every submitted row, duplicate occurrences included.
	for i := range submission.Records {
		findings = append(findings, e.runLayer1(&submission.Records[i], asOf)...)
	}

	// Layer 2: set checks and continuing-loan comparisons.
	l2 := e.runLayer2(res, payoffs, newAdds)
	findings = append(findings, l2.findings...)

	result := e.aggregate(prior, submission, asOf, res, findings, l2)
	result.Bridge = e.computeBridge(res)

	log.Printf("[validation] %s -> %s: %d rows, %d hard stops, %d yellow lights, %d cleared",
		prior.Label, submission.Label, len(submission.Records),
		result.Scorecard.HardStops, result.Scorecard.YellowLights, len(result.Resolved))

	return result, nil
}
