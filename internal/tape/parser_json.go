package tape

import (
	"encoding/json"
	"fmt"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// reconFile is the top-level JSON structure of a payoff or new-add recon
// report as produced by the subservicer's recon export.
type reconFile struct {
	Report  string       `json:"report"`
	AsOf    string       `json:"as_of"`
	Entries []reconEntry `json:"entries"`
}

type reconEntry struct {
	LoanID string  `json:"loan_id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// ParseReconJSON parses a corroboration report. The engine only ever looks
// entries up by loan ID; date and amount ride along for reporting.
func ParseReconJSON(data []byte, label string) (domain.CorroborationSet, error) {
	var file reconFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.CorroborationSet{}, fmt.Errorf("unmarshal: %w", err)
	}

	entries := make([]domain.CorroborationEntry, 0, len(file.Entries))
	for i, e := range file.Entries {
		if e.LoanID == "" {
			return domain.CorroborationSet{}, fmt.Errorf("entry %d: empty loan_id", i)
		}
		entry := domain.CorroborationEntry{LoanID: e.LoanID, Amount: e.Amount}
		if e.Date != "" {
			t, err := parseDate(e.Date)
			if err != nil {
				return domain.CorroborationSet{}, fmt.Errorf("entry %d date: %w", i, err)
			}
			entry.Date = t
		}
		entries = append(entries, entry)
	}

	return domain.NewCorroborationSet(label, entries), nil
}
