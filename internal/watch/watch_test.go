package watch

import (
	"testing"

	"github.com/meridian-msr/tapecheck/internal/tape"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		wantKind  string
		wantLabel string
		wantOK    bool
	}{
		{"prior_2025-12-31.csv", tape.KindTape, "2025-12-31", true},
		{"submission_2026-01-31.csv", tape.KindTape, "2026-01-31", true},
		{"payoff_2026-01-31.json", tape.KindPayoff, "2026-01-31", true},
		{"newadds_2026-01-31.json", tape.KindNewAdd, "2026-01-31", true},
		// Wrong extension for the prefix.
		{"prior_2025-12-31.json", "", "", false},
		{"payoff_2026-01-31.csv", "", "", false},
		// Unknown prefix or stray files.
		{"tape_2026-01-31.csv", "", "", false},
		{"notes.txt", "", "", false},
		{".DS_Store", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, label, ok := classify(tc.name)
			if kind != tc.wantKind || label != tc.wantLabel || ok != tc.wantOK {
				t.Errorf("classify(%q) = %q, %q, %v; want %q, %q, %v",
					tc.name, kind, label, ok, tc.wantKind, tc.wantLabel, tc.wantOK)
			}
		})
	}
}
