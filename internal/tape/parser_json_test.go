package tape

import (
	"strings"
	"testing"
	"time"
)

func TestParseReconJSON(t *testing.T) {
	data := []byte(`{
		"report": "payoff",
		"as_of": "2026-01-31",
		"entries": [
			{"loan_id": "MSR000010", "date": "2026-01-12", "amount": 248133.02},
			{"loan_id": "MSR000025", "date": "01/20/2026", "amount": 101553.40},
			{"loan_id": "MSR000031", "amount": 55000.00}
		]
	}`)

	set, err := ParseReconJSON(data, "payoff_2026-01-31")
	if err != nil {
		t.Fatalf("ParseReconJSON: %v", err)
	}
	if set.Label != "payoff_2026-01-31" {
		t.Errorf("label = %q", set.Label)
	}
	if len(set.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(set.Entries))
	}

	e := set.Entries["MSR000010"]
	if e.Amount != 248_133.02 {
		t.Errorf("amount = %f", e.Amount)
	}
	if !e.Date.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", e.Date)
	}
	if !set.Entries["MSR000025"].Date.Equal(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("slash date = %v", set.Entries["MSR000025"].Date)
	}
	// Date is optional; lookup is by loan ID only.
	if !set.Contains("MSR000031") {
		t.Error("entry without a date should still be present")
	}
	if set.Contains("MSR999999") {
		t.Error("Contains should be false for unknown IDs")
	}
}

func TestParseReconJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantSub string
	}{
		{"malformed json", `{"entries": [`, "unmarshal"},
		{"empty loan_id", `{"entries": [{"loan_id": "", "amount": 1}]}`, "entry 0: empty loan_id"},
		{"bad date", `{"entries": [{"loan_id": "MSR1", "date": "soon", "amount": 1}]}`, "entry 0 date"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReconJSON([]byte(tc.data), "recon")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("err = %q, want it to contain %q", err, tc.wantSub)
			}
		})
	}
}
