package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meridian-msr/tapecheck/internal/domain"
	"github.com/meridian-msr/tapecheck/internal/repository"
	"github.com/meridian-msr/tapecheck/internal/tape"
	"github.com/meridian-msr/tapecheck/internal/validation"
)

const tapeHeader = "loan_id,investor,orig_bal,upb,rate,nsf,rem_term,pi,status,next_due_date\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tapeRepo := repository.NewTapeRepo(db)
	runRepo := repository.NewRunRepo(db)
	router := NewRouter(tapeRepo, runRepo, tape.NewService(tapeRepo), validation.NewEngine(validation.DefaultConfig()))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func uploadTape(t *testing.T, srv *httptest.Server, kind, label, asOf, content string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("kind", kind)
	mw.WriteField("label", label)
	if asOf != "" {
		mw.WriteField("as_of", asOf)
	}
	fw, err := mw.CreateFormFile("file", label)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/v1/tapes/ingest", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload %s: %v", label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e map[string]string
		json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("upload %s: status %d: %v", label, resp.StatusCode, e)
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestValidationLifecycle(t *testing.T) {
	srv := newTestServer(t)

	priorCSV := tapeHeader +
		"MSR000001,FNMA,300000,250500,0.0650,0.0025,301,1896.20,Current,2026-01-01\n" +
		"MSR000002,GNMA,150000,148500,0.0725,0.0044,349,1023.55,Current,2026-01-01\n" +
		"MSR000003,FNMA,200000,180000,0.0600,0.0025,240,1433.40,Current,2026-01-01\n"
	submissionCSV := tapeHeader +
		"MSR000001,FNMA,300000,250000,0.0650,0.0025,300,1896.20,Current,2026-02-01\n" +
		"MSR000002,GNMA,150000,0,0.0725,0.0044,348,1023.55,Current,2026-02-01\n"
	payoffJSON := `{"report":"payoff","entries":[{"loan_id":"MSR000003","date":"2026-01-20","amount":180000}]}`

	uploadTape(t, srv, "tape", "Dec 2025", "2025-12-31", priorCSV)
	uploadTape(t, srv, "tape", "Jan 2026", "2026-01-31", submissionCSV)
	uploadTape(t, srv, "payoff", "payoff Jan 2026", "", payoffJSON)

	resp := postJSON(t, srv, "/api/v1/validations/run", map[string]string{
		"prior_label":      "Dec 2025",
		"submission_label": "Jan 2026",
		"payoff_label":     "payoff Jan 2026",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run validation: status %d", resp.StatusCode)
	}

	var runResp struct {
		RunID  string                  `json:"run_id"`
		Result domain.ValidationResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if !strings.HasPrefix(runResp.RunID, "RUN-") {
		t.Errorf("run id = %q", runResp.RunID)
	}

	sc := runResp.Result.Scorecard
	// MSR000002 reports an active loan at zero UPB; MSR000003 left with a
	// payoff record behind it.
	if sc.UniqueLoans != 2 || sc.HardStops != 1 || sc.MissingCorroborated != 1 || sc.MissingUnexplained != 0 {
		t.Errorf("scorecard = %+v", sc)
	}
	if len(runResp.Result.Resolved) != 1 {
		t.Errorf("resolved = %+v, want the payoff-cleared missing loan", runResp.Result.Resolved)
	}

	// Stored run is retrievable by ID.
	getResp, err := http.Get(srv.URL + "/api/v1/validations/" + runResp.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get run: status %d", getResp.StatusCode)
	}
	var stored domain.ValidationResult
	if err := json.NewDecoder(getResp.Body).Decode(&stored); err != nil {
		t.Fatal(err)
	}
	if stored.Scorecard != sc {
		t.Errorf("stored scorecard = %+v, want %+v", stored.Scorecard, sc)
	}

	// Findings endpoint filters by severity.
	fResp, err := http.Get(srv.URL + "/api/v1/validations/" + runResp.RunID + "/findings?severity=HARD_STOP")
	if err != nil {
		t.Fatal(err)
	}
	defer fResp.Body.Close()
	var fBody struct {
		Findings []repository.StoredFinding `json:"findings"`
		Total    int                        `json:"total"`
	}
	if err := json.NewDecoder(fResp.Body).Decode(&fBody); err != nil {
		t.Fatal(err)
	}
	// Both the live hard stop and the payoff-cleared one come back; the
	// cleared one carries its disposition.
	if fBody.Total != 2 || len(fBody.Findings) != 2 {
		t.Fatalf("hard-stop findings = %+v", fBody)
	}
	if fBody.Findings[0].Rule != domain.RuleUPBZero || fBody.Findings[0].Disposition != "" {
		t.Errorf("first finding = %+v", fBody.Findings[0])
	}
	if fBody.Findings[1].Rule != domain.RuleMissingLoan || fBody.Findings[1].Disposition == "" {
		t.Errorf("second finding = %+v", fBody.Findings[1])
	}

	// Dashboard reflects the latest run.
	dResp, err := http.Get(srv.URL + "/api/v1/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	defer dResp.Body.Close()
	var dash map[string]any
	if err := json.NewDecoder(dResp.Body).Decode(&dash); err != nil {
		t.Fatal(err)
	}
	if dash["tape_count"].(float64) != 3 || dash["run_count"].(float64) != 1 {
		t.Errorf("dashboard = %+v", dash)
	}
	if _, ok := dash["latest_run_by_rule"]; !ok {
		t.Error("dashboard missing latest_run_by_rule")
	}
}

func TestRunValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing labels", func(t *testing.T) {
		resp := postJSON(t, srv, "/api/v1/validations/run", map[string]string{})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown tape label", func(t *testing.T) {
		resp := postJSON(t, srv, "/api/v1/validations/run", map[string]string{
			"prior_label":      "never ingested",
			"submission_label": "also never",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/validations/RUN-nope")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestIngestTapeValidation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing kind", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("label", "Jan 2026")
		mw.Close()
		resp, err := http.Post(srv.URL+"/api/v1/tapes/ingest", mw.FormDataContentType(), &body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("malformed tape", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("kind", "tape")
		mw.WriteField("label", "Jan 2026")
		mw.WriteField("as_of", "2026-01-31")
		fw, _ := mw.CreateFormFile("file", "bad.csv")
		fw.Write([]byte("not,a,tape\n1,2,3\n"))
		mw.Close()
		resp, err := http.Post(srv.URL+"/api/v1/tapes/ingest", mw.FormDataContentType(), &body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})
}
