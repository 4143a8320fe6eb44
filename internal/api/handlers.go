package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-msr/tapecheck/internal/domain"
	"github.com/meridian-msr/tapecheck/internal/repository"
	"github.com/meridian-msr/tapecheck/internal/tape"
	"github.com/meridian-msr/tapecheck/internal/validation"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	tapeRepo *repository.TapeRepo
	runRepo  *repository.RunRepo
	tapeSvc  *tape.Service
	engine   *validation.Engine
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- IngestTape ---

func (h *Handlers) IngestTape(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	kind := r.FormValue("kind")
	label := r.FormValue("label")
	if kind == "" || label == "" {
		writeError(w, http.StatusBadRequest, "kind and label are required")
		return
	}

	var asOf time.Time
	if t := parseTime(r.FormValue("as_of")); t != nil {
		asOf = *t
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.tapeSvc.Ingest(data, kind, label, asOf)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- ListTapes ---

func (h *Handlers) ListTapes(w http.ResponseWriter, r *http.Request) {
	metas, err := h.tapeRepo.List(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tapes": metas,
		"total": len(metas),
	})
}

// --- RunValidation ---

type runRequest struct {
	PriorLabel      string `json:"prior_label"`
	SubmissionLabel string `json:"submission_label"`
	PayoffLabel     string `json:"payoff_label"`
	NewAddLabel     string `json:"new_add_label"`
	AsOf            string `json:"as_of"`
}

func (h *Handlers) RunValidation(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PriorLabel == "" || req.SubmissionLabel == "" {
		writeError(w, http.StatusBadRequest, "prior_label and submission_label are required")
		return
	}

	prior, err := h.loadSnapshot(w, req.PriorLabel)
	if err != nil {
		return
	}
	submission, err := h.loadSnapshot(w, req.SubmissionLabel)
	if err != nil {
		return
	}

	payoffs := domain.CorroborationSet{}
	if req.PayoffLabel != "" {
		if payoffs, err = h.tapeRepo.LoadReconSet(req.PayoffLabel); err != nil {
			h.writeLookupError(w, req.PayoffLabel, err)
			return
		}
	}
	newAdds := domain.CorroborationSet{}
	if req.NewAddLabel != "" {
		if newAdds, err = h.tapeRepo.LoadReconSet(req.NewAddLabel); err != nil {
			h.writeLookupError(w, req.NewAddLabel, err)
			return
		}
	}

	asOf := submission.AsOf
	if t := parseTime(req.AsOf); t != nil {
		asOf = *t
	}

	result, err := h.engine.Validate(prior, submission, payoffs, newAdds, asOf)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID := "RUN-" + uuid.NewString()
	if err := h.runRepo.Insert(runID, result, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "store run: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"result": result,
	})
}

func (h *Handlers) loadSnapshot(w http.ResponseWriter, label string) (*domain.Snapshot, error) {
	snap, err := h.tapeRepo.LoadSnapshot(label)
	if err != nil {
		h.writeLookupError(w, label, err)
		return nil, err
	}
	return snap, nil
}

func (h *Handlers) writeLookupError(w http.ResponseWriter, label string, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no ingested tape with label "+label)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- ListRuns ---

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	metas, err := h.runRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  metas,
		"total": len(metas),
	})
}

// --- GetRun ---

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.runRepo.GetResult(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no run with id "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- ListRunFindings ---

func (h *Handlers) ListRunFindings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	filter := repository.FindingFilter{
		Severity: q.Get("severity"),
		Rule:     q.Get("rule"),
		LoanID:   q.Get("loan_id"),
		Layer:    parseIntDefault(q.Get("layer"), 0),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 100),
	}

	findings, total, err := h.runRepo.ListFindings(id, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

// --- GetDashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tapes, err := h.tapeRepo.List("")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	runs, err := h.runRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dashboard := map[string]any{
		"tape_count": len(tapes),
		"run_count":  len(runs),
	}
	if len(runs) > 0 {
		latest := runs[0]
		byRule, err := h.runRepo.CountByRule(latest.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dashboard["latest_run"] = latest
		dashboard["latest_run_by_rule"] = byRule
	}

	writeJSON(w, http.StatusOK, dashboard)
}
