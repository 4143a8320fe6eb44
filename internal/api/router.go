package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-msr/tapecheck/internal/repository"
	"github.com/meridian-msr/tapecheck/internal/tape"
	"github.com/meridian-msr/tapecheck/internal/validation"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	tapeRepo *repository.TapeRepo,
	runRepo *repository.RunRepo,
	tapeSvc *tape.Service,
	engine *validation.Engine,
) http.Handler {
	h := &Handlers{
		tapeRepo: tapeRepo,
		runRepo:  runRepo,
		tapeSvc:  tapeSvc,
		engine:   engine,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Tape ingestion.
		r.Post("/tapes/ingest", h.IngestTape)
		r.Get("/tapes", h.ListTapes)

		// Validation runs.
		r.Post("/validations/run", h.RunValidation)
		r.Get("/validations", h.ListRuns)
		r.Get("/validations/{id}", h.GetRun)
		r.Get("/validations/{id}/findings", h.ListRunFindings)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
