package main

import (
	"log"
	"net/http"
	"os"

	"github.com/meridian-msr/tapecheck/internal/api"
	"github.com/meridian-msr/tapecheck/internal/repository"
	"github.com/meridian-msr/tapecheck/internal/tape"
	"github.com/meridian-msr/tapecheck/internal/validation"
	"github.com/meridian-msr/tapecheck/internal/watch"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "tapecheck.db"
	}

	log.Printf("Initializing database at %s", dbPath)
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	cfg, err := validation.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create repositories and services.
	tapeRepo := repository.NewTapeRepo(db)
	runRepo := repository.NewRunRepo(db)
	tapeSvc := tape.NewService(tapeRepo)
	engine := validation.NewEngine(cfg)

	// Optional drop-folder auto-ingest.
	if dir := os.Getenv("WATCH_DIR"); dir != "" {
		watcher := watch.New(tapeSvc, dir)
		go func() {
			if err := watcher.Run(nil); err != nil {
				log.Printf("WARNING: watcher stopped: %v", err)
			}
		}()
	}

	router := api.NewRouter(tapeRepo, runRepo, tapeSvc, engine)

	log.Printf("MSR Tape Validation Service")
	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("API base: http://localhost:%s/api/v1", port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/tapes/ingest")
	log.Printf("  GET    /api/v1/tapes")
	log.Printf("  POST   /api/v1/validations/run")
	log.Printf("  GET    /api/v1/validations")
	log.Printf("  GET    /api/v1/validations/{id}")
	log.Printf("  GET    /api/v1/validations/{id}/findings")
	log.Printf("  GET    /api/v1/dashboard")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
