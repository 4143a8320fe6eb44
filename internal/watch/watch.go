package watch

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meridian-msr/tapecheck/internal/tape"
)

// Watcher auto-ingests files dropped into a directory. File names carry the
// kind and label:
//
//	prior_<label>.csv       loan tape
//	submission_<label>.csv  loan tape
//	payoff_<label>.json     payoff recon report
//	newadds_<label>.json    new-add recon report
//
// For loan tapes the label must be the as-of date (e.g.
// submission_2026-01-31.csv); files without a parseable date are skipped.
type Watcher struct {
	svc      *tape.Service
	dir      string
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir.
func New(svc *tape.Service, dir string) *Watcher {
	return &Watcher{
		svc:      svc,
		dir:      dir,
		debounce: 500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until stop is closed. Ingestion of pre-existing files is not
// attempted; the watcher reacts to new drops only.
func (w *Watcher) Run(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	log.Printf("[watch] Watching %s for tape drops", w.dir)

	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			// Debounce per file; uploads arrive in multiple write events.
			w.schedule(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] ERROR: %v", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) ingest(path string) {
	name := filepath.Base(path)
	kind, label, ok := classify(name)
	if !ok {
		return
	}

	var asOf time.Time
	if kind == tape.KindTape {
		t, err := time.Parse("2006-01-02", label)
		if err != nil {
			log.Printf("[watch] Skipping %s: tape label %q is not a date", name, label)
			return
		}
		asOf = t
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[watch] ERROR reading %s: %v", name, err)
		return
	}

	result, err := w.svc.Ingest(data, kind, strings.TrimSuffix(name, filepath.Ext(name)), asOf)
	if err != nil {
		log.Printf("[watch] ERROR ingesting %s: %v", name, err)
		return
	}
	if result.AlreadySeen {
		log.Printf("[watch] %s already ingested, skipping", name)
		return
	}
	log.Printf("[watch] Ingested %s: %d records", name, result.RecordCount)
}

// classify maps a drop-file name onto (kind, label).
func classify(name string) (kind, label string, ok bool) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	switch {
	case ext == ".csv" && strings.HasPrefix(stem, "prior_"):
		return tape.KindTape, strings.TrimPrefix(stem, "prior_"), true
	case ext == ".csv" && strings.HasPrefix(stem, "submission_"):
		return tape.KindTape, strings.TrimPrefix(stem, "submission_"), true
	case ext == ".json" && strings.HasPrefix(stem, "payoff_"):
		return tape.KindPayoff, strings.TrimPrefix(stem, "payoff_"), true
	case ext == ".json" && strings.HasPrefix(stem, "newadds_"):
		return tape.KindNewAdd, strings.TrimPrefix(stem, "newadds_"), true
	}
	return "", "", false
}
