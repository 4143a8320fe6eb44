package tape

import (
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-msr/tapecheck/internal/repository"
)

// Tape kinds accepted by the ingest endpoint.
const (
	KindTape   = "tape"
	KindPayoff = "payoff"
	KindNewAdd = "new_add"
)

// IngestResult is returned from a successful ingestion.
type IngestResult struct {
	TapeID      string `json:"tape_id"`
	Label       string `json:"label"`
	Kind        string `json:"kind"`
	RecordCount int    `json:"record_count"`
	AlreadySeen bool   `json:"already_seen"`
}

// Service handles ingestion of loan tapes and recon reports.
type Service struct {
	repo *repository.TapeRepo
}

// NewService creates a new ingestion service.
func NewService(repo *repository.TapeRepo) *Service {
	return &Service{repo: repo}
}

// Ingest parses and stores one uploaded file.
//
// kind must be one of: tape, payoff, new_add. Loan tapes are CSV; recon
// reports are JSON. Parsing is fail-fast: a structural problem aborts the
// whole file with one error, nothing is stored.
func (s *Service) Ingest(data []byte, kind, label string, asOf time.Time) (*IngestResult, error) {
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}

	// Idempotency check via file hash.
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.repo.ExistsByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		return &IngestResult{Label: label, Kind: kind, AlreadySeen: true}, nil
	}

	meta := &repository.TapeMeta{
		ID:         fmt.Sprintf("TAPE-%s", uuid.NewString()),
		Label:      label,
		Kind:       kind,
		AsOf:       asOf,
		FileHash:   hash,
		IngestedAt: time.Now(),
	}

	switch kind {
	case KindTape:
		if asOf.IsZero() {
			return nil, fmt.Errorf("as_of is required for loan tapes")
		}
		snap, err := ParseTapeCSV(data, label, asOf)
		if err != nil {
			return nil, fmt.Errorf("parse tape: %w", err)
		}
		meta.RecordCount = len(snap.Records)
		if err := s.repo.InsertSnapshot(meta, snap); err != nil {
			return nil, fmt.Errorf("store tape: %w", err)
		}
	case KindPayoff, KindNewAdd:
		set, err := ParseReconJSON(data, label)
		if err != nil {
			return nil, fmt.Errorf("parse recon report: %w", err)
		}
		if meta.AsOf.IsZero() {
			meta.AsOf = time.Now()
		}
		meta.RecordCount = len(set.Entries)
		if err := s.repo.InsertReconSet(meta, set); err != nil {
			return nil, fmt.Errorf("store recon report: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported kind: %s", kind)
	}

	log.Printf("[tape] Ingested %s %q: %d records", kind, label, meta.RecordCount)

	return &IngestResult{
		TapeID:      meta.ID,
		Label:       label,
		Kind:        kind,
		RecordCount: meta.RecordCount,
	}, nil
}
