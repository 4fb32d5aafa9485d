package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-classify/internal/engine"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

// Snapshot is one published, fully annotated record set. Snapshots are never
// modified after publication.
type Snapshot struct {
	ID         string
	Records    []models.Record
	Dictionary *patterns.Dictionary
	UpdatedAt  time.Time
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Store holds the current snapshot. Readers never block; writers are
// serialised and publish a new snapshot only after classification finishes.
type Store struct {
	logger     *slog.Logger
	classifier *engine.Classifier

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot built against dict.
func NewStore(logger *slog.Logger, classifier *engine.Classifier, dict *patterns.Dictionary) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = engine.NewClassifier(logger, nil, 0)
	}
	if dict == nil {
		dict = patterns.Empty()
	}
	s := &Store{logger: logger, classifier: classifier}
	s.current.Store(&Snapshot{ID: uuid.NewString(), Dictionary: dict, UpdatedAt: time.Now().UTC()})
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Ingest classifies records and publishes them. With replace the new records
// become the whole set; otherwise they are appended to the current one.
// Missing IDs are assigned before classification and an ID that is already
// taken gets a numeric suffix, so IDs stay unique across the snapshot.
func (s *Store) Ingest(ctx context.Context, records []models.Record, replace bool) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current.Load()
	incoming := make([]models.Record, len(records))
	copy(incoming, records)

	combined := incoming
	offset := 0
	if !replace {
		offset = len(prev.Records)
		combined = make([]models.Record, 0, offset+len(incoming))
		combined = append(combined, prev.Records...)
		combined = append(combined, incoming...)
	}
	models.AssignIDs(combined)

	classified, err := s.classifier.ClassifyAll(ctx, prev.Dictionary, combined[offset:])
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	out := append(combined[:offset:offset], classified...)

	next := s.publish(out, prev.Dictionary)
	s.logger.Info("records ingested",
		slog.String("snapshot", next.ID),
		slog.Int("added", len(records)),
		slog.Int("total", len(out)),
		slog.Bool("replace", replace))
	return next, nil
}

// ReloadDictionary recomputes every match annotation against dict and
// publishes the result. Scores are kept.
func (s *Store) ReloadDictionary(ctx context.Context, dict *patterns.Dictionary) (*Snapshot, error) {
	if dict == nil {
		dict = patterns.Empty()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current.Load()
	out, err := s.classifier.Rematch(ctx, dict, prev.Records)
	if err != nil {
		return nil, fmt.Errorf("reload dictionary: %w", err)
	}
	next := s.publish(out, dict)
	s.logger.Info("dictionary swapped",
		slog.String("snapshot", next.ID),
		slog.String("previous_version", prev.Dictionary.Version()),
		slog.String("version", dict.Version()))
	return next, nil
}

func (s *Store) publish(records []models.Record, dict *patterns.Dictionary) *Snapshot {
	next := &Snapshot{
		ID:         uuid.NewString(),
		Records:    records,
		Dictionary: dict,
		UpdatedAt:  time.Now().UTC(),
	}
	s.current.Store(next)
	return next
}
