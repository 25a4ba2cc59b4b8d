// Package historydb persists the export audit trail using BadgerHold.
// One record per export attempt, completed or failed, queryable newest first.
package historydb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/models"
)

// Store implements interfaces.HistoryStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Export history db opened")
	return &Store{db: db, logger: logger}, nil
}

// Append stores one export audit record.
func (s *Store) Append(_ context.Context, rec *models.ExportRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("history record requires an id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := s.db.Upsert(rec.ID, rec); err != nil {
		return fmt.Errorf("failed to append history record '%s': %w", rec.ID, err)
	}
	s.logger.Debug().
		Str("record_id", rec.ID).
		Str("format", string(rec.Format)).
		Str("outcome", rec.Outcome).
		Msg("Export history recorded")
	return nil
}

// List returns audit records newest first, capped at limit (0 = all).
func (s *Store) List(_ context.Context, limit int) ([]*models.ExportRecord, error) {
	var found []models.ExportRecord
	if err := s.db.Find(&found, nil); err != nil {
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	records := make([]*models.ExportRecord, len(found))
	for i := range found {
		records[i] = &found[i]
	}
	return records, nil
}

// Prune deletes records created before cutoff and returns the count removed.
func (s *Store) Prune(_ context.Context, cutoff time.Time) (int, error) {
	var stale []models.ExportRecord
	if err := s.db.Find(&stale, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale history records: %w", err)
	}
	removed := 0
	for _, rec := range stale {
		if err := s.db.Delete(rec.ID, models.ExportRecord{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete history record '%s': %w", rec.ID, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("Pruned export history")
	}
	return removed, nil
}

// Close shuts down the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
