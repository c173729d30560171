// Package store keeps the in-memory snapshot of ledger records that all read
// paths serve from. The snapshot is replaced atomically on reload; a failed
// reload keeps the previous snapshot intact.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/model"
	"github.com/habitvault/habitvault-backend/pkg/workerpool"
)

// ErrLoadFailed signals that a reload could not produce a new snapshot. The
// store still serves the last good one.
var ErrLoadFailed = errors.New("store: load failed")

const fetchWorkers = 8

// RecordStore serves records, filtering, and stats from an in-memory snapshot.
type RecordStore struct {
	logger  *zap.Logger
	ledger  Ledger
	metrics Metrics

	mu      sync.RWMutex
	records []model.Record
	loaded  time.Time
}

// NewRecordStore constructs an empty store; call Reload to populate it.
func NewRecordStore(logger *zap.Logger, ledger Ledger, metrics Metrics) (*RecordStore, error) {
	if logger == nil {
		return nil, errors.New("store: logger is required")
	}
	if ledger == nil {
		return nil, errors.New("store: ledger is required")
	}
	if metrics == nil {
		return nil, errors.New("store: metrics is required")
	}
	return &RecordStore{
		logger:  logger.Named("record_store"),
		ledger:  ledger,
		metrics: metrics,
	}, nil
}

// Reload fetches the full record set from the ledger and swaps the snapshot.
// Individual records that fail to load are skipped; only a failure to list
// the ids aborts the reload.
func (s *RecordStore) Reload(ctx context.Context) (err error) {
	started := time.Now()
	var loaded, skipped int
	defer func() {
		s.metrics.ObserveReload(err, loaded, skipped, started)
	}()

	ids, err := s.ledger.ListRecordIDs(ctx)
	if err != nil {
		return fmt.Errorf("%w: list record ids: %w", ErrLoadFailed, err)
	}

	// Slots keep ledger order stable regardless of fetch completion order.
	slots := make([]*model.Record, len(ids))
	var skippedCount int64
	var skippedMu sync.Mutex

	type indexedID struct {
		index int
		id    string
	}
	items := make([]indexedID, len(ids))
	for i, id := range ids {
		items[i] = indexedID{index: i, id: id}
	}

	err = workerpool.Process(ctx, fetchWorkers, items, func(ctx context.Context, item indexedID) error {
		record, fetchErr := s.ledger.GetRecord(ctx, item.id)
		if fetchErr != nil {
			if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
				return fetchErr
			}
			s.logger.Warn("skipping record",
				zap.String("record_id", item.id),
				zap.Error(fetchErr))
			skippedMu.Lock()
			skippedCount++
			skippedMu.Unlock()
			return nil
		}
		slots[item.index] = &record
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: fetch records: %w", ErrLoadFailed, err)
	}

	records := make([]model.Record, 0, len(ids))
	for _, slot := range slots {
		if slot != nil {
			records = append(records, *slot)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	loaded = len(records)
	skipped = int(skippedCount)

	s.mu.Lock()
	s.records = records
	s.loaded = time.Now()
	s.mu.Unlock()

	s.logger.Info("snapshot reloaded",
		zap.Int("records", loaded),
		zap.Int("skipped", skipped),
		zap.Duration("took", time.Since(started)))

	return nil
}

// List returns the records matching the filter, newest first.
func (s *RecordStore) List(filter model.Filter) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, 0, len(s.records))
	for _, record := range s.records {
		if filter.Matches(record) {
			out = append(out, record)
		}
	}
	return out
}

// Stats computes aggregate stats over the current snapshot.
func (s *RecordStore) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.ComputeStats(s.records)
}

// Len reports the size of the current snapshot.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// LoadedAt reports when the current snapshot was taken; zero before the
// first successful reload.
func (s *RecordStore) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}
