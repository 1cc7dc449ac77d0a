package state

import (
	"fmt"
	"maps"
	"sync"
	"time"
)

// Snapshot is the latest dataset metadata available to the UI.
type Snapshot struct {
	Counts              map[string]int
	HasCounts           bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the indexer has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Count returns the last known record count of dataset.
func (s Snapshot) Count(dataset string) (int, bool) {
	n, ok := s.Counts[dataset]
	return n, ok
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update merges counts into the stored snapshot. Datasets missing from counts
// keep their previous value, so a poll where only some datasets failed still
// refreshes the rest. When err is non-nil the failure is recorded too.
func (s *Store) Update(counts map[string]int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(counts) > 0 {
		if s.snapshot.Counts == nil {
			s.snapshot.Counts = make(map[string]int, len(counts))
		}
		maps.Copy(s.snapshot.Counts, counts)
		s.snapshot.HasCounts = true
	}
	s.snapshot.LastUpdated = time.Now()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Counts = maps.Clone(s.snapshot.Counts)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
