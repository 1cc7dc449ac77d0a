package state

import (
	"errors"
	"testing"
	"time"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(map[string]int{"blocks": 1000, "epochs": 32}, nil)

	snap := s.Snapshot()
	if !snap.HasCounts {
		t.Fatalf("HasCounts = false, want true")
	}
	if n, ok := snap.Count("blocks"); !ok || n != 1000 {
		t.Fatalf("Count(blocks) = %d, %v, want 1000, true", n, ok)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Counts["blocks"] = 1
	if n, _ := s.Snapshot().Count("blocks"); n != 1000 {
		t.Fatalf("Snapshot should clone counts; got %d want 1000", n)
	}
}

func TestStore_PartialUpdateMergesCounts(t *testing.T) {
	var s Store

	s.Update(map[string]int{"blocks": 10, "epochs": 1}, nil)
	s.Update(map[string]int{"blocks": 42}, errors.New("epochs: timeout"))

	snap := s.Snapshot()
	if n, _ := snap.Count("blocks"); n != 42 {
		t.Fatalf("Count(blocks) = %d, want 42", n)
	}
	if n, _ := snap.Count("epochs"); n != 1 {
		t.Fatalf("Count(epochs) = %d, want previous value 1", n)
	}
	if snap.LastError == nil || snap.ConsecutiveFailures != 1 {
		t.Fatalf("LastError = %v failures = %d, want error and 1", snap.LastError, snap.ConsecutiveFailures)
	}
	if _, ok := snap.Count("validators"); ok {
		t.Fatalf("Count(validators) reported as known")
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(map[string]int{"deposits": 7}, nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.Update(nil, origErr)
	snap := s.Snapshot()

	if !snap.HasCounts {
		t.Fatalf("HasCounts = false, want previous counts kept")
	}
	if n, _ := snap.Count("deposits"); n != 7 {
		t.Fatalf("Count(deposits) = %d, want 7", n)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError = %v, want wrapping %v", snap.LastError, origErr)
	}
	if snap.LastUpdated.Before(prev.LastUpdated) {
		t.Fatalf("LastUpdated went backwards: %v < %v", snap.LastUpdated, prev.LastUpdated)
	}
}

func TestSnapshot_IsOffline(t *testing.T) {
	var s Store
	boom := errors.New("boom")

	s.Update(nil, boom)
	if s.Snapshot().IsOffline() {
		t.Fatalf("IsOffline after one failure = true, want false")
	}
	s.Update(nil, boom)
	if !s.Snapshot().IsOffline() {
		t.Fatalf("IsOffline after two failures = false, want true")
	}
	s.Update(map[string]int{"blocks": 1}, nil)
	snap := s.Snapshot()
	if snap.IsOffline() || snap.ConsecutiveFailures != 0 {
		t.Fatalf("failures = %d after success, want 0", snap.ConsecutiveFailures)
	}
}
