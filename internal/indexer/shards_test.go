package indexer

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/layout"
)

// memoryShards serves shards cut from an ascending id list.
type memoryShards struct {
	mu     sync.Mutex
	ids    []grid.ID
	size   int
	calls  map[int]int
	failAt int
}

func (m *memoryShards) FetchShard(_ context.Context, _, _ string, n int, _ grid.RangeKind) ([]grid.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[n]++
	if n == m.failAt {
		return nil, errors.New("shard missing")
	}
	lo := (n - 1) * m.size
	hi := min(lo+m.size, len(m.ids))
	if lo >= len(m.ids) {
		return nil, nil
	}
	return m.ids[lo:hi], nil
}

func newMemoryShards(total, size int) *memoryShards {
	ids := make([]grid.ID, total)
	for i := range ids {
		// ascending by some sort column, ids deliberately not in id order
		ids[i] = grid.IntID(uint64(1000 + (i*37)%total))
	}
	return &memoryShards{ids: ids, size: size, calls: make(map[int]int)}
}

func shardQuery(page, size int, desc bool, total int) grid.Query {
	return grid.Query{
		Dataset:    "blocks",
		Kind:       grid.Integers(1),
		Settings:   grid.PageSettings{PageIndex: page, PageSize: size, SortID: "attestationsCount", SortDesc: desc},
		TotalCount: total,
		PathOf:     func(id grid.ID) string { return layout.RecordPath("blocks", id) },
	}
}

func TestShardSourceAscendingWindow(t *testing.T) {
	shards := newMemoryShards(95, 10)
	src := NewShardSource(shards, 10)

	rng, err := src.FetchRange(context.Background(), shardQuery(1, 15, false, 95))
	if err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	if got, want := rng.IDs(), shards.ids[15:30]; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if rng[0].Path != layout.RecordPath("blocks", rng[0].ID) {
		t.Fatalf("path = %q", rng[0].Path)
	}
	for _, n := range []int{2, 3} {
		if shards.calls[n] != 1 {
			t.Fatalf("shard %d fetched %d times, want 1", n, shards.calls[n])
		}
	}
	if shards.calls[1] != 0 || shards.calls[4] != 0 {
		t.Fatalf("fetched shards outside the window: %v", shards.calls)
	}
}

func TestShardSourceDescendingWindow(t *testing.T) {
	shards := newMemoryShards(95, 10)
	src := NewShardSource(shards, 10)

	rng, err := src.FetchRange(context.Background(), shardQuery(0, 10, true, 95))
	if err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	want := make([]grid.ID, 0, 10)
	for i := 94; i >= 85; i-- {
		want = append(want, shards.ids[i])
	}
	if got := rng.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}

	last, err := src.FetchRange(context.Background(), shardQuery(9, 10, true, 95))
	if err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	if got, want := last.IDs(), []grid.ID{shards.ids[4], shards.ids[3], shards.ids[2], shards.ids[1], shards.ids[0]}; !reflect.DeepEqual(got, want) {
		t.Fatalf("last page ids = %v, want %v", got, want)
	}
}

func TestShardSourceCachesShards(t *testing.T) {
	shards := newMemoryShards(40, 10)
	src := NewShardSource(shards, 10)
	q := shardQuery(0, 10, false, 40)

	first, err := src.FetchRange(context.Background(), q)
	if err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	second, err := src.FetchRange(context.Background(), q)
	if err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranges differ: %v vs %v", first, second)
	}
	if shards.calls[1] != 1 {
		t.Fatalf("shard 1 fetched %d times, want 1", shards.calls[1])
	}
}

func TestShardSourceErrors(t *testing.T) {
	shards := newMemoryShards(40, 10)
	shards.failAt = 2
	src := NewShardSource(shards, 10)

	if _, err := src.FetchRange(context.Background(), shardQuery(1, 10, false, 40)); err == nil {
		t.Fatal("FetchRange with a failing shard returned nil error")
	}

	// The server claims more records than the shards hold.
	short := NewShardSource(newMemoryShards(25, 10), 10)
	if _, err := short.FetchRange(context.Background(), shardQuery(0, 10, true, 40)); err == nil {
		t.Fatal("FetchRange over short shards returned nil error")
	}

	empty, err := src.FetchRange(context.Background(), shardQuery(8, 10, false, 40))
	if err != nil || len(empty) != 0 {
		t.Fatalf("FetchRange past the end = %v, %v; want empty", empty, err)
	}
}
