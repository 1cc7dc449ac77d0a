package indexer

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/five82/beaconscope/internal/grid"
)

// DefaultShardSize is the number of ids per shard file.
const DefaultShardSize = 10

const shardCacheSize = 512

// ShardSource resolves sorted pages from precomputed shard files instead of
// the range endpoint. Shard n holds positions [(n-1)*size, n*size) of the
// dataset in ascending order of the sort column.
type ShardSource struct {
	fetcher   ShardFetcher
	shardSize int
	cache     *lru.Cache[shardKey, []grid.ID]
}

var _ grid.RangeSource = (*ShardSource)(nil)

// ShardFetcher retrieves one shard file.
type ShardFetcher interface {
	FetchShard(ctx context.Context, dataset, sortID string, n int, kind grid.RangeKind) ([]grid.ID, error)
}

type shardKey struct {
	dataset string
	sortID  string
	n       int
}

// NewShardSource returns a range source reading shards through fetcher.
func NewShardSource(fetcher ShardFetcher, shardSize int) *ShardSource {
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[shardKey, []grid.ID](shardCacheSize)
	return &ShardSource{fetcher: fetcher, shardSize: shardSize, cache: cache}
}

// FetchRange maps the requested page onto ascending shard positions, fetches
// the covering shards concurrently and cuts the page out of them.
func (s *ShardSource) FetchRange(ctx context.Context, q grid.Query) (grid.Range, error) {
	st := q.Settings
	start, end, ok := grid.Window(q.TotalCount, st.PageIndex, st.PageSize)
	if !ok {
		return grid.Range{}, nil
	}
	lo, hi := start, end
	if st.SortDesc {
		lo, hi = q.TotalCount-end, q.TotalCount-start
	}

	first := lo / s.shardSize
	last := (hi - 1) / s.shardSize
	shards := make([][]grid.ID, last-first+1)

	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		n := first + i + 1
		g.Go(func() error {
			ids, err := s.shard(gctx, q, n)
			if err != nil {
				return err
			}
			shards[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := slices.Concat(shards...)
	offset := first * s.shardSize
	if hi-offset > len(ids) {
		return nil, fmt.Errorf("shards %d-%d hold %d ids, need %d", first+1, last+1, len(ids), hi-offset)
	}
	window := slices.Clone(ids[lo-offset : hi-offset])
	if st.SortDesc {
		slices.Reverse(window)
	}

	rng := make(grid.Range, len(window))
	for i, id := range window {
		rng[i] = grid.Entry{ID: id}
		if q.PathOf != nil {
			rng[i].Path = q.PathOf(id)
		}
	}
	return rng, nil
}

func (s *ShardSource) shard(ctx context.Context, q grid.Query, n int) ([]grid.ID, error) {
	key := shardKey{dataset: q.Dataset, sortID: q.Settings.SortID, n: n}
	if ids, ok := s.cache.Get(key); ok {
		return ids, nil
	}
	ids, err := s.fetcher.FetchShard(ctx, q.Dataset, q.Settings.SortID, n, q.Kind)
	if err != nil {
		return nil, fmt.Errorf("fetch shard %d: %w", n, err)
	}
	s.cache.Add(key, ids)
	return ids, nil
}
